// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package dircache provides the two stores the directory layer writes through.

When the node runs as an authoritative directory it keeps every descriptor it
learns in a persistent Store so it can serve them back out; the Store is
backed by leveldb and keyed by identity digest.  When the node runs as an
ordinary client it only remembers recently fetched directory documents in an
in-memory DocumentCache so repeated requests do not refetch them.
*/
package dircache
