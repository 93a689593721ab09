// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package dirmgr implements a concurrency-safe registry of known relay routers.

# Router List Overview

A veil overlay client learns about relays from directory documents published
by a small set of trusted directory servers.  The documents, and the router
descriptors inside them, come from the network and cannot be trusted
individually: a relay may republish stale descriptors, claim a nickname that
belongs to someone else, or vanish without notice.  This package owns the
in-memory set of known router descriptors and encodes the merge rules for
folding freshly learned descriptors into it: a newer descriptor for the same
router replaces the older one and inherits its accumulated trust, an older
one is dropped but still contributes its liveness signal, and a descriptor
whose identity key disagrees with the entry already registered under that
nickname is refused outright.

The package also provides the read side those rules exist for: lookup by
identity digest, hex digest, or nickname; uniform random selection of a
directory server with a forgive-and-retry fallback when every known server
has been marked unreachable; random selection of path candidates honoring
preferred and excluded node lists; and application of signed running-status
snapshots with staleness guards so an old snapshot can never roll back newer
liveness information.

Hostname resolution is the only operation that touches the network.  It is
performed through an injected lookup function bounded by a timeout, and a
router whose address cannot be resolved is removed from the registry rather
than retried forever.
*/
package dirmgr
