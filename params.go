// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

// defaultDirServers is the built-in list of seed directory servers used when
// no seed router file is configured.  Each entry must carry a non-zero
// directory port.
var defaultDirServers = []seedRouter{{
	Nickname:       "anchor1",
	Address:        "198.51.100.10",
	ORPort:         9001,
	DirPort:        9030,
	IdentityDigest: "57ab1bca6fa3b7de2f5cb58d1f0c3a9ee14208d1",
}, {
	Nickname:       "anchor2",
	Address:        "203.0.113.25",
	ORPort:         9001,
	DirPort:        9030,
	IdentityDigest: "8a20c4f39b17d0be6d3af4c1e99b02754de1a0c7",
}, {
	Nickname:       "anchor3",
	Address:        "192.0.2.42",
	ORPort:         443,
	DirPort:        80,
	IdentityDigest: "f2037cc1e8a19b5dd05f63c4b11e02a8cd93be44",
}}
