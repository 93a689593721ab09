// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package exitpolicy evaluates the ordered accept/reject rule lists that relays
publish to describe which destinations they permit as an egress point.

Evaluation is first-match over the ordered rules with three possible
outcomes.  Besides a definite accept or reject, the answer can be Unknown:
when the destination address has not been resolved yet, a rule with a
non-wildcard mask cannot be known to match or miss, and such a rule of the
opposite action taints any later definite match.  Callers use Unknown to
defer the routing decision until the destination resolves.
*/
package exitpolicy
