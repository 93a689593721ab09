// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package exitpolicy

import (
	"fmt"
)

// Action is the disposition a policy rule applies to destinations it matches.
type Action uint8

const (
	// Accept permits traffic to destinations matched by the rule.
	Accept Action = iota

	// Reject refuses traffic to destinations matched by the rule.
	Reject
)

// String returns the Action in the textual form used by router descriptors.
func (a Action) String() string {
	if a == Reject {
		return "reject"
	}
	return "accept"
}

// Rule is a single entry of an exit policy.  Addresses and masks are IPv4
// values in host byte order.  A zero mask matches every address.  The port
// range is inclusive on both ends.
type Rule struct {
	Action  Action
	Addr    uint32
	Mask    uint32
	MinPort uint16
	MaxPort uint16
}

// String returns the rule in the textual form used by router descriptors,
// e.g. "reject 0.0.0.0/0.0.0.0:1-65535".
func (r Rule) String() string {
	return fmt.Sprintf("%s %s/%s:%d-%d", r.Action, ipv4String(r.Addr),
		ipv4String(r.Mask), r.MinPort, r.MaxPort)
}

func ipv4String(addr uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(addr>>24), byte(addr>>16),
		byte(addr>>8), byte(addr))
}

// Result is the outcome of evaluating an exit policy against a destination.
type Result int

const (
	// Accepted means the policy definitely permits the destination.
	Accepted Result = iota

	// Rejected means the policy definitely refuses the destination.
	Rejected

	// Unknown means the destination's treatment cannot be determined
	// without more address information.
	Unknown
)

// String returns a human-readable form of the Result.
func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Evaluate decides whether the destination addr:port is definitely accepted,
// definitely rejected, or neither by the ordered policy.  Rules are scanned
// in order and the first definite match wins, except that an earlier rule of
// the opposite action which only *might* have matched downgrades the answer
// to Unknown.  Policies that fall off the end accept by default.
//
// An addr of 0 means the destination's IP is not known; a port of 0 means
// the destination port is not known.  With an unknown address a rule can
// only match definitely when its mask is the zero wildcard.
func Evaluate(addr uint32, port uint16, policy []Rule) Result {
	var maybeReject, maybeAccept bool

	for i := range policy {
		rule := &policy[i]
		var match, maybe bool
		if addr == 0 {
			// Address is unknown.
			if port >= rule.MinPort && port <= rule.MaxPort {
				// The port definitely matches.
				if rule.Mask == 0 {
					match = true
				} else {
					maybe = true
				}
			} else if port == 0 {
				// The port maybe matches.
				maybe = true
			}
		} else {
			// Address is known.
			if addr&rule.Mask == rule.Addr&rule.Mask {
				if port >= rule.MinPort && port <= rule.MaxPort {
					match = true
				} else if port == 0 {
					maybe = true
				}
			}
		}

		if maybe {
			if rule.Action == Reject {
				maybeReject = true
			} else {
				maybeAccept = true
			}
		}
		if match {
			if rule.Action == Accept {
				// An earlier clause that might have rejected makes this
				// definite accept uncertain.
				if maybeReject {
					return Unknown
				}
				return Accepted
			}
			if maybeAccept {
				return Unknown
			}
			return Rejected
		}
	}

	// Accept all by default.
	if maybeReject {
		return Unknown
	}
	return Accepted
}

// RejectsAll reports whether the policy refuses every destination, i.e. the
// router does not permit exit traffic at all.
func RejectsAll(policy []Rule) bool {
	return Evaluate(0, 0, policy) == Rejected
}
