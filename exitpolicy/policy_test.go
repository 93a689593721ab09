// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package exitpolicy

import (
	"testing"
)

// acceptPrivateRejectAll is the common "exit to 10/8 only" policy used by
// several tests: accept 10.0.0.0/8:1-65535, reject 0.0.0.0/0:1-65535.
var acceptPrivateRejectAll = []Rule{{
	Action:  Accept,
	Addr:    0x0a000000,
	Mask:    0xff000000,
	MinPort: 1,
	MaxPort: 65535,
}, {
	Action:  Reject,
	Addr:    0,
	Mask:    0,
	MinPort: 1,
	MaxPort: 65535,
}}

// TestEvaluate ensures policy evaluation returns the expected three-valued
// results, including the downgrade to Unknown forced by earlier ambiguous
// rules of the opposite action.
func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		addr   uint32
		port   uint16
		policy []Rule
		want   Result
	}{{
		name:   "empty policy accepts by default",
		addr:   0x0a010203,
		port:   80,
		policy: nil,
		want:   Accepted,
	}, {
		name:   "known addr inside accepted subnet",
		addr:   0x0a010203, // 10.1.2.3
		port:   80,
		policy: acceptPrivateRejectAll,
		want:   Accepted,
	}, {
		name:   "known addr outside accepted subnet",
		addr:   0xc0a80101, // 192.168.1.1
		port:   80,
		policy: acceptPrivateRejectAll,
		want:   Rejected,
	}, {
		name: "unknown addr downgrades later definite reject",
		addr: 0,
		port: 80,
		// Rule 1 is an ambiguous accept (non-wildcard mask), rule 2 a
		// definite reject; the earlier maybe-accept forces Unknown.
		policy: acceptPrivateRejectAll,
		want:   Unknown,
	}, {
		name: "unknown addr with wildcard rule matches definitely",
		addr: 0,
		port: 80,
		policy: []Rule{{
			Action: Reject, MinPort: 1, MaxPort: 65535,
		}},
		want: Rejected,
	}, {
		name: "unknown addr and port out of range is no match",
		addr: 0,
		port: 80,
		policy: []Rule{{
			Action: Reject, MinPort: 6667, MaxPort: 6667,
		}},
		want: Accepted,
	}, {
		name: "unknown addr and zero port is ambiguous",
		addr: 0,
		port: 0,
		policy: []Rule{{
			Action: Reject, MinPort: 6667, MaxPort: 6667,
		}},
		want: Unknown,
	}, {
		name: "known addr with zero port is ambiguous on port range",
		addr: 0x0a010203,
		port: 0,
		policy: []Rule{{
			Action: Reject, Addr: 0x0a000000, Mask: 0xff000000,
			MinPort: 6667, MaxPort: 6667,
		}},
		want: Unknown,
	}, {
		name: "earlier ambiguous reject downgrades definite accept",
		addr: 0x0a010203,
		port: 0,
		policy: []Rule{{
			Action: Reject, Addr: 0x0a000000, Mask: 0xff000000,
			MinPort: 25, MaxPort: 25,
		}, {
			Action: Accept, MinPort: 0, MaxPort: 65535,
		}},
		want: Unknown,
	}, {
		name: "first match wins over later contradicting rule",
		addr: 0x0a010203,
		port: 80,
		policy: []Rule{{
			Action: Accept, Addr: 0x0a000000, Mask: 0xff000000,
			MinPort: 1, MaxPort: 65535,
		}, {
			Action: Reject, Addr: 0x0a010203, Mask: 0xffffffff,
			MinPort: 80, MaxPort: 80,
		}},
		want: Accepted,
	}, {
		name: "rule order is significant",
		addr: 0x0a010203,
		port: 80,
		policy: []Rule{{
			Action: Reject, Addr: 0x0a010203, Mask: 0xffffffff,
			MinPort: 80, MaxPort: 80,
		}, {
			Action: Accept, Addr: 0x0a000000, Mask: 0xff000000,
			MinPort: 1, MaxPort: 65535,
		}},
		want: Rejected,
	}, {
		name: "unmatched scan with earlier ambiguous reject is unknown",
		addr: 0,
		port: 443,
		policy: []Rule{{
			Action: Reject, Addr: 0xc0a80000, Mask: 0xffff0000,
			MinPort: 443, MaxPort: 443,
		}},
		want: Unknown,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := Evaluate(test.addr, test.port, test.policy)
			if got != test.want {
				t.Errorf("Evaluate(%#x, %d): got %v, want %v",
					test.addr, test.port, got, test.want)
			}
		})
	}
}

// TestRejectsAll ensures the permits-no-exit-traffic query matches only
// policies that definitely reject everything.
func TestRejectsAll(t *testing.T) {
	rejectEverything := []Rule{{
		Action: Reject, MinPort: 0, MaxPort: 65535,
	}}
	if !RejectsAll(rejectEverything) {
		t.Error("expected reject-everything policy to reject all")
	}

	if RejectsAll(acceptPrivateRejectAll) {
		t.Error("policy with a possible accept should not reject all")
	}

	if RejectsAll(nil) {
		t.Error("empty policy accepts by default and should not reject all")
	}

	// The wildcard reject covers ports 1-65535 only; port 0 probes with an
	// unknown port, so the match is merely ambiguous.
	rejectMostPorts := []Rule{{
		Action: Reject, MinPort: 1, MaxPort: 65535,
	}}
	if RejectsAll(rejectMostPorts) {
		t.Error("reject of ports 1-65535 is ambiguous for port 0")
	}
}

// TestRuleString ensures rules render in the descriptor text form.
func TestRuleString(t *testing.T) {
	rule := Rule{
		Action: Accept, Addr: 0x0a000000, Mask: 0xff000000,
		MinPort: 1, MaxPort: 65535,
	}
	want := "accept 10.0.0.0/255.0.0.0:1-65535"
	if got := rule.String(); got != want {
		t.Errorf("unexpected rule string: got %q, want %q", got, want)
	}
}
