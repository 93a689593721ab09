// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dirmgr

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// failingLookup is a lookup function that always fails.  Tests that do not
// exercise resolution use it to ensure they never hit the network.
func failingLookup(_ context.Context, host string) ([]net.IP, error) {
	return nil, errors.New("lookup not implemented in test")
}

// tableLookup returns a lookup function serving fixed answers.
func tableLookup(table map[string][]net.IP) LookupFunc {
	return func(_ context.Context, host string) ([]net.IP, error) {
		ips, ok := table[host]
		if !ok {
			return nil, errors.New("no such host")
		}
		return ips, nil
	}
}

// TestResolveAll ensures resolution fills in numeric addresses, skips
// already-resolved entries, and removes routers that cannot be resolved.
func TestResolveAll(t *testing.T) {
	lookup := tableLookup(map[string][]net.IP{
		"alpha.example.org": {net.ParseIP("10.0.0.1")},
		// IPv6-only answers are unusable for routing here.
		"v6only.example.org": {net.ParseIP("2001:db8::1")},
	})
	l := New(lookup, time.Second)

	alpha := testRouter("alpha")
	resolved := testRouter("resolved")
	resolved.Addr = 0x7f000001
	literal := testRouter("literal")
	literal.Address = "192.0.2.7"
	missing := testRouter("missing")
	v6only := testRouter("v6only")

	for _, r := range []*RouterInfo{alpha, resolved, literal, missing, v6only} {
		l.AddRouter(r)
	}

	l.ResolveAll(context.Background(), nil)

	if alpha.Addr != 0x0a000001 {
		t.Errorf("alpha resolved to %#x, want 0x0a000001", alpha.Addr)
	}
	if resolved.Addr != 0x7f000001 {
		t.Error("already-resolved router must not be re-resolved")
	}
	if literal.Addr != 0xc0000207 {
		t.Errorf("IP literal resolved to %#x, want 0xc0000207", literal.Addr)
	}
	if l.RouterByNickname("missing") != nil {
		t.Error("unresolvable router should have been removed")
	}
	if l.RouterByNickname("v6only") != nil {
		t.Error("router without a usable IPv4 address should be removed")
	}
	if l.Len() != 3 {
		t.Errorf("unexpected list length %d", l.Len())
	}
}

// TestResolveAllKeepsOrder ensures surviving entries keep their relative
// order when failures are removed.
func TestResolveAllKeepsOrder(t *testing.T) {
	lookup := tableLookup(map[string][]net.IP{
		"a.example.org": {net.ParseIP("10.0.0.1")},
		"c.example.org": {net.ParseIP("10.0.0.3")},
	})
	l := New(lookup, time.Second)

	a := testRouter("x")
	a.Address = "a.example.org"
	b := testRouter("y")
	b.Address = "b.example.org"
	c := testRouter("z")
	c.Address = "c.example.org"
	for _, r := range []*RouterInfo{a, b, c} {
		l.AddRouter(r)
	}

	l.ResolveAll(context.Background(), nil)

	routers := l.Routers()
	if len(routers) != 2 || routers[0] != a || routers[1] != c {
		t.Fatalf("unexpected surviving order: %v", routers)
	}
}

// TestResolveAllLocal ensures the local node's descriptor is pinned to the
// front, excluded from resolution, and that stale copies of it are removed.
func TestResolveAllLocal(t *testing.T) {
	lookup := tableLookup(map[string][]net.IP{
		"other.example.org": {net.ParseIP("10.0.0.9")},
	})
	l := New(lookup, time.Second)

	local := testRouter("self")
	// The local address is deliberately not resolvable; it must never be
	// looked up.

	stale := testRouter("self")
	stale.Nickname = "stale-self"
	other := testRouter("other")
	l.AddRouter(stale)
	l.AddRouter(other)

	l.ResolveAll(context.Background(), local)

	routers := l.Routers()
	if len(routers) != 2 {
		t.Fatalf("unexpected list length %d", len(routers))
	}
	if routers[0].IdentityDigest != local.IdentityDigest {
		t.Error("local descriptor should be pinned to position 0")
	}
	if routers[0] == local {
		t.Error("the pinned entry must be a clone, not the live descriptor")
	}
	if l.RouterByNickname("stale-self") != nil {
		t.Error("stale copy of the local descriptor should be removed")
	}
	if other.Addr != 0x0a000009 {
		t.Errorf("other resolved to %#x, want 0x0a000009", other.Addr)
	}

	// Running it again replaces the previous pinned clone instead of
	// stacking clones.
	l.ResolveAll(context.Background(), local)
	if l.Len() != 2 {
		t.Errorf("repeated resolve grew the list to %d entries", l.Len())
	}
}

// TestResolveAddressErrors ensures resolution failures carry the resolve
// error kind.
func TestResolveAddressErrors(t *testing.T) {
	l := New(failingLookup, time.Second)

	_, err := l.resolveAddress(context.Background(), "nosuch.example.org")
	if !errors.Is(err, ErrResolveFailed) {
		t.Errorf("lookup failure: got %v, want %v", err, ErrResolveFailed)
	}

	// An IPv6 literal cannot be used as a router address.
	_, err = l.resolveAddress(context.Background(), "2001:db8::1")
	if !errors.Is(err, ErrResolveFailed) {
		t.Errorf("IPv6 literal: got %v, want %v", err, ErrResolveFailed)
	}
}
