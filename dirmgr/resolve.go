// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dirmgr

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

const (
	// defaultResolveTimeout bounds a single hostname resolution when the
	// caller does not configure one.
	defaultResolveTimeout = 10 * time.Second
)

// LookupFunc resolves a hostname to IP addresses.  Implementations must be
// safe for concurrent access and must honor cancellation of the provided
// context.
type LookupFunc func(ctx context.Context, host string) ([]net.IP, error)

// defaultLookup resolves hostnames with the net package's default resolver.
func defaultLookup(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		ips = append(ips, addr.IP)
	}
	return ips, nil
}

// ipv4ToAddr converts an IPv4 address to its host-byte-order numeric form.
// It returns 0 for addresses that are not IPv4.
func ipv4ToAddr(ip net.IP) uint32 {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(ip4)
}

// resolveAddress resolves a router's published address to a host-byte-order
// IPv4 value.  IP literals are converted directly without consulting the
// lookup function.
func (l *RouterList) resolveAddress(ctx context.Context, address string) (uint32, error) {
	if ip := net.ParseIP(address); ip != nil {
		if addr := ipv4ToAddr(ip); addr != 0 {
			return addr, nil
		}
		str := fmt.Sprintf("address %q is not a usable IPv4 address", address)
		return 0, makeError(ErrResolveFailed, str)
	}

	ctx, cancel := context.WithTimeout(ctx, l.resolveTimeout)
	defer cancel()

	ips, err := l.lookup(ctx, address)
	if err != nil {
		str := fmt.Sprintf("failed to resolve %q: %v", address, err)
		return 0, makeError(ErrResolveFailed, str)
	}
	for _, ip := range ips {
		if addr := ipv4ToAddr(ip); addr != 0 {
			return addr, nil
		}
	}
	str := fmt.Sprintf("no usable IPv4 address for %q", address)
	return 0, makeError(ErrResolveFailed, str)
}

// ResolveAll resolves the published address of every router that does not
// have a numeric address yet, removing the routers whose resolution fails or
// times out.  An unresolvable router cannot be routed to.
//
// When local is not nil it identifies this node's own router descriptor: a
// clone of it is pinned to position 0, it is excluded from resolution, and
// any other entry carrying the local identity digest is removed so the node
// can never select itself as a directory server or path hop.
//
// Resolution happens outside the registry lock; only the collection of
// unresolved entries and the application of results mutate the list.
func (l *RouterList) ResolveAll(ctx context.Context, local *RouterInfo) {
	// Pin the local descriptor, drop imposters and stale copies of self,
	// and collect the entries that still need resolution.
	l.mtx.Lock()
	var pending []*RouterInfo
	if local != nil {
		kept := l.routers[:0]
		for _, r := range l.routers {
			if r.IdentityDigest == local.IdentityDigest {
				log.Debugf("Dropping stale copy of own descriptor (%s)",
					r.Nickname)
				continue
			}
			kept = append(kept, r)
		}
		for i := len(kept); i < len(l.routers); i++ {
			l.routers[i] = nil
		}
		l.routers = append([]*RouterInfo{local.Clone()}, kept...)
	}
	for i, r := range l.routers {
		if local != nil && i == 0 {
			continue
		}
		if r.Addr == 0 {
			pending = append(pending, r)
		}
	}
	l.mtx.Unlock()

	if len(pending) == 0 {
		return
	}

	// Resolve outside the lock.
	resolved := make(map[*RouterInfo]uint32)
	for _, r := range pending {
		addr, err := l.resolveAddress(ctx, r.Address)
		if err != nil {
			log.Warnf("Could not get address for router %s (%s): %v",
				r.Address, r.Nickname, err)
			continue
		}
		resolved[r] = addr
	}

	// Apply results and drop the failures, preserving order.
	l.mtx.Lock()
	kept := l.routers[:0]
	for _, r := range l.routers {
		if r.Addr == 0 {
			addr, ok := resolved[r]
			if !ok {
				// Either resolution failed or the entry was not part of
				// this pass; an unresolved router stays only if it was
				// never attempted.
				if containsRouter(pending, r) {
					continue
				}
			} else {
				r.Addr = addr
			}
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(l.routers); i++ {
		l.routers[i] = nil
	}
	l.routers = kept
	l.mtx.Unlock()
}

// containsRouter reports whether the slice contains the exact router entry.
func containsRouter(routers []*RouterInfo, router *RouterInfo) bool {
	for _, r := range routers {
		if r == router {
			return true
		}
	}
	return false
}
