// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dirmgr

import (
	"bytes"
	"encoding/hex"
	"strings"
	"time"

	"github.com/veilnet/veild/exitpolicy"
)

const (
	// DigestSize is the length in bytes of a router identity digest.
	DigestSize = 20

	// HexDigestLen is the length of a router identity digest encoded in
	// hexadecimal.
	HexDigestLen = DigestSize * 2

	// hexDigestMarker is the optional prefix that marks a string as a hex
	// identity digest rather than a nickname.
	hexDigestMarker = '$'
)

// RouterInfo describes a single known relay router as learned from a decoded
// and signature-checked descriptor.  Instances handed to a RouterList are
// owned by it afterward and must not be retained by the producer.
type RouterInfo struct {
	// IdentityDigest is the fingerprint of the router's identity key.  It
	// is the intended unique key for a router, although uniqueness is not
	// enforced by the registry (see AddRouter).
	IdentityDigest [DigestSize]byte

	// Nickname is the router's human-chosen label.  Nicknames are compared
	// case-insensitively and are not guaranteed unique.
	Nickname string

	// Address is the hostname or IP literal exactly as published in the
	// descriptor.
	Address string

	// Addr is the resolved IPv4 address in host byte order.  Zero means
	// the address has not been resolved yet.
	Addr uint32

	// ORPort and DirPort are the router's transport ports.  A DirPort of
	// zero means the router does not act as a directory server.
	ORPort  uint16
	DirPort uint16

	// PublishedOn is the freshness timestamp the descriptor claims.
	PublishedOn time.Time

	// IsRunning tracks whether the router is currently believed reachable.
	IsRunning bool

	// IsTrustedDir marks the router as an authoritative directory source.
	// A trusted directory server always carries a nonzero DirPort.
	IsTrustedDir bool

	// ExitPolicy is the router's ordered exit policy.  Order is
	// semantically significant and preserved exactly as received.
	ExitPolicy []exitpolicy.Rule

	// IdentityKey and OnionKey are opaque key handles owned exclusively by
	// this descriptor.  The registry compares identity keys for equality
	// but never interprets them.
	IdentityKey []byte
	OnionKey    []byte

	// Platform is an informational string with no behavioral effect.
	Platform string
}

// Clone returns a deep copy of the router descriptor.
func (r *RouterInfo) Clone() *RouterInfo {
	c := *r
	if r.ExitPolicy != nil {
		c.ExitPolicy = make([]exitpolicy.Rule, len(r.ExitPolicy))
		copy(c.ExitPolicy, r.ExitPolicy)
	}
	if r.IdentityKey != nil {
		c.IdentityKey = append([]byte(nil), r.IdentityKey...)
	}
	if r.OnionKey != nil {
		c.OnionKey = append([]byte(nil), r.OnionKey...)
	}
	return &c
}

// parseHexDigest decodes an identity digest from its hex form, tolerating a
// single leading '$' marker.  It reports failure for anything that is not
// exactly HexDigestLen hex characters after the optional marker.
func parseHexDigest(hexDigest string) ([DigestSize]byte, bool) {
	var digest [DigestSize]byte
	if len(hexDigest) > 0 && hexDigest[0] == hexDigestMarker {
		hexDigest = hexDigest[1:]
	}
	if len(hexDigest) != HexDigestLen {
		return digest, false
	}
	decoded, err := hex.DecodeString(hexDigest)
	if err != nil {
		return digest, false
	}
	copy(digest[:], decoded)
	return digest, true
}

// HexDigestMatches reports whether the router's identity digest matches the
// given hex digest, which may carry a single leading '$' marker.  Malformed
// input never matches.
func (r *RouterInfo) HexDigestMatches(hexDigest string) bool {
	digest, ok := parseHexDigest(hexDigest)
	if !ok {
		return false
	}
	return digest == r.IdentityDigest
}

// NicknameMatches reports whether the pattern names this router, either as a
// case-insensitive nickname or as a hex identity digest.  A pattern without
// the '$' marker is tried as a nickname first and as a hex digest second.
func (r *RouterInfo) NicknameMatches(pattern string) bool {
	if len(pattern) > 0 && pattern[0] != hexDigestMarker &&
		strings.EqualFold(r.Nickname, pattern) {
		return true
	}
	return r.HexDigestMatches(pattern)
}

// identityKeyEqual reports whether two opaque identity key handles are the
// same key.
func identityKeyEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}
