// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/veilnet/veild/dirmgr"
	"github.com/veilnet/veild/internal/version"
)

// failingTestLookup is a hostname lookup that always fails so the tests
// never touch the network.  Seed addresses in the tests are IP literals,
// which resolve without consulting the lookup.
func failingTestLookup(_ context.Context, host string) ([]net.IP, error) {
	return nil, fmt.Errorf("lookup %q refused by test", host)
}

// newTestServer returns a server built on the provided config with network
// lookups disabled.  Missing config fields are defaulted.
func newTestServer(t *testing.T, cfg *config) *server {
	t.Helper()

	if cfg == nil {
		cfg = &config{}
	}
	if cfg.ResolveTimeout == 0 {
		cfg.ResolveTimeout = time.Second
	}
	if cfg.Authoritative && cfg.AppData == "" {
		cfg.AppData = t.TempDir()
	}

	s, err := newServer(cfg, failingTestLookup)
	if err != nil {
		t.Fatalf("newServer: unexpected error: %v", err)
	}
	if s.descStore != nil {
		t.Cleanup(func() {
			_ = s.descStore.Close()
		})
	}
	return s
}

// testDirectory returns a directory document that recommends the running
// software version and lists a single fresh router.
func testDirectory() *directory {
	router := &dirmgr.RouterInfo{
		Nickname:    "relay1",
		Address:     "192.0.2.50",
		ORPort:      9001,
		PublishedOn: time.Now(),
		IsRunning:   true,
		IdentityKey: []byte("relay1 identity key"),
	}
	for i := range router.IdentityDigest {
		router.IdentityDigest[i] = 0x42
	}

	return &directory{
		Routers:          []*dirmgr.RouterInfo{router},
		PublishedOn:      time.Now(),
		SoftwareVersions: []string{"0.0.1", version.String()},
		Raw:              "signed directory document",
	}
}

// TestNewServerSeeds ensures a new server is bootstrapped with the built-in
// seed dirservers and can pick one immediately.
func TestNewServerSeeds(t *testing.T) {
	s := newTestServer(t, nil)

	if s.routers.Len() != len(defaultDirServers) {
		t.Fatalf("router list has %d entries, want %d", s.routers.Len(),
			len(defaultDirServers))
	}
	if s.docCache == nil {
		t.Fatal("client-mode server has no document cache")
	}
	dirServer := s.pickDirServer(context.Background())
	if dirServer == nil {
		t.Fatal("pickDirServer: no dirserver from seeded list")
	}
	if !dirServer.IsTrustedDir || dirServer.DirPort == 0 {
		t.Fatalf("pickDirServer: %q is not a trusted dirserver",
			dirServer.Nickname)
	}
}

// TestAcceptDirectoryClient ensures accepting a directory in client mode
// folds the routers into the list and caches the raw document.
func TestAcceptDirectoryClient(t *testing.T) {
	s := newTestServer(t, nil)
	dir := testDirectory()

	if err := s.acceptDirectory(dir); err != nil {
		t.Fatalf("acceptDirectory: unexpected error: %v", err)
	}

	if router := s.routers.RouterByNickname("relay1"); router == nil {
		t.Fatal("directory router missing from the list")
	}
	if got := s.routers.PublishedOn(); !got.Equal(dir.PublishedOn) {
		t.Fatalf("list publish time %v, want %v", got, dir.PublishedOn)
	}
	raw, publishedOn, ok := s.docCache.CachedDirectory()
	if !ok || raw != dir.Raw {
		t.Fatalf("cached directory (%q, %v), want (%q, true)", raw, ok,
			dir.Raw)
	}
	if !publishedOn.Equal(dir.PublishedOn) {
		t.Fatalf("cached publish time %v, want %v", publishedOn,
			dir.PublishedOn)
	}
}

// TestAcceptDirectoryOutdated ensures a directory that does not recommend
// the running software version is rejected without touching the router list,
// and that the check can be disabled by configuration.
func TestAcceptDirectoryOutdated(t *testing.T) {
	s := newTestServer(t, nil)
	dir := testDirectory()
	dir.SoftwareVersions = []string{"99.0.0"}

	err := s.acceptDirectory(dir)
	if !errors.Is(err, errOutdatedSoftware) {
		t.Fatalf("acceptDirectory: got error %v, want %v", err,
			errOutdatedSoftware)
	}
	if router := s.routers.RouterByNickname("relay1"); router != nil {
		t.Fatal("rejected directory still reached the router list")
	}
	if !s.routers.PublishedOn().IsZero() {
		t.Fatal("rejected directory updated the list publish time")
	}

	// The same directory is accepted when the version check is disabled.
	s.cfg.IgnoreVersion = true
	if err := s.acceptDirectory(dir); err != nil {
		t.Fatalf("acceptDirectory with ignoreversion: unexpected error: %v",
			err)
	}
	if router := s.routers.RouterByNickname("relay1"); router == nil {
		t.Fatal("accepted directory router missing from the list")
	}
}

// TestAcceptDirectoryAuthoritative ensures accepting a directory in
// authoritative mode persists the raw descriptors.
func TestAcceptDirectoryAuthoritative(t *testing.T) {
	s := newTestServer(t, &config{Authoritative: true})
	if s.descStore == nil {
		t.Fatal("authoritative server has no descriptor store")
	}

	dir := testDirectory()
	rawDesc := []byte("router relay1 192.0.2.50 9001 0 0\n")
	dir.RawDescriptors = map[[dirmgr.DigestSize]byte][]byte{
		dir.Routers[0].IdentityDigest: rawDesc,
	}

	if err := s.acceptDirectory(dir); err != nil {
		t.Fatalf("acceptDirectory: unexpected error: %v", err)
	}

	got, err := s.descStore.Descriptor(dir.Routers[0].IdentityDigest)
	if err != nil {
		t.Fatalf("Descriptor: unexpected error: %v", err)
	}
	if !bytes.Equal(got, rawDesc) {
		t.Fatalf("stored descriptor %q, want %q", got, rawDesc)
	}
}

// TestPickDirServerReload ensures the seed dirservers are reloaded and the
// pick retried exactly once when no directory server is available.
func TestPickDirServerReload(t *testing.T) {
	path := writeSeedFile(t, `[{
		"nickname": "seed1",
		"address": "192.0.2.1",
		"orport": 9001,
		"dirport": 9030,
		"identitydigest": "0101010101010101010101010101010101010101"
	}]`)
	s := newTestServer(t, &config{RouterFile: path})

	// Clearing the trusted flags leaves nothing to pick from directly, so
	// the reload path must kick in and restore the seed dirserver.
	s.routers.ClearTrustedDirs()
	dirServer := s.pickDirServer(context.Background())
	if dirServer == nil {
		t.Fatal("pickDirServer: no dirserver after seed reload")
	}
	if dirServer.Nickname != "seed1" {
		t.Fatalf("pickDirServer: got %q, want %q", dirServer.Nickname,
			"seed1")
	}
	if dirServer.Addr == 0 {
		t.Fatal("pickDirServer: reloaded seed was not resolved")
	}

	// A failing reload yields no dirserver.
	s.routers.ClearTrustedDirs()
	s.cfg.RouterFile = path + ".missing"
	if dirServer := s.pickDirServer(context.Background()); dirServer != nil {
		t.Fatalf("pickDirServer: got %q from a failed reload",
			dirServer.Nickname)
	}
}

// TestVersionRecommended ensures the recommended-version check treats an
// empty list as permissive and otherwise requires an exact match.
func TestVersionRecommended(t *testing.T) {
	tests := []struct {
		name     string
		versions []string
		want     bool
	}{{
		name:     "empty list",
		versions: nil,
		want:     true,
	}, {
		name:     "running version listed",
		versions: []string{"0.0.1", version.String()},
		want:     true,
	}, {
		name:     "running version not listed",
		versions: []string{"0.0.1", "99.0.0"},
		want:     false,
	}}

	for _, test := range tests {
		if got := versionRecommended(test.versions); got != test.want {
			t.Errorf("%s: got %v, want %v", test.name, got, test.want)
		}
	}
}
