// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/veilnet/veild/dirmgr"
)

// seedRouter is the JSON serialization of one seed dirserver entry in a
// router file.  The identity digest is hex encoded.
type seedRouter struct {
	Nickname       string `json:"nickname"`
	Address        string `json:"address"`
	ORPort         uint16 `json:"orport"`
	DirPort        uint16 `json:"dirport"`
	IdentityDigest string `json:"identitydigest"`
}

// routerInfo converts the seed entry into a trusted, running dirserver
// descriptor.  Entries without a directory port or with a malformed identity
// digest are rejected.
func (sr *seedRouter) routerInfo(publishedOn time.Time) (*dirmgr.RouterInfo, error) {
	if sr.Nickname == "" {
		return nil, fmt.Errorf("seed entry is missing a nickname")
	}
	if sr.Address == "" {
		return nil, fmt.Errorf("seed router %q is missing an address",
			sr.Nickname)
	}
	if sr.DirPort == 0 {
		return nil, fmt.Errorf("seed router %q has no directory port",
			sr.Nickname)
	}
	rawDigest, err := hex.DecodeString(sr.IdentityDigest)
	if err != nil || len(rawDigest) != dirmgr.DigestSize {
		return nil, fmt.Errorf("seed router %q has a malformed identity "+
			"digest %q", sr.Nickname, sr.IdentityDigest)
	}

	router := &dirmgr.RouterInfo{
		Nickname:     sr.Nickname,
		Address:      sr.Address,
		ORPort:       sr.ORPort,
		DirPort:      sr.DirPort,
		PublishedOn:  publishedOn,
		IsRunning:    true,
		IsTrustedDir: true,
	}
	copy(router.IdentityDigest[:], rawDigest)
	return router, nil
}

// loadSeedRouters returns the seed dirservers from the given router file, or
// the built-in defaults when the path is empty.  The returned routers are
// marked trusted and running.
func loadSeedRouters(path string) ([]*dirmgr.RouterInfo, error) {
	seeds := defaultDirServers
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read router file: %w", err)
		}
		seeds = nil
		if err := json.Unmarshal(raw, &seeds); err != nil {
			return nil, fmt.Errorf("failed to parse router file %q: %w", path,
				err)
		}
		if len(seeds) == 0 {
			return nil, fmt.Errorf("router file %q lists no seed routers",
				path)
		}
	}

	publishedOn := time.Now()
	routers := make([]*dirmgr.RouterInfo, 0, len(seeds))
	for i := range seeds {
		router, err := seeds[i].routerInfo(publishedOn)
		if err != nil {
			return nil, err
		}
		routers = append(routers, router)
	}
	return routers, nil
}
