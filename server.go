// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/veilnet/veild/dircache"
	"github.com/veilnet/veild/dirmgr"
	"github.com/veilnet/veild/internal/version"
)

const (
	// pruneInterval is how often the maintenance handler removes descriptors
	// that are too old from the router list.
	pruneInterval = 10 * time.Minute

	// documentCacheLimit is the maximum number of raw directory documents a
	// client keeps cached in memory.
	documentCacheLimit = 8
)

// errOutdatedSoftware describes the condition where a fetched directory does
// not list the running software version among its recommended versions.
var errOutdatedSoftware = errors.New("running software version is not " +
	"recommended by the directory")

// directory is a fully decoded directory document along with the raw
// payloads needed for the mode-dependent store side effects.  Decoding and
// signature verification happen upstream.
type directory struct {
	// Routers are the decoded router descriptors the directory lists.
	Routers []*dirmgr.RouterInfo

	// PublishedOn is when the directory document was published.
	PublishedOn time.Time

	// SoftwareVersions are the software versions the directory recommends.
	SoftwareVersions []string

	// Raw is the raw directory document.
	Raw string

	// RawDescriptors are the raw descriptor documents keyed by the identity
	// digest of the router that published them.  It may be nil when the
	// caller did not retain them.
	RawDescriptors map[[dirmgr.DigestSize]byte][]byte
}

// server houses the router list along with the mode-dependent directory
// stores and the goroutines that maintain them.
type server struct {
	cfg       *config
	routers   *dirmgr.RouterList
	descStore *dircache.Store
	docCache  *dircache.DocumentCache
	wg        sync.WaitGroup
}

// newServer returns a new veild server bootstrapped with the configured seed
// dirservers.  A nil lookup selects the default resolver.
func newServer(cfg *config, lookup dirmgr.LookupFunc) (*server, error) {
	s := server{
		cfg:     cfg,
		routers: dirmgr.New(lookup, cfg.ResolveTimeout),
	}

	if cfg.Authoritative {
		store, err := dircache.OpenStore(cfg.AppData)
		if err != nil {
			return nil, err
		}
		s.descStore = store
	} else {
		s.docCache = dircache.NewDocumentCache(documentCacheLimit)
	}

	seeds, err := loadSeedRouters(cfg.RouterFile)
	if err != nil {
		if s.descStore != nil {
			s.descStore.Close()
		}
		return nil, err
	}
	for _, router := range seeds {
		s.routers.AddRouter(router)
	}
	srvrLog.Infof("Loaded %d seed dirservers", len(seeds))

	return &s, nil
}

// versionRecommended returns whether the running software version appears in
// the directory's recommended version list.  An empty list recommends
// nothing and is treated as permissive.
func versionRecommended(versions []string) bool {
	if len(versions) == 0 {
		return true
	}
	running := version.String()
	for _, v := range versions {
		if v == running {
			return true
		}
	}
	return false
}

// acceptDirectory folds a freshly fetched directory into the router list and
// applies the mode-dependent store side effects: an authoritative server
// persists the raw descriptors while a client remembers the raw directory
// document.  It errors without touching the router list when the directory
// does not recommend the running software version, unless that check is
// disabled by configuration.
func (s *server) acceptDirectory(dir *directory) error {
	if !s.cfg.IgnoreVersion && !versionRecommended(dir.SoftwareVersions) {
		srvrLog.Errorf("Version %s is not recommended by the directory "+
			"published on %v -- please upgrade (or use --ignoreversion)",
			version.String(), dir.PublishedOn)
		return errOutdatedSoftware
	}

	s.routers.ReplaceFromDirectory(dir.Routers, dir.PublishedOn,
		dir.SoftwareVersions)

	if s.descStore != nil {
		for digest, raw := range dir.RawDescriptors {
			if err := s.descStore.PutDescriptor(digest, raw); err != nil {
				return fmt.Errorf("failed to persist descriptor: %w", err)
			}
		}
		return nil
	}

	s.docCache.SetCachedDirectory(dir.Raw, dir.PublishedOn)
	return nil
}

// pickDirServer returns a directory server to fetch from.  When the router
// list has none to offer even after its own mark-all-running fallback, the
// trusted flags are cleared, the seed dirservers are reloaded and resolved,
// and the pick is retried exactly once more.  It returns nil when the retry
// comes up empty as well.
func (s *server) pickDirServer(ctx context.Context) *dirmgr.RouterInfo {
	if dirServer := s.routers.PickDirServer(); dirServer != nil {
		return dirServer
	}

	srvrLog.Warnf("No directory servers available -- reloading seed " +
		"dirservers")
	s.routers.ClearTrustedDirs()
	seeds, err := loadSeedRouters(s.cfg.RouterFile)
	if err != nil {
		srvrLog.Errorf("Failed to reload seed dirservers: %v", err)
		return nil
	}
	for _, router := range seeds {
		s.routers.AddRouter(router)
	}
	s.routers.ResolveAll(ctx, nil)

	return s.routers.PickDirServer()
}

// maintenanceHandler periodically removes descriptors that are too old from
// the router list.  It must be run as a goroutine.
func (s *server) maintenanceHandler(ctx context.Context) {
	pruneTicker := time.NewTicker(pruneInterval)
	defer pruneTicker.Stop()

out:
	for {
		select {
		case <-pruneTicker.C:
			s.routers.RemoveOldRouters()

		case <-ctx.Done():
			break out
		}
	}

	s.wg.Done()
	srvrLog.Trace("Maintenance handler done")
}

// Run starts the server and blocks until the provided context is cancelled.
// It gracefully releases the directory stores on the way out.
func (s *server) Run(ctx context.Context) {
	s.wg.Add(1)
	go s.maintenanceHandler(ctx)

	// Resolve the seed dirservers so the first pick has addresses to work
	// with.
	s.routers.ResolveAll(ctx, nil)

	<-ctx.Done()
	srvrLog.Warnf("Server shutting down")
	s.wg.Wait()

	if s.descStore != nil {
		srvrLog.Infof("Gracefully shutting down the descriptor store...")
		if err := s.descStore.Close(); err != nil {
			srvrLog.Errorf("Failed to close descriptor store: %v", err)
		}
	}
}
