// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dirmgr

import (
	"strings"
	"sync"
	"time"

	"github.com/veilnet/veild/exitpolicy"
)

const (
	// maxRouterAge is the age cutoff beyond which a non-directory router
	// descriptor is forgotten during pruning.  Directory servers are never
	// aged out.
	maxRouterAge = 2 * 24 * time.Hour
)

// RouterList is a concurrency-safe registry of the routers known to this
// node.  Entries are kept in insertion order except that the local node's
// own descriptor, when supplied to ResolveAll, is pinned to position 0.
type RouterList struct {
	// mtx guards every field below.  All mutating operations are
	// serialized by it and read operations take it so they observe a
	// consistent snapshot.
	mtx sync.Mutex

	// routers is the ordered set of known router descriptors.
	routers []*RouterInfo

	// publishedOn is the publish time of the freshest directory snapshot
	// folded into the list.
	publishedOn time.Time

	// lastRunningUpdate is the publish time of the most recently applied
	// running-status document.
	lastRunningUpdate time.Time

	// softwareVersions is the recommended-version list carried by the
	// freshest directory snapshot.
	softwareVersions []string

	// lookup resolves hostnames for ResolveAll.  It must be safe for
	// concurrent access.
	lookup LookupFunc

	// resolveTimeout bounds each individual hostname resolution.
	resolveTimeout time.Duration
}

// New constructs an empty router list.  The provided lookup function is used
// for hostname resolution and must be safe for concurrent access; a nil
// lookup selects a default based on the net package.  A non-positive timeout
// selects the default resolution timeout.
func New(lookup LookupFunc, resolveTimeout time.Duration) *RouterList {
	if lookup == nil {
		lookup = defaultLookup
	}
	if resolveTimeout <= 0 {
		resolveTimeout = defaultResolveTimeout
	}
	return &RouterList{
		lookup:         lookup,
		resolveTimeout: resolveTimeout,
	}
}

// MergeResult describes the outcome of merging one incoming descriptor into
// the router list.
type MergeResult int

const (
	// MergeInserted means the router was not previously known and was
	// appended to the list.
	MergeInserted MergeResult = iota

	// MergeReplacedOlder means a strictly older descriptor for the same
	// router was replaced in place.
	MergeReplacedOlder

	// MergeRejectedOlder means the incoming descriptor was not newer than
	// the registered one and was dropped.  The surviving entry still
	// adopts the incoming trusted-directory flag (when set) and the
	// incoming running state; see AddRouter.
	MergeRejectedOlder

	// MergeRejectedKeyMismatch means the incoming descriptor's nickname
	// collides with a registered router whose identity key differs, and
	// the incoming descriptor was dropped.
	MergeRejectedKeyMismatch
)

// String returns a human-readable form of the MergeResult.
func (m MergeResult) String() string {
	switch m {
	case MergeInserted:
		return "inserted"
	case MergeReplacedOlder:
		return "replaced older"
	case MergeRejectedOlder:
		return "rejected older"
	case MergeRejectedKeyMismatch:
		return "rejected key mismatch"
	}
	return "unknown"
}

// AddRouter merges one incoming descriptor into the list.  The list takes
// ownership of the descriptor regardless of the outcome; callers must not
// hold on to it after this call.
//
// The collision key is the case-insensitive nickname, not the identity
// digest.  This matches the deployed merge protocol and is a known weakness
// (a router can squat another's nickname and the fresher publish time wins);
// it is kept deliberately for compatibility.
//
// When an incoming descriptor loses to a same-key registered entry
// (MergeRejectedOlder), two of its fields still take effect on the survivor:
// a set trusted-directory flag is ORed in, because trust accumulates and is
// never silently dropped, and the incoming running state overwrites the old
// one, because the newer message carries the fresher liveness signal even
// when the fuller descriptor is discarded.  This cross-entry effect is
// required behavior, not an accident.
func (l *RouterList) AddRouter(router *RouterInfo) MergeResult {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.addRouter(router)
}

// addRouter implements AddRouter.
//
// This function MUST be called with the router list lock held.
func (l *RouterList) addRouter(router *RouterInfo) MergeResult {
	for i, r := range l.routers {
		if !strings.EqualFold(router.Nickname, r.Nickname) {
			continue
		}
		if !identityKeyEqual(router.IdentityKey, r.IdentityKey) {
			log.Warnf("Identity key mismatch for router '%s'",
				router.Nickname)
			return MergeRejectedKeyMismatch
		}
		if router.PublishedOn.After(r.PublishedOn) {
			log.Debugf("Replacing entry for router '%s'", router.Nickname)
			// Remember whether we trust this router as a dirserver.
			if r.IsTrustedDir {
				router.IsTrustedDir = true
			}
			// If the address hasn't changed there is no need to
			// re-resolve.
			if strings.EqualFold(r.Address, router.Address) {
				router.Addr = r.Addr
			}
			l.routers[i] = router
			return MergeReplacedOlder
		}
		log.Debugf("Skipping old entry for router '%s'", router.Nickname)
		if router.IsTrustedDir {
			r.IsTrustedDir = true
		}
		// Adopt the running status from the newer signal even though the
		// descriptor itself is discarded.
		r.IsRunning = router.IsRunning
		return MergeRejectedOlder
	}

	// A router with this nickname has not been seen before.  Add it to the
	// end of the list.
	l.routers = append(l.routers, router)
	return MergeInserted
}

// ReplaceFromDirectory folds a freshly decoded directory snapshot into the
// list, merging each descriptor and adopting the snapshot's publish time and
// recommended-version list.
func (l *RouterList) ReplaceFromDirectory(routers []*RouterInfo, publishedOn time.Time, versions []string) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	var inserted, replaced, rejected int
	for _, router := range routers {
		switch l.addRouter(router) {
		case MergeInserted:
			inserted++
		case MergeReplacedOlder:
			replaced++
		default:
			rejected++
		}
	}
	l.publishedOn = publishedOn
	l.softwareVersions = versions

	log.Infof("Directory merge: %d inserted, %d replaced, %d rejected "+
		"(%d total known)", inserted, replaced, rejected, len(l.routers))
}

// RouterByDigest returns the known router whose identity digest is digest,
// or nil when no such router is known.
func (l *RouterList) RouterByDigest(digest [DigestSize]byte) *RouterInfo {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.routerByDigest(digest)
}

// routerByDigest implements RouterByDigest.
//
// This function MUST be called with the router list lock held.
func (l *RouterList) routerByDigest(digest [DigestSize]byte) *RouterInfo {
	for _, r := range l.routers {
		if r.IdentityDigest == digest {
			return r
		}
	}
	return nil
}

// RouterByHexDigest returns the known router whose identity digest matches
// the given hex digest, which may carry a single leading '$' marker.
// Malformed input yields nil.
func (l *RouterList) RouterByHexDigest(hexDigest string) *RouterInfo {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.routerByHexDigest(hexDigest)
}

// routerByHexDigest implements RouterByHexDigest.
//
// This function MUST be called with the router list lock held.
func (l *RouterList) routerByHexDigest(hexDigest string) *RouterInfo {
	digest, ok := parseHexDigest(hexDigest)
	if !ok {
		return nil
	}
	return l.routerByDigest(digest)
}

// RouterByNickname returns the known router whose case-insensitive nickname
// or hex identity digest is name, or nil when no such router is known.  A
// name of the right length that decodes as hex is additionally tried as a
// digest during the same scan; whichever entry appears first in list order
// wins.
func (l *RouterList) RouterByNickname(name string) *RouterInfo {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.routerByNickname(name)
}

// routerByNickname implements RouterByNickname.
//
// This function MUST be called with the router list lock held.
func (l *RouterList) routerByNickname(name string) *RouterInfo {
	if name == "" {
		return nil
	}
	if name[0] == hexDigestMarker {
		return l.routerByHexDigest(name)
	}

	digest, maybeDigest := parseHexDigest(name)
	for _, r := range l.routers {
		if strings.EqualFold(r.Nickname, name) ||
			(maybeDigest && r.IdentityDigest == digest) {
			return r
		}
	}
	return nil
}

// RouterByAddrPort returns the known router with the given resolved address
// and OR port, or nil when no such router is known.
func (l *RouterList) RouterByAddrPort(addr uint32, orPort uint16) *RouterInfo {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	for _, r := range l.routers {
		if r.Addr == addr && r.ORPort == orPort {
			return r
		}
	}
	return nil
}

// MarkAsDown flags the router with the given identity digest as not running.
// It is a no-op when the router is unknown.
func (l *RouterList) MarkAsDown(digest [DigestSize]byte) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	r := l.routerByDigest(digest)
	if r == nil {
		return
	}
	log.Debugf("Marking %s as down", r.Nickname)
	r.IsRunning = false
}

// ClearTrustedDirs clears the trusted-directory flag on every known router.
// It is used when falling back to a seed list so stale trust does not
// survive the reload.
func (l *RouterList) ClearTrustedDirs() {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	for _, r := range l.routers {
		r.IsTrustedDir = false
	}
}

// RemoveOldRouters forgets routers whose descriptors are older than the age
// cutoff.  Directory servers are never removed regardless of age.
func (l *RouterList) RemoveOldRouters() {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	cutoff := time.Now().Add(-maxRouterAge)
	kept := l.routers[:0]
	for _, r := range l.routers {
		if r.PublishedOn.Before(cutoff) && r.DirPort == 0 {
			log.Infof("Forgetting obsolete descriptor for router %s",
				r.Nickname)
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(l.routers); i++ {
		l.routers[i] = nil
	}
	l.routers = kept
}

// Len returns the number of known routers.
func (l *RouterList) Len() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return len(l.routers)
}

// Routers returns the known routers in list order.  The returned slice is a
// copy, but the entries are shared with the registry and are mutated only by
// registry operations.
func (l *RouterList) Routers() []*RouterInfo {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	routers := make([]*RouterInfo, len(l.routers))
	copy(routers, l.routers)
	return routers
}

// RunningRouters returns every known router currently believed to be
// running, in list order.
func (l *RouterList) RunningRouters() []*RouterInfo {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.runningRouters()
}

// runningRouters implements RunningRouters.
//
// This function MUST be called with the router list lock held.
func (l *RouterList) runningRouters() []*RouterInfo {
	var running []*RouterInfo
	for _, r := range l.routers {
		if r.IsRunning {
			running = append(running, r)
		}
	}
	return running
}

// PublishedOn returns the publish time of the freshest directory snapshot
// folded into the list.
func (l *RouterList) PublishedOn() time.Time {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.publishedOn
}

// LastRunningUpdate returns the publish time of the most recently applied
// running-status document.
func (l *RouterList) LastRunningUpdate() time.Time {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.lastRunningUpdate
}

// SoftwareVersions returns the recommended-version list carried by the
// freshest directory snapshot.
func (l *RouterList) SoftwareVersions() []string {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	versions := make([]string, len(l.softwareVersions))
	copy(versions, l.softwareVersions)
	return versions
}

// AllRoutersReject reports whether every running router definitely rejects
// exit traffic to addr:port.  A single router that might accept it is enough
// to report false.
func (l *RouterList) AllRoutersReject(addr uint32, port uint16) bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	for _, r := range l.routers {
		if r.IsRunning &&
			exitpolicy.Evaluate(addr, port, r.ExitPolicy) != exitpolicy.Rejected {
			return false
		}
	}
	return true
}
