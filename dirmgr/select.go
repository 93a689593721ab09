// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dirmgr

import (
	"github.com/decred/dcrd/crypto/rand"
)

// chooseRouter returns a uniformly random element of the slice, or nil when
// it is empty.
func chooseRouter(routers []*RouterInfo) *RouterInfo {
	if len(routers) == 0 {
		return nil
	}
	return routers[rand.IntN(len(routers))]
}

// PickDirServer picks a random running trusted directory server from the
// list.  When every trusted directory server is marked down, all of them are
// marked running again so the whole set is retried, and one is picked from
// that set.  It returns nil only when no trusted directory servers are known
// at all; the caller owns the reload-from-seed retry that follows.
func (l *RouterList) PickDirServer() *RouterInfo {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	// Find all the running dirservers we know about.
	var sl []*RouterInfo
	for _, r := range l.routers {
		if r.IsRunning && r.IsTrustedDir {
			// A trusted dirserver always carries a dirport.
			if r.DirPort == 0 {
				log.Errorf("Trusted dirserver %s has no dirport; skipping",
					r.Nickname)
				continue
			}
			sl = append(sl, r)
		}
	}
	if router := chooseRouter(sl); router != nil {
		return router
	}
	log.Infof("No dirservers are reachable. Trying them all again.")

	// No running dirservers found.  Mark them all as up so the list is
	// cycled through again.
	sl = sl[:0]
	for _, r := range l.routers {
		if r.IsTrustedDir {
			if r.DirPort == 0 {
				log.Errorf("Trusted dirserver %s has no dirport; skipping",
					r.Nickname)
				continue
			}
			r.IsRunning = true
			sl = append(sl, r)
		}
	}
	router := chooseRouter(sl)
	if router == nil {
		log.Warnf("No dirservers in directory.")
	}
	return router
}

// AllDirServersDown reports whether no trusted directory server is currently
// believed to be running.  An empty list counts as all down.
func (l *RouterList) AllDirServersDown() bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	for _, r := range l.routers {
		if r.IsRunning && r.IsTrustedDir {
			return false
		}
	}
	return true
}

// routersByNames expands a list of nickname/hex-digest patterns into the
// known routers they name.  Only routers currently believed running are
// included; named routers that are known but down are skipped with a
// warning.
//
// This function MUST be called with the router list lock held.
func (l *RouterList) routersByNames(names []string) []*RouterInfo {
	var routers []*RouterInfo
	for _, name := range names {
		router := l.routerByNickname(name)
		switch {
		case router == nil:
			log.Debugf("Name list includes '%s' which isn't a known router",
				name)
		case !router.IsRunning:
			log.Warnf("Name list includes '%s' which is known but down",
				name)
		default:
			routers = append(routers, router)
		}
	}
	return routers
}

// subtractRouters returns the members of sl that are not in the excluded
// set.  Identity is pointer identity; entries come from this registry.
func subtractRouters(sl []*RouterInfo, excluded map[*RouterInfo]struct{}) []*RouterInfo {
	kept := sl[:0]
	for _, r := range sl {
		if _, ok := excluded[r]; !ok {
			kept = append(kept, r)
		}
	}
	return kept
}

// ChooseRandomRouter returns a uniformly random running router.  When any
// router named in preferred is available it is picked from those; routers
// named in excluded, or present in excludedRouters, are never picked even
// when they are the only routers available.  It returns nil when no
// candidates remain.
func (l *RouterList) ChooseRandomRouter(preferred, excluded []string, excludedRouters []*RouterInfo) *RouterInfo {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	excludedSet := make(map[*RouterInfo]struct{})
	for _, r := range l.routersByNames(excluded) {
		excludedSet[r] = struct{}{}
	}
	for _, r := range excludedRouters {
		excludedSet[r] = struct{}{}
	}

	// Try the preferred nodes first.
	sl := subtractRouters(l.routersByNames(preferred), excludedSet)
	if choice := chooseRouter(sl); choice != nil {
		return choice
	}

	sl = subtractRouters(l.runningRouters(), excludedSet)
	choice := chooseRouter(sl)
	if choice == nil {
		log.Warnf("No available routers when trying to choose one. Failing.")
	}
	return choice
}
