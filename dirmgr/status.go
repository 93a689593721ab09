// Copyright (c) 2024-2026 The Veilnet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dirmgr

import (
	"time"
)

// statusNegationMarker prefixes a running-status entry that asserts the
// named router is NOT running.
const statusNegationMarker = '!'

// RunningStatus is a decoded running-status document: a freshness-stamped,
// ordered list of nickname/hex-digest patterns asserting which routers are
// currently running.  An entry prefixed with '!' asserts the named router is
// not running.
type RunningStatus struct {
	// PublishedOn is the document's freshness timestamp.
	PublishedOn time.Time

	// Routers is the ordered list of name patterns.
	Routers []string
}

// UpdateFromRunningStatus applies a running-status snapshot to the list.
// For each known router the document entries are scanned in order and the
// first matching entry decides the router's running state; routers matched
// by no entry keep their previous state.
//
// A snapshot no newer than the list's directory publish time, or no newer
// than the previously applied snapshot, is ignored entirely; an older
// snapshot is never applied even partially.
func (l *RouterList) UpdateFromRunningStatus(status *RunningStatus) {
	if status == nil {
		return
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if !l.publishedOn.Before(status.PublishedOn) {
		log.Debugf("Ignoring running-status document published %v: list "+
			"snapshot is newer", status.PublishedOn)
		return
	}
	if !l.lastRunningUpdate.Before(status.PublishedOn) {
		log.Debugf("Ignoring running-status document published %v: already "+
			"applied a newer one", status.PublishedOn)
		return
	}

	for _, r := range l.routers {
		for _, name := range status.Routers {
			if len(name) > 0 && name[0] == statusNegationMarker {
				if r.NicknameMatches(name[1:]) {
					r.IsRunning = false
					break
				}
			} else if r.NicknameMatches(name) {
				r.IsRunning = true
				break
			}
		}
	}
	l.lastRunningUpdate = status.PublishedOn
}
