package store

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"livedoc/internal/live"
)

// watcherSet tracks the cancellation handle of every subscription the store
// has opened. Watchers only ever leave the set at shutdown.
type watcherSet struct {
	next atomic.Uint64
	subs *xsync.MapOf[uint64, *live.Subscription]
}

func newWatcherSet() *watcherSet {
	return &watcherSet{subs: xsync.NewMapOf[uint64, *live.Subscription]()}
}

func (w *watcherSet) add(sub *live.Subscription) {
	w.subs.Store(w.next.Add(1), sub)
}

func (w *watcherSet) len() int {
	return w.subs.Size()
}

// cancelAll cancels every tracked subscription and clears the set. Cancel is
// idempotent, so a handle failing one call cannot break the sweep.
func (w *watcherSet) cancelAll() {
	w.subs.Range(func(key uint64, sub *live.Subscription) bool {
		sub.Cancel()
		return true
	})
	w.subs.Clear()
}
