// evictor.go houses the eviction loop for Reader.  Every EvictInterval it
// scans the map and removes:
//
//   - organizations idle longer than IdleTTL
//   - least-recently-read organizations when the map exceeds MaxEntries
//
// Each eviction updates the Prometheus gauge and counter.
package livesite

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/metrics"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

func (r *Reader) evictLoop(t *time.Ticker) {
	defer t.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-t.C:
			r.evict(time.Now())
		}
	}
}

// evict runs one idle pass and one LRU pass.
func (r *Reader) evict(now time.Time) {
	type kv struct {
		org site.OrgID
		at  int64
	}
	var alive []kv

	r.m.Range(func(key, value any) bool {
		org := key.(site.OrgID)
		seen := atomic.LoadInt64(&value.(*entry).lastSeen)
		idle := now.Sub(time.Unix(0, seen))
		if r.opts.IdleTTL > 0 && idle > r.opts.IdleTTL {
			r.drop(org)
			r.log.Debugw("live site evicted", "org", org, "idle", idle.Truncate(time.Second))
			return true
		}
		alive = append(alive, kv{org: org, at: seen})
		return true
	})

	if r.opts.MaxEntries <= 0 || len(alive) <= r.opts.MaxEntries {
		return
	}
	sort.Slice(alive, func(i, j int) bool { return alive[i].at < alive[j].at })
	for _, e := range alive[:len(alive)-r.opts.MaxEntries] {
		r.drop(e.org)
		r.log.Debugw("live site evicted (LRU pressure)", "org", e.org)
	}
}

func (r *Reader) drop(org site.OrgID) {
	if _, ok := r.m.LoadAndDelete(org); ok {
		metrics.LiveSitesCached.Dec()
		metrics.LiveSiteEvictTotal.Inc()
	}
}

// Len reports how many organizations are cached.
func (r *Reader) Len() int {
	n := 0
	r.m.Range(func(any, any) bool { n++; return true })
	return n
}
