// internal/livesite/reader.go
//
// Live Site Reader: serves the current snapshot of a tenant to visitors.
//
// Context
// -------
// The live site is the highest-version snapshot in the ledger.  Reads are
// hot, so the Reader keeps one entry per organization in a sync.Map,
// collapses concurrent misses with singleflight, and lets a background
// evictor drop entries on idle TTL or LRU pressure.
//
// Entries hold the encoded snapshot, never a decoded value.  Every read
// decodes a fresh copy, so no caller can mutate what another caller sees.
// Organizations that never published (or whose latest entry is an
// unpublish marker) are cached too, as a negative entry.
//
// The coordinator calls Invalidate after every commit.  A generation
// counter stops an in-flight load that started before the invalidation
// from storing its stale result.  MaxAge bounds staleness for publishes
// made by other processes.
//
// Notes
// -----
// • Draft state is never consulted.
// • Oxford commas, two spaces after periods.
package livesite

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Rigby35X/barkhaus-dash-sub003/internal/apperr"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/ledger"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/metrics"
	"github.com/Rigby35X/barkhaus-dash-sub003/internal/site"
)

// ErrNotPublished is returned when there is nothing to serve.
var ErrNotPublished = ledger.ErrNotPublished

// Source yields the latest persisted snapshot.  *ledger.Ledger satisfies
// it.
type Source interface {
	Latest(ctx context.Context, org site.OrgID) (site.Snapshot, error)
}

// Options sizes the cache.  Zero values disable the matching limit.
type Options struct {
	IdleTTL       time.Duration
	MaxEntries    int
	EvictInterval time.Duration
	MaxAge        time.Duration
}

type entry struct {
	raw      []byte // nil when not published
	loadedAt int64  // UnixNano
	lastSeen int64  // UnixNano
}

// Reader is safe for concurrent use.
type Reader struct {
	src  Source
	opts Options
	log  *zap.SugaredLogger

	sfg  singleflight.Group
	m    sync.Map // site.OrgID → *entry
	stop chan struct{}
	once sync.Once

	// mu orders generation bumps against stores, so a load that raced an
	// Invalidate can never land after it.
	mu  sync.Mutex
	gen uint64
}

// New constructs a Reader and starts the evictor when EvictInterval > 0.
func New(src Source, opts Options, log *zap.SugaredLogger) *Reader {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r := &Reader{src: src, opts: opts, log: log, stop: make(chan struct{})}
	if opts.EvictInterval > 0 {
		go r.evictLoop(time.NewTicker(opts.EvictInterval))
	}
	return r
}

// Close stops the evictor.
func (r *Reader) Close() {
	r.once.Do(func() { close(r.stop) })
}

// GetLiveSite returns the current snapshot of org, or ErrNotPublished.
func (r *Reader) GetLiveSite(ctx context.Context, org site.OrgID) (*site.Snapshot, error) {
	if org.Empty() {
		return nil, apperr.New(apperr.KindValidation, "livesite.get", "org id is required")
	}

	if ent, ok := r.fresh(org); ok {
		metrics.LiveSiteCacheHits.Inc()
		return decode(ent)
	}
	metrics.LiveSiteCacheMisses.Inc()

	v, err, _ := r.sfg.Do(org.String(), func() (any, error) {
		if ent, ok := r.fresh(org); ok {
			return ent, nil
		}
		return r.load(context.WithoutCancel(ctx), org)
	})
	if err != nil {
		return nil, err
	}
	return decode(v.(*entry))
}

// Invalidate drops org's entry so the next read goes to the ledger.
func (r *Reader) Invalidate(org site.OrgID) {
	r.mu.Lock()
	r.gen++
	_, ok := r.m.LoadAndDelete(org)
	r.mu.Unlock()

	r.sfg.Forget(org.String())
	if ok {
		metrics.LiveSitesCached.Dec()
	}
}

// fresh returns a cached entry that is within MaxAge, touching lastSeen.
func (r *Reader) fresh(org site.OrgID) (*entry, bool) {
	v, ok := r.m.Load(org)
	if !ok {
		return nil, false
	}
	ent := v.(*entry)
	now := time.Now().UnixNano()
	if r.opts.MaxAge > 0 && time.Duration(now-ent.loadedAt) > r.opts.MaxAge {
		return nil, false
	}
	atomic.StoreInt64(&ent.lastSeen, now)
	return ent, true
}

func (r *Reader) load(ctx context.Context, org site.OrgID) (*entry, error) {
	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	snap, err := r.src.Latest(ctx, org)
	var raw []byte
	switch {
	case errors.Is(err, ledger.ErrNotPublished):
	case err != nil:
		return nil, err
	case !snap.Live():
		r.log.Debugw("latest snapshot is an unpublish marker", "org", org, "version", snap.Version)
	default:
		if raw, err = json.Marshal(snap); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "livesite.load", err)
		}
	}

	now := time.Now().UnixNano()
	ent := &entry{raw: raw, loadedAt: now, lastSeen: now}
	r.mu.Lock()
	stored, loaded := false, false
	if r.gen == gen {
		_, loaded = r.m.Swap(org, ent)
		stored = true
	}
	r.mu.Unlock()
	if stored && !loaded {
		metrics.LiveSitesCached.Inc()
	}
	return ent, nil
}

func decode(ent *entry) (*site.Snapshot, error) {
	if ent.raw == nil {
		return nil, ErrNotPublished
	}
	var s site.Snapshot
	if err := json.Unmarshal(ent.raw, &s); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "livesite.decode", err)
	}
	return &s, nil
}
