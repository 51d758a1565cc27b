// Package asynchook moves hook calls off the request path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{HitEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache := assetram.New(assetram.Options{Hooks: hooks})
//
// Events are dropped, not queued unboundedly, when the workers fall behind.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/assetram"
)

type Hooks struct {
	inner   assetram.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ assetram.Hooks = (*Hooks)(nil)

func New(inner assetram.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events after Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Hit(m assetram.Mode, k string)  { h.try(func() { h.inner.Hit(m, k) }) }
func (h *Hooks) Miss(m assetram.Mode, k string) { h.try(func() { h.inner.Miss(m, k) }) }
func (h *Hooks) Bypass(k string)                { h.try(func() { h.inner.Bypass(k) }) }
func (h *Hooks) Stored(k string, n int, total int64) {
	h.try(func() { h.inner.Stored(k, n, total) })
}
func (h *Hooks) ComputeError(m assetram.Mode, k string, err error) {
	h.try(func() { h.inner.ComputeError(m, k, err) })
}
func (h *Hooks) ExternalUnavailable(rev string) { h.try(func() { h.inner.ExternalUnavailable(rev) }) }
func (h *Hooks) SelfHeal(k, r string)           { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string)   { h.try(func() { h.inner.ProviderSetRejected(k) }) }
