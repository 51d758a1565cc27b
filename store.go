package assetram

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/unkn0wn-root/assetram/internal/wire"
	pr "github.com/unkn0wn-root/assetram/provider"
)

// Store is the external keyed cache used when a revision is configured.
//
// Fetch returns the bytes stored under key, or runs compute, persists its
// result and returns it. Implementations own the at-most-once guarantee for
// their consistency domain; errors from compute must be returned unchanged.
type Store interface {
	Fetch(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error)

func (f StoreFunc) Fetch(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error) {
	return f(ctx, key, compute)
}

// CostFunc returns the provider cost of a stored frame. Default: len(frame).
type CostFunc func(key string, frame []byte) int64

// ProviderStoreOptions configure NewProviderStore. Only Provider is required.
type ProviderStoreOptions struct {
	Provider pr.Provider
	TTL      time.Duration // 0 => no expiry (revision namespacing retires old entries)
	Cost     CostFunc
	Logger   Logger
	Hooks    Hooks
	Now      func() time.Time
}

// ProviderStore implements Store on top of a byte provider (redis, ristretto,
// bigcache, bolt). Values are wire-framed; unreadable frames are deleted and
// recomputed. Concurrent misses within this process share one compute.
type ProviderStore struct {
	provider pr.Provider
	ttl      time.Duration
	cost     CostFunc
	log      Logger
	hooks    Hooks
	now      func() time.Time
	group    singleflight.Group
}

var _ Store = (*ProviderStore)(nil)

func NewProviderStore(opts ProviderStoreOptions) (*ProviderStore, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("assetram: provider is required")
	}
	if opts.TTL < 0 {
		return nil, fmt.Errorf("assetram: negative ttl %s", opts.TTL)
	}
	s := &ProviderStore{
		provider: opts.Provider,
		ttl:      opts.TTL,
		cost:     opts.Cost,
		log:      coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:    coalesce[Hooks](opts.Hooks, NopHooks{}),
		now:      opts.Now,
	}
	if s.cost == nil {
		s.cost = func(_ string, frame []byte) int64 { return int64(len(frame)) }
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *ProviderStore) Fetch(ctx context.Context, key string, compute func() ([]byte, error)) ([]byte, error) {
	v, err, _ := s.group.Do(key, func() (any, error) {
		if payload, ok, err := s.get(ctx, key); err != nil || ok {
			return payload, err
		}

		payload, err := compute()
		if err != nil {
			return nil, err
		}

		frame := wire.Encode(s.now(), payload)
		ok, err := s.provider.Set(ctx, key, frame, s.cost(key, frame), s.ttl)
		if err != nil {
			return nil, &StoreError{Op: "set", Key: key, Err: err}
		}
		if !ok {
			s.hooks.ProviderSetRejected(key)
			s.log.Debug("provider rejected set (pressure)", Fields{"key": key})
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	b, _ := v.([]byte)
	return b, nil
}

func (s *ProviderStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := s.provider.Get(ctx, key)
	if err != nil {
		return nil, false, &StoreError{Op: "get", Key: key, Err: err}
	}
	if !ok {
		return nil, false, nil
	}
	storedAt, payload, err := wire.Decode(raw)
	if err != nil {
		_ = s.provider.Del(ctx, key) // self-heal corrupt
		s.hooks.SelfHeal(key, "corrupt")
		s.log.Warn("dropped unreadable entry", Fields{"key": key, "err": err})
		return nil, false, nil
	}
	s.log.Debug("store hit", Fields{"key": key, "age": s.now().Sub(storedAt)})
	return payload, true, nil
}

// Close releases the provider.
func (s *ProviderStore) Close(ctx context.Context) error {
	return s.provider.Close(ctx)
}
