package assetram

import (
	"context"
	"sync"

	"github.com/unkn0wn-root/assetram/codec"
	"github.com/unkn0wn-root/assetram/internal/util"
)

// Cache memoizes computations by Key. The in-memory entries and the byte
// counter live as long as the Cache value; there is no eviction.
// A Cache is safe for concurrent use.
type Cache struct {
	ns     string
	store  Store
	codec  codec.Codec
	log    Logger
	hooks  Hooks
	lookup LookupFunc

	mem *memoryStore

	fallbackOnce sync.Once
}

func newCache(opts Options) *Cache {
	c := &Cache{
		ns:     coalesce(opts.Namespace, DefaultNamespace),
		store:  opts.Store,
		lookup: opts.LookupEnv,
		mem:    newMemoryStore(),
	}
	c.codec = coalesce[codec.Codec](opts.Codec, codec.JSON{})
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	return c
}

// Config returns the configuration currently in effect.
func (c *Cache) Config() Config { return LoadConfig(c.lookup) }

// Mode returns the backend the next call would use.
func (c *Cache) Mode() Mode {
	m, _ := c.resolve()
	return m
}

// Size is the cumulative byte length of every value inserted into the
// in-memory backend. It never decreases except through Reset.
func (c *Cache) Size() int64 { return c.mem.size.Load() }

// Len is the number of in-memory entries.
func (c *Cache) Len() int { return c.mem.len() }

// Reset drops all in-memory entries and zeroes Size. Meant for tests; the
// external store is not touched.
func (c *Cache) Reset() { c.mem.reset() }

func (c *Cache) resolve() (Mode, Config) {
	cfg := LoadConfig(c.lookup)
	mode := ResolveMode(cfg)
	if mode == ModeExternal && c.store == nil {
		c.hooks.ExternalUnavailable(cfg.Revision)
		c.fallbackOnce.Do(func() {
			c.log.Warn("revision set but no external store configured; using in-memory cache",
				Fields{"revision": cfg.Revision})
		})
		return ModeInMemory, cfg
	}
	return mode, cfg
}

func (c *Cache) storageKey(revision string, key Key) string {
	return util.Namespaced(c.ns, revision, key.storageParts())
}

func bypass[T any](c *Cache, key Key, compute func() (T, error)) (T, error) {
	c.hooks.Bypass(key.String())
	v, err := compute()
	if err != nil {
		c.hooks.ComputeError(ModeDisabled, key.String(), err)
	}
	return v, err
}

func fetchMemory[T any](c *Cache, key Key, compute func() (T, error)) (T, error) {
	ks := key.String()
	v, hit, err := c.mem.fetch(key, func() (any, error) { return compute() }, func(n int, total int64) {
		c.log.Info("Caching "+ks, Fields{
			"site":        key.Site.String(),
			"key":         ks,
			"bytes":       n,
			"total_bytes": total,
		})
		c.hooks.Miss(ModeInMemory, ks)
		c.hooks.Stored(ks, n, total)
	})
	if err != nil {
		c.hooks.ComputeError(ModeInMemory, ks, err)
		var zero T
		return zero, err
	}
	if hit {
		c.hooks.Hit(ModeInMemory, ks)
	}
	return as[T](v), nil
}

func fetchExternal[T any](ctx context.Context, c *Cache, revision string, key Key, compute func() (T, error)) (T, error) {
	var zero T
	sk := c.storageKey(revision, key)

	var (
		out      T
		computed bool
	)
	b, err := c.store.Fetch(ctx, sk, func() ([]byte, error) {
		c.log.Info("Caching "+sk, Fields{
			"site":     key.Site.String(),
			"key":      sk,
			"revision": revision,
		})
		c.hooks.Miss(ModeExternal, sk)

		v, err := compute()
		if err != nil {
			return nil, err
		}
		b, err := c.codec.Marshal(v)
		if err != nil {
			return nil, &CodecError{Key: sk, Err: err}
		}
		out, computed = v, true
		return b, nil
	})
	if err != nil {
		c.hooks.ComputeError(ModeExternal, sk, err)
		return zero, err
	}
	if computed {
		return out, nil
	}

	c.hooks.Hit(ModeExternal, sk)
	if err := c.codec.Unmarshal(b, &out); err != nil {
		return zero, &CodecError{Key: sk, Decode: true, Err: err}
	}
	return out, nil
}

// as converts a stored value back to T. A nil entry (e.g. a nil pointer or
// interface result) becomes T's zero value.
func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}
