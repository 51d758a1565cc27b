package assetram

import (
	"context"
	"sync/atomic"

	"github.com/unkn0wn-root/assetram/codec"
)

// Options tune a Cache. All fields are optional.
type Options struct {
	Namespace string      // external key prefix; "" => "asset_ram"
	Store     Store       // external backend; nil => in-memory even when a revision is set
	Codec     codec.Codec // external value encoding; nil => codec.JSON{}
	Logger    Logger      // if nil, NopLogger is used
	Hooks     Hooks       // if nil, NopHooks is used
	LookupEnv LookupFunc  // nil => os.LookupEnv
}

func New(opts Options) *Cache {
	return newCache(opts)
}

var defaultCache atomic.Pointer[Cache]

// Default returns the process-wide cache used by Do, creating it with zero
// Options on first use. Configure it once at startup with SetDefault.
func Default() *Cache {
	if c := defaultCache.Load(); c != nil {
		return c
	}
	defaultCache.CompareAndSwap(nil, New(Options{}))
	return defaultCache.Load()
}

// SetDefault replaces the process-wide cache. Entries of the previous cache
// are not carried over.
func SetDefault(c *Cache) {
	defaultCache.Store(c)
}

// Do memoizes compute on the default cache, keyed by the source position of
// the Do call and discriminator (nil or "" for none).
//
//	tag, err := assetram.Do(ctx, site.Name, func() (string, error) {
//	    return stylesheetTag("themes/" + site.Name)
//	})
//
// Each textual call of Do is its own cache entry, so do not route unrelated
// computations through one shared helper that calls Do; use Memo with a
// Caller site or Fetch with an explicit key instead.
func Do[T any](ctx context.Context, discriminator any, compute func() (T, error)) (T, error) {
	return Fetch(ctx, Default(), BuildKey(callerSite(0), discriminator), compute)
}

// Memo is Do on an explicit cache.
func Memo[T any](ctx context.Context, c *Cache, discriminator any, compute func() (T, error)) (T, error) {
	return Fetch(ctx, c, BuildKey(callerSite(0), discriminator), compute)
}

// Fetch returns the value cached under key, or runs compute and caches it.
//
// The backend is chosen per call from the environment: with ASSET_RAM_DISABLE
// compute always runs; with ASSET_RAM_REVISION (and no ASSET_RAM_HASH_ONLY)
// the external Store is used under "<namespace>/<revision>/<key parts>";
// otherwise the in-memory map.
//
// compute runs at most once per key in memory, even under concurrent misses.
// Its errors are returned unchanged and never cached; a later call retries.
// The same key must always be used with the same type T.
func Fetch[T any](ctx context.Context, c *Cache, key Key, compute func() (T, error)) (T, error) {
	mode, cfg := c.resolve()
	switch mode {
	case ModeDisabled:
		return bypass(c, key, compute)
	case ModeExternal:
		return fetchExternal(ctx, c, cfg.Revision, key, compute)
	default:
		return fetchMemory(c, key, compute)
	}
}
