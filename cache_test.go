package assetram

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/assetram/codec"
	"github.com/unkn0wn-root/assetram/internal/wire"
	pr "github.com/unkn0wn-root/assetram/provider"
)

type memProvider struct {
	mu     sync.Mutex
	m      map[string][]byte
	getErr error
	setErr error
	reject bool
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string][]byte)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, false, p.getErr
	}
	v, ok := p.m[key]
	return v, ok, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setErr != nil {
		return false, p.setErr
	}
	if p.reject {
		return false, nil
	}
	p.m[key] = value
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

func (p *memProvider) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.m))
	for k := range p.m {
		out = append(out, k)
	}
	return out
}

// env is a mutable environment for LookupEnv.
type env struct {
	mu sync.Mutex
	m  map[string]string
}

func newEnv(kv ...string) *env {
	e := &env{m: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		e.m[kv[i]] = kv[i+1]
	}
	return e
}

func (e *env) set(k, v string) { e.mu.Lock(); e.m[k] = v; e.mu.Unlock() }
func (e *env) unset(k string)  { e.mu.Lock(); delete(e.m, k); e.mu.Unlock() }

func (e *env) lookup(k string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.m[k]
	return v, ok
}

type recLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	last   Fields
	debugs []Fields
}

func (l *recLogger) Debug(_ string, f Fields) {
	l.mu.Lock()
	l.debugs = append(l.debugs, f)
	l.mu.Unlock()
}
func (l *recLogger) Info(msg string, f Fields) {
	l.mu.Lock()
	l.infos = append(l.infos, msg)
	l.last = f
	l.mu.Unlock()
}
func (l *recLogger) Warn(msg string, _ Fields) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
func (l *recLogger) Error(string, Fields) {}

func (l *recLogger) infoCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.infos)
}

type recHooks struct {
	NopHooks
	mu          sync.Mutex
	hits        int
	misses      int
	bypass      int
	unavailable int
	selfHeal    int
	rejected    int
}

func (h *recHooks) Hit(Mode, string)           { h.mu.Lock(); h.hits++; h.mu.Unlock() }
func (h *recHooks) Miss(Mode, string)          { h.mu.Lock(); h.misses++; h.mu.Unlock() }
func (h *recHooks) Bypass(string)              { h.mu.Lock(); h.bypass++; h.mu.Unlock() }
func (h *recHooks) ExternalUnavailable(string) { h.mu.Lock(); h.unavailable++; h.mu.Unlock() }
func (h *recHooks) SelfHeal(string, string)    { h.mu.Lock(); h.selfHeal++; h.mu.Unlock() }
func (h *recHooks) ProviderSetRejected(string) { h.mu.Lock(); h.rejected++; h.mu.Unlock() }

func newTestCache(t *testing.T, e *env, optsOpt func(*Options)) (*Cache, *recLogger) {
	t.Helper()
	log := &recLogger{}
	opts := Options{Logger: log, LookupEnv: e.lookup}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	return New(opts), log
}

// cachedCounter calls Memo from one source location, so every call shares a site.
func cachedCounter(c *Cache, counter *atomic.Int64, key any) (int64, error) {
	return Memo(context.Background(), c, key, func() (int64, error) {
		return counter.Add(1), nil
	})
}

// ==============================
// In-memory backend
// ==============================

func TestCachesResult(t *testing.T) {
	c, log := newTestCache(t, newEnv(), nil)
	var counter atomic.Int64

	r1, err := cachedCounter(c, &counter, nil)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := cachedCounter(c, &counter, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r1 != 1 || r2 != 1 {
		t.Fatalf("got %d, %d; want 1, 1", r1, r2)
	}
	if n := log.infoCount(); n != 1 {
		t.Fatalf("expected one notice, got %d", n)
	}
}

func TestFetchExplicitKey(t *testing.T) {
	c, _ := newTestCache(t, newEnv(), nil)
	key := BuildKey(Site("siteA", 10), nil)
	calls := 0
	for range 2 {
		v, err := Fetch(context.Background(), c, key, func() (int, error) {
			calls++
			return 42, nil
		})
		if err != nil || v != 42 {
			t.Fatalf("Fetch: %d %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("compute called %d times, want 1", calls)
	}
}

func TestDiscriminatorSeparatesEntries(t *testing.T) {
	c, _ := newTestCache(t, newEnv(), nil)
	var counter atomic.Int64

	foo, _ := cachedCounter(c, &counter, "foo")
	bar, _ := cachedCounter(c, &counter, "bar")
	if foo != 1 || bar != 2 {
		t.Fatalf("got foo=%d bar=%d; want 1, 2", foo, bar)
	}
	again, _ := cachedCounter(c, &counter, "foo")
	if again != 1 {
		t.Fatalf("foo should still be 1, got %d", again)
	}
}

func TestEmptyDiscriminatorEqualsNone(t *testing.T) {
	c, _ := newTestCache(t, newEnv(), nil)
	var counter atomic.Int64

	a, _ := cachedCounter(c, &counter, nil)
	b, _ := cachedCounter(c, &counter, "")
	if a != 1 || b != 1 {
		t.Fatalf("nil and \"\" should share an entry: %d, %d", a, b)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}

func TestDistinctCallSitesDoNotCollide(t *testing.T) {
	c, _ := newTestCache(t, newEnv(), nil)
	ctx := context.Background()

	a, _ := Memo(ctx, c, nil, func() (string, error) { return "first", nil })
	b, _ := Memo(ctx, c, nil, func() (string, error) { return "second", nil })
	if a != "first" || b != "second" {
		t.Fatalf("got %q, %q", a, b)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
}

func TestSizeAccounting(t *testing.T) {
	c, _ := newTestCache(t, newEnv(), nil)
	ctx := context.Background()
	kHello := BuildKey(Site("a.go", 1), nil)
	kWorld := BuildKey(Site("a.go", 2), nil)

	for range 3 {
		_, _ = Fetch(ctx, c, kHello, func() (string, error) { return "hello", nil })
		_, _ = Fetch(ctx, c, kWorld, func() (string, error) { return "world!", nil })
	}
	if got := c.Size(); got != 11 {
		t.Fatalf("Size = %d, want 11", got)
	}
}

func TestTextLen(t *testing.T) {
	cases := []struct {
		v    any
		want int
	}{
		{nil, 0},
		{"hello", 5},
		{[]byte("abc"), 3},
		{42, 2},
		{CallSite{File: "x.go", Line: 7}, len("x.go:7")},
		{(*url.URL)(nil), len("<nil>")},
	}
	for _, tc := range cases {
		if got := textLen(tc.v); got != tc.want {
			t.Fatalf("textLen(%#v) = %d, want %d", tc.v, got, tc.want)
		}
	}
}

func TestNoticeFields(t *testing.T) {
	c, log := newTestCache(t, newEnv(), nil)
	key := BuildKey(Site("views/layout.go", 3), "acme")
	_, _ = Fetch(context.Background(), c, key, func() (string, error) { return "hello", nil })

	log.mu.Lock()
	defer log.mu.Unlock()
	if len(log.infos) != 1 || log.infos[0] != "Caching views/layout.go:3 [acme]" {
		t.Fatalf("infos = %v", log.infos)
	}
	if log.last["total_bytes"] != int64(5) || log.last["site"] != "views/layout.go:3" {
		t.Fatalf("fields = %v", log.last)
	}
}

func TestConcurrentMissComputesOnce(t *testing.T) {
	c, log := newTestCache(t, newEnv(), nil)
	key := BuildKey(Site("hot.go", 1), nil)
	var calls atomic.Int32
	release := make(chan struct{})

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	results := make([]string, n)
	for i := range n {
		go func(i int) {
			defer wg.Done()
			results[i], _ = Fetch(context.Background(), c, key, func() (string, error) {
				calls.Add(1)
				<-release
				return "once", nil
			})
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, r := range results {
		if r != "once" {
			t.Fatalf("goroutine %d got %q", i, r)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("compute called %d times, want 1", n)
	}
	if c.Size() != 4 {
		t.Fatalf("Size = %d, want 4 (counted once)", c.Size())
	}
	if log.infoCount() != 1 {
		t.Fatalf("expected one notice, got %d", log.infoCount())
	}
}

func TestErrorNotCached(t *testing.T) {
	c, log := newTestCache(t, newEnv(), nil)
	key := BuildKey(Site("err.go", 1), nil)
	errBoom := errors.New("boom")
	calls := 0

	_, err := Fetch(context.Background(), c, key, func() (string, error) {
		calls++
		return "", errBoom
	})
	if err != errBoom {
		t.Fatalf("error must be returned unchanged, got %v", err)
	}
	if c.Len() != 0 || c.Size() != 0 || log.infoCount() != 0 {
		t.Fatalf("failed compute must not store: len=%d size=%d notices=%d", c.Len(), c.Size(), log.infoCount())
	}

	v, err := Fetch(context.Background(), c, key, func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil || v != "ok" || calls != 2 {
		t.Fatalf("retry: v=%q err=%v calls=%d", v, err, calls)
	}
}

func TestPanicDoesNotPoison(t *testing.T) {
	c, _ := newTestCache(t, newEnv(), nil)
	key := BuildKey(Site("panic.go", 1), nil)

	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic, got none")
			}
			if s := fmt.Sprint(r); !strings.Contains(s, "kaboom") {
				t.Fatalf("got panic %v, want it to contain %q", r, "kaboom")
			}
		}()
		_, _ = Fetch(context.Background(), c, key, func() (string, error) {
			panic("kaboom")
		})
	}()

	v, err := Fetch(context.Background(), c, key, func() (string, error) { return "recovered", nil })
	if err != nil || v != "recovered" {
		t.Fatalf("got %q %v", v, err)
	}
}

func TestNilResultCached(t *testing.T) {
	c, _ := newTestCache(t, newEnv(), nil)
	key := BuildKey(Site("nil.go", 1), nil)
	type page struct{ Title string }
	calls := 0
	for range 2 {
		v, err := Fetch(context.Background(), c, key, func() (*page, error) {
			calls++
			return nil, nil
		})
		if err != nil || v != nil {
			t.Fatalf("got %v %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("compute called %d times, want 1", calls)
	}
}

func TestNilStringerResultCached(t *testing.T) {
	c, log := newTestCache(t, newEnv(), nil)
	key := BuildKey(Site("link.go", 1), nil)
	calls := 0
	for range 2 {
		u, err := Fetch(context.Background(), c, key, func() (*url.URL, error) {
			calls++
			return nil, nil
		})
		if err != nil || u != nil {
			t.Fatalf("got %v %v", u, err)
		}
	}
	if calls != 1 || c.Len() != 1 {
		t.Fatalf("calls=%d len=%d; want 1, 1", calls, c.Len())
	}
	if c.Size() != int64(len("<nil>")) {
		t.Fatalf("Size = %d, want %d", c.Size(), len("<nil>"))
	}
	if log.infoCount() != 1 {
		t.Fatalf("expected one notice, got %d", log.infoCount())
	}
}

func TestReset(t *testing.T) {
	c, _ := newTestCache(t, newEnv(), nil)
	var counter atomic.Int64
	_, _ = cachedCounter(c, &counter, nil)
	c.Reset()
	if c.Len() != 0 || c.Size() != 0 {
		t.Fatalf("Reset left len=%d size=%d", c.Len(), c.Size())
	}
	if v, _ := cachedCounter(c, &counter, nil); v != 2 {
		t.Fatalf("expected recompute after Reset, got %d", v)
	}
}

// ==============================
// Bypass
// ==============================

func TestDisabledNeverCaches(t *testing.T) {
	e := newEnv(EnvDisable, "yes")
	hooks := &recHooks{}
	c, log := newTestCache(t, e, func(o *Options) { o.Hooks = hooks })
	var counter atomic.Int64

	for want := int64(1); want <= 3; want++ {
		if got, _ := cachedCounter(c, &counter, nil); got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}
	if c.Len() != 0 || log.infoCount() != 0 || hooks.bypass != 3 {
		t.Fatalf("bypass touched the cache: len=%d notices=%d bypass=%d", c.Len(), log.infoCount(), hooks.bypass)
	}

	// read per call: unsetting re-enables caching immediately
	e.unset(EnvDisable)
	a, _ := cachedCounter(c, &counter, nil)
	b, _ := cachedCounter(c, &counter, nil)
	if a != 4 || b != 4 {
		t.Fatalf("after re-enable got %d, %d; want 4, 4", a, b)
	}
}

func TestDisabledWinsOverRevision(t *testing.T) {
	store := StoreFunc(func(context.Context, string, func() ([]byte, error)) ([]byte, error) {
		t.Fatal("store must not be used while disabled")
		return nil, nil
	})
	c, _ := newTestCache(t, newEnv(EnvDisable, "1", EnvRevision, "r1"), func(o *Options) { o.Store = store })
	if c.Mode() != ModeDisabled {
		t.Fatalf("mode = %v", c.Mode())
	}
	if _, err := Memo(context.Background(), c, nil, func() (int, error) { return 1, nil }); err != nil {
		t.Fatal(err)
	}
}

// ==============================
// External backend
// ==============================

func TestExternalBackendExclusive(t *testing.T) {
	var gotKeys []string
	stored := map[string][]byte{}
	store := StoreFunc(func(_ context.Context, key string, compute func() ([]byte, error)) ([]byte, error) {
		gotKeys = append(gotKeys, key)
		if b, ok := stored[key]; ok {
			return b, nil
		}
		b, err := compute()
		if err != nil {
			return nil, err
		}
		stored[key] = b
		return b, nil
	})
	c, log := newTestCache(t, newEnv(EnvRevision, "abc123"), func(o *Options) { o.Store = store })
	key := BuildKey(Site("views/layout.go", 10), "acme")
	calls := 0
	for range 2 {
		v, err := Fetch(context.Background(), c, key, func() (string, error) {
			calls++
			return "hello", nil
		})
		if err != nil || v != "hello" {
			t.Fatalf("Fetch: %q %v", v, err)
		}
	}

	if calls != 1 {
		t.Fatalf("compute called %d times, want 1", calls)
	}
	if c.Len() != 0 || c.Size() != 0 {
		t.Fatalf("in-memory backend touched: len=%d size=%d", c.Len(), c.Size())
	}
	want := "asset_ram/abc123/views/layout.go/10/acme"
	if len(gotKeys) != 2 || gotKeys[0] != want {
		t.Fatalf("store keys = %v, want %q", gotKeys, want)
	}
	if log.infoCount() != 1 {
		t.Fatalf("expected one notice, got %d", log.infoCount())
	}
}

func TestHashOnlyKeepsMemory(t *testing.T) {
	store := StoreFunc(func(context.Context, string, func() ([]byte, error)) ([]byte, error) {
		t.Fatal("store must not be used in hash-only mode")
		return nil, nil
	})
	c, _ := newTestCache(t, newEnv(EnvRevision, "r1", EnvHashOnly, "true"), func(o *Options) { o.Store = store })
	var counter atomic.Int64
	_, _ = cachedCounter(c, &counter, nil)
	if c.Len() != 1 {
		t.Fatalf("expected in-memory entry, len=%d", c.Len())
	}
}

func TestRevisionWithoutStoreFallsBack(t *testing.T) {
	hooks := &recHooks{}
	c, log := newTestCache(t, newEnv(EnvRevision, "r1"), func(o *Options) { o.Hooks = hooks })
	var counter atomic.Int64
	_, _ = cachedCounter(c, &counter, nil)
	_, _ = cachedCounter(c, &counter, nil)

	if c.Len() != 1 || counter.Load() != 1 {
		t.Fatalf("expected memory fallback, len=%d calls=%d", c.Len(), counter.Load())
	}
	if hooks.unavailable != 2 {
		t.Fatalf("ExternalUnavailable = %d, want 2", hooks.unavailable)
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	if len(log.warns) != 1 {
		t.Fatalf("expected one warning, got %v", log.warns)
	}
}

func TestRevisionSwitchLeavesMemoryAlone(t *testing.T) {
	e := newEnv()
	ps, err := NewProviderStore(ProviderStoreOptions{Provider: newMemProvider()})
	if err != nil {
		t.Fatal(err)
	}
	c, _ := newTestCache(t, e, func(o *Options) { o.Store = ps })
	var counter atomic.Int64

	mem, _ := cachedCounter(c, &counter, nil)
	e.set(EnvRevision, "r1")
	ext, _ := cachedCounter(c, &counter, nil)
	e.set(EnvRevision, "r2")
	ext2, _ := cachedCounter(c, &counter, nil)
	e.unset(EnvRevision)
	memAgain, _ := cachedCounter(c, &counter, nil)

	if mem != 1 || ext != 2 || ext2 != 3 || memAgain != 1 {
		t.Fatalf("got mem=%d ext=%d ext2=%d memAgain=%d", mem, ext, ext2, memAgain)
	}
	if c.Len() != 1 {
		t.Fatalf("in-memory entries changed: %d", c.Len())
	}
}

func TestExternalSharedAcrossCaches(t *testing.T) {
	// Two Cache values over one provider behave like two processes of one deploy.
	mp := newMemProvider()
	e := newEnv(EnvRevision, "r1")
	newOne := func() (*Cache, *recLogger) {
		ps, err := NewProviderStore(ProviderStoreOptions{Provider: mp})
		if err != nil {
			t.Fatal(err)
		}
		return newTestCache(t, e, func(o *Options) { o.Store = ps; o.Codec = codec.Msgpack{} })
	}
	c1, log1 := newOne()
	c2, log2 := newOne()

	type tag struct {
		Href string
		Rel  string
	}
	key := BuildKey(Named("favicon"), nil)
	calls := 0
	compute := func() (tag, error) {
		calls++
		return tag{Href: "/favicon-abc.ico", Rel: "icon"}, nil
	}

	v1, err := Fetch(context.Background(), c1, key, compute)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := Fetch(context.Background(), c2, key, compute)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 || v2.Href != "/favicon-abc.ico" {
		t.Fatalf("v1=%+v v2=%+v", v1, v2)
	}
	if calls != 1 || log1.infoCount() != 1 || log2.infoCount() != 0 {
		t.Fatalf("calls=%d notices=%d/%d", calls, log1.infoCount(), log2.infoCount())
	}
	if keys := mp.keys(); len(keys) != 1 || keys[0] != "asset_ram/r1/favicon/0" {
		t.Fatalf("provider keys = %v", keys)
	}
}

func TestExternalComputeErrorUnchanged(t *testing.T) {
	ps, _ := NewProviderStore(ProviderStoreOptions{Provider: newMemProvider()})
	c, _ := newTestCache(t, newEnv(EnvRevision, "r1"), func(o *Options) { o.Store = ps })
	errBoom := errors.New("boom")
	_, err := Memo(context.Background(), c, nil, func() (string, error) { return "", errBoom })
	if err != errBoom {
		t.Fatalf("got %v, want errBoom unchanged", err)
	}
}

func TestExternalCodecErrors(t *testing.T) {
	ps, _ := NewProviderStore(ProviderStoreOptions{Provider: newMemProvider()})
	c, _ := newTestCache(t, newEnv(EnvRevision, "r1"), func(o *Options) {
		o.Store = ps
		o.Codec = codec.Raw{}
	})
	key := BuildKey(Site("codec.go", 1), nil)

	_, err := Fetch(context.Background(), c, key, func() (int, error) { return 7, nil })
	var ce *CodecError
	if !errors.As(err, &ce) || ce.Decode {
		t.Fatalf("expected encode CodecError, got %v", err)
	}

	// a string stored under the key cannot be read back as int
	_, _ = Fetch(context.Background(), c, key, func() (string, error) { return "x", nil })
	_, err = Fetch(context.Background(), c, key, func() (int, error) { return 7, nil })
	if !errors.As(err, &ce) || !ce.Decode {
		t.Fatalf("expected decode CodecError, got %v", err)
	}
}

// ==============================
// ProviderStore
// ==============================

func TestProviderStoreRequiresProvider(t *testing.T) {
	if _, err := NewProviderStore(ProviderStoreOptions{}); err == nil {
		t.Fatalf("expected error without provider")
	}
	if _, err := NewProviderStore(ProviderStoreOptions{Provider: newMemProvider(), TTL: -time.Second}); err == nil {
		t.Fatalf("expected error for negative ttl")
	}
}

func TestProviderStoreSelfHealsCorrupt(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recHooks{}
	ps, _ := NewProviderStore(ProviderStoreOptions{Provider: mp, Hooks: hooks})

	_, _ = mp.Set(ctx, "k", []byte("not-wire-format"), 1, 0)
	b, err := ps.Fetch(ctx, "k", func() ([]byte, error) { return []byte("fresh"), nil })
	if err != nil || string(b) != "fresh" {
		t.Fatalf("Fetch: %q %v", b, err)
	}
	if hooks.selfHeal != 1 {
		t.Fatalf("SelfHeal = %d, want 1", hooks.selfHeal)
	}
	raw, ok, _ := mp.Get(ctx, "k")
	if !ok {
		t.Fatalf("fresh frame not stored")
	}
	if _, payload, err := wire.Decode(raw); err != nil || string(payload) != "fresh" {
		t.Fatalf("stored frame invalid: %q %v", payload, err)
	}
}

func TestProviderStoreErrorsWrapped(t *testing.T) {
	ctx := context.Background()
	errDown := errors.New("connection refused")

	mp := newMemProvider()
	mp.getErr = errDown
	ps, _ := NewProviderStore(ProviderStoreOptions{Provider: mp})
	_, err := ps.Fetch(ctx, "k", func() ([]byte, error) {
		t.Fatal("compute must not run when the store is unreachable")
		return nil, nil
	})
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "get" || !errors.Is(err, errDown) {
		t.Fatalf("expected get StoreError wrapping errDown, got %v", err)
	}

	mp2 := newMemProvider()
	mp2.setErr = errDown
	ps2, _ := NewProviderStore(ProviderStoreOptions{Provider: mp2})
	_, err = ps2.Fetch(ctx, "k", func() ([]byte, error) { return []byte("v"), nil })
	if !errors.As(err, &se) || se.Op != "set" || !errors.Is(err, errDown) {
		t.Fatalf("expected set StoreError wrapping errDown, got %v", err)
	}
}

func TestProviderStoreRejectedSetStillReturns(t *testing.T) {
	mp := newMemProvider()
	mp.reject = true
	hooks := &recHooks{}
	ps, _ := NewProviderStore(ProviderStoreOptions{Provider: mp, Hooks: hooks})
	b, err := ps.Fetch(context.Background(), "k", func() ([]byte, error) { return []byte("v"), nil })
	if err != nil || string(b) != "v" {
		t.Fatalf("Fetch: %q %v", b, err)
	}
	if hooks.rejected != 1 {
		t.Fatalf("ProviderSetRejected = %d, want 1", hooks.rejected)
	}
}

func TestProviderStoreConcurrentMiss(t *testing.T) {
	ps, _ := NewProviderStore(ProviderStoreOptions{Provider: newMemProvider()})
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := ps.Fetch(context.Background(), "k", func() ([]byte, error) {
				calls.Add(1)
				<-release
				return []byte("v"), nil
			})
			if err != nil || string(b) != "v" {
				t.Errorf("Fetch: %q %v", b, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	if calls.Load() != 1 {
		t.Fatalf("compute called %d times, want 1", calls.Load())
	}
}

func TestProviderStoreLogsEntryAge(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	log := &recLogger{}
	ps, _ := NewProviderStore(ProviderStoreOptions{
		Provider: newMemProvider(),
		Logger:   log,
		Now:      func() time.Time { return now },
	})

	if _, err := ps.Fetch(ctx, "k", func() ([]byte, error) { return []byte("v"), nil }); err != nil {
		t.Fatal(err)
	}
	now = now.Add(5 * time.Second)
	b, err := ps.Fetch(ctx, "k", func() ([]byte, error) {
		t.Fatal("compute must not run on a hit")
		return nil, nil
	})
	if err != nil || string(b) != "v" {
		t.Fatalf("Fetch: %q %v", b, err)
	}

	log.mu.Lock()
	defer log.mu.Unlock()
	if len(log.debugs) != 1 || log.debugs[0]["age"] != 5*time.Second {
		t.Fatalf("debug fields = %v", log.debugs)
	}
}
