package assetram

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// Hit: a stored value was returned without running compute.
	Hit(mode Mode, key string)

	// Miss: compute is about to run for key (external) or just ran (in-memory).
	Miss(mode Mode, key string)

	// Bypass: ASSET_RAM_DISABLE is set and compute ran uncached.
	Bypass(key string)

	// Stored: an in-memory entry was inserted; total is the running byte count.
	Stored(key string, bytes int, total int64)

	// ComputeError: compute (or the external store) failed; nothing was stored.
	ComputeError(mode Mode, key string, err error)

	// ExternalUnavailable: a revision is configured but the Cache has no Store,
	// so the in-memory backend served the call.
	ExternalUnavailable(revision string)

	// SelfHeal: a provider entry was unreadable and deleted.
	// reason ∈ {"corrupt"}
	SelfHeal(storageKey, reason string)

	// ProviderSetRejected: provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(Mode, string)                 {}
func (NopHooks) Miss(Mode, string)                {}
func (NopHooks) Bypass(string)                    {}
func (NopHooks) Stored(string, int, int64)        {}
func (NopHooks) ComputeError(Mode, string, error) {}
func (NopHooks) ExternalUnavailable(string)       {}
func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) ProviderSetRejected(string)       {}
