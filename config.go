package assetram

import (
	"os"
	"strconv"
)

// Environment toggles, read on every call.
const (
	// EnvDisable turns caching off entirely: every call runs compute.
	// Useful for measuring what the cache actually saves.
	//
	// Presence is what counts, not truthiness: "", "yes" and "1" all disable.
	// The one exception is a value strconv.ParseBool reads as false ("0",
	// "false", "F", ...), which leaves caching on, so ASSET_RAM_DISABLE=0 in a
	// shared .env file does not silently turn the cache off.
	EnvDisable = "ASSET_RAM_DISABLE"
	// EnvHashOnly keeps the in-memory backend even when a revision is set.
	EnvHashOnly = "ASSET_RAM_HASH_ONLY"
	// EnvRevision is the deployment revision; when non-empty the external
	// backend is used and entries are namespaced by it.
	EnvRevision = "ASSET_RAM_REVISION"
)

// Mode is the backend chosen for a single call.
type Mode uint8

const (
	ModeInMemory Mode = iota
	ModeExternal
	ModeDisabled
)

func (m Mode) String() string {
	switch m {
	case ModeInMemory:
		return "memory"
	case ModeExternal:
		return "external"
	case ModeDisabled:
		return "disabled"
	default:
		return "mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Config is the process-wide configuration in effect for one call.
type Config struct {
	Disabled bool
	HashOnly bool
	Revision string
}

// LoadConfig reads the toggles through lookup (os.LookupEnv when nil).
//
// A boolean toggle is active when the variable is set, unless its value parses
// as false ("0", "false", ...). ASSET_RAM_DISABLE=yes and ASSET_RAM_DISABLE=
// both disable the cache.
func LoadConfig(lookup LookupFunc) Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	rev, _ := lookup(EnvRevision)
	return Config{
		Disabled: flag(lookup, EnvDisable),
		HashOnly: flag(lookup, EnvHashOnly),
		Revision: rev,
	}
}

func flag(lookup LookupFunc, name string) bool {
	v, ok := lookup(name)
	if !ok {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}

// ResolveMode picks the backend. Disabled wins; External needs a non-empty
// revision and no hash-only restriction.
func ResolveMode(cfg Config) Mode {
	switch {
	case cfg.Disabled:
		return ModeDisabled
	case cfg.Revision != "" && !cfg.HashOnly:
		return ModeExternal
	default:
		return ModeInMemory
	}
}
