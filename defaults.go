package assetram

// DefaultNamespace prefixes every external storage key.
const DefaultNamespace = "asset_ram"

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
