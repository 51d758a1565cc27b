// Package assetram memoizes computations by call site for the lifetime of a
// process. It was built for view helpers that compute the same asset tags on
// every request (fingerprinted paths, favicon and stylesheet links), but any
// zero-argument computation works.
//
// Keys:
//
//	memory:   Key{Site: file:line, Discriminator}
//	external: <namespace>/<revision>/<file>/<line>[/<discriminator>]
//
// Usage:
//
//	tag, err := assetram.Do(ctx, nil, func() (string, error) {
//	    return faviconLinkTag("favicon/favicon.ico")
//	})
//
//	// multi-tenant: one entry per site
//	css, err := assetram.Do(ctx, tenant, func() (string, error) {
//	    return stylesheetLinkTag("themes/" + tenant)
//	})
//
// Environment (read on every call):
//   - ASSET_RAM_DISABLE: never cache; handy for measuring the gain.
//   - ASSET_RAM_REVISION: use the external Store, namespaced by revision.
//   - ASSET_RAM_HASH_ONLY: stay in memory even when a revision is set.
//
// The external Store is usually a ProviderStore over redis, ristretto,
// bigcache or bolt (see provider/...). Values are serialized with a codec.Codec.
package assetram
