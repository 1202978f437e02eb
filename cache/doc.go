// Package cache provides query fingerprints and the cache stores consulted by
// caching connectors.
//
// # Overview
//
// This package exports the following types and their default implementations:
//
//   - Fingerprint: the cache identity of a query, derived from its text only
//   - Cache: the presence check connectors consult before touching the database
//   - Store: the caller-side Cache that also holds values
//
// Two stores are provided:
//
//   - NewStore: in-memory, sharded and TTL bound, backed by sturdyc
//   - NewRedisStore: shared between processes, values encoded with msgpack
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig())
//	fp := cache.NewFingerprint("SELECT id, name FROM users WHERE id = $1")
//
//	if ok, _ := store.IsCached(ctx, fp); !ok {
//		_ = store.Put(ctx, fp, user)
//	}
//
//	user, found, err := cache.Load[User](ctx, store, fp)
//
// # Fingerprints Ignore Parameters
//
// A fingerprint is built from query text alone. Two calls that share text but
// bind different parameters address the same cache slot:
//
//	cache.NewFingerprint(q) == cache.NewFingerprint(q) // whatever was bound to q
//
// Callers that need per-parameter caching must make the text itself distinct,
// for example by inlining a stable discriminator in a SQL comment, or accept
// coarser caching.
//
// # Population Is the Caller's Job
//
// Connectors never write to a cache. They return an outcome that either says
// "already cached" or carries a freshly computed value; storing that value,
// choosing its lifetime and evicting it stays with the caller.
//
// # Storage Keys
//
// Fingerprint.Key hashes the text with xxhash for backends that limit key
// size. The redis store keeps the full text next to the value and compares it
// on every lookup, so a hash collision reads as a miss rather than a wrong hit.
package cache
