// Package connector retrieves entities from a data store through a cache check.
//
// # Overview
//
// A Connector runs query text against an Executor and projects every returned
// row into a T. Before executing it asks a cache.Cache whether the query's
// fingerprint is already held. The connector never writes to the cache: it
// only reports what happened through an Outcome, and the caller decides what
// to store.
//
// # Outcomes
//
// Every successful lookup yields exactly one of:
//
//   - CacheHit(fingerprint): the cache already holds the query; nothing ran
//   - Computed(fingerprint, value): the query ran; value is fresh and uncached
//
// Resolve implements the usual caller side of that contract against a
// cache.Store: computed values are stored, hits are loaded.
//
// # Basic Usage
//
//	store, _ := cache.NewStore(cache.DefaultConfig())
//	users, _ := connector.New(sqlexec.New(db), store, projectUser)
//
//	outcome, err := users.GetEntity(ctx, "SELECT * FROM users WHERE id = $1", 42)
//	if err != nil {
//		return err
//	}
//	user, err := connector.Resolve(ctx, store, outcome)
//
// # Fingerprints
//
// Fingerprints are built from query text only. Two calls with the same text
// and different parameters share a fingerprint; callers that need per
// parameter caching must inline the distinguishing values into the text.
//
// # Cardinality
//
// GetEntity returns an absent value for zero rows and fails with
// ErrTooManyRows for more than one. GetEntities returns every row in order.
//
// # Error Handling
//
// Missing arguments fail with ErrNullArgument before any I/O. Errors from the
// cache, the executor and the projector are returned unchanged.
package connector
