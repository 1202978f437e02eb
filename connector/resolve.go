package connector

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/goliatone/go-query-cache/cache"
)

// Resolve is the caller-side counterpart of a connector: it turns an outcome
// into a value using store.
//
// A Computed outcome is stored under its fingerprint and its value returned.
// A CacheHit is loaded from store; ErrCacheMiss is returned when the entry
// disappeared between the connector's check and the load, in which case the
// caller should query again.
func Resolve[T any](ctx context.Context, store cache.Store, o Outcome[T]) (T, error) {
	var zero T

	if store == nil {
		return zero, nullArgument("store")
	}

	switch o.Kind() {
	case KindComputed:
		value, _ := o.Value()
		if err := store.Put(ctx, o.Fingerprint(), value); err != nil {
			return zero, err
		}
		return value, nil

	case KindCacheHit:
		value, found, err := cache.Load[T](ctx, store, o.Fingerprint())
		if err != nil {
			return zero, err
		}
		if !found {
			return zero, errors.Wrapf(ErrCacheMiss, "%s", o.Fingerprint())
		}
		return value, nil

	default:
		return zero, nullArgument("outcome")
	}
}
