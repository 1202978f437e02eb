package cache

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrInvalidValueType is returned by Load when a stored value cannot be
// converted to the requested type.
var ErrInvalidValueType = errors.New("cached value has unexpected type")

// Encoded marks a msgpack payload returned by serializing stores.
type Encoded []byte

// Cache answers a single question: is a value already cached for this
// fingerprint? Implementations must not mutate state in IsCached and must
// answer deterministically for a given cache state.
type Cache interface {
	IsCached(ctx context.Context, fp Fingerprint) (bool, error)
}

// Store is the caller-side companion of Cache. Connectors only consult
// IsCached; populating and reading values is left to the code that consumes
// query outcomes.
type Store interface {
	Cache
	Put(ctx context.Context, fp Fingerprint, value any) error
	Load(ctx context.Context, fp Fingerprint) (any, bool, error)
	Invalidate(ctx context.Context, fp Fingerprint) error
	// InvalidatePrefix drops every entry whose query text starts with
	// prefix and reports how many were removed.
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
}

// Load is a type-safe wrapper around Store.Load.
// In-memory stores hand back the stored value and a type assertion is
// enough; serializing stores hand back Encoded msgpack payloads.
func Load[T any](ctx context.Context, store Store, fp Fingerprint) (T, bool, error) {
	var zero T

	raw, found, err := store.Load(ctx, fp)
	if err != nil || !found {
		return zero, false, err
	}

	if raw == nil {
		return zero, true, nil
	}

	if data, ok := raw.(Encoded); ok {
		var out T
		if err := msgpack.Unmarshal(data, &out); err != nil {
			return zero, false, errors.Wrapf(ErrInvalidValueType, "decode %s: %v", fp, err)
		}
		return out, true, nil
	}

	if typed, ok := raw.(T); ok {
		return typed, true, nil
	}

	return zero, false, errors.Wrapf(ErrInvalidValueType, "%T for %s", raw, fp)
}
