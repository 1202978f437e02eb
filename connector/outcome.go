package connector

import (
	"fmt"

	"github.com/goliatone/go-query-cache/cache"
)

// OutcomeKind discriminates the two variants of an Outcome.
type OutcomeKind int

const (
	// KindCacheHit means the caller already holds a value for the fingerprint.
	KindCacheHit OutcomeKind = iota + 1
	// KindComputed means the outcome carries a fresh value the caller should cache.
	KindComputed
)

func (k OutcomeKind) String() string {
	switch k {
	case KindCacheHit:
		return "cache_hit"
	case KindComputed:
		return "computed"
	default:
		return "unknown"
	}
}

// Outcome is the result of a cached lookup. It is exactly one of:
//
//   - CacheHit(fingerprint): a value is already cached; fetch it from your own store
//   - Computed(fingerprint, value): fresh value, not yet cached; cache it yourself
//
// The zero Outcome is neither and reports KindCacheHit/KindComputed as false.
type Outcome[T any] struct {
	kind        OutcomeKind
	fingerprint cache.Fingerprint
	value       T
}

// CacheHit builds the cache-hit variant. It carries no payload.
func CacheHit[T any](fp cache.Fingerprint) Outcome[T] {
	return Outcome[T]{kind: KindCacheHit, fingerprint: fp}
}

// Computed builds the computed variant carrying value.
func Computed[T any](fp cache.Fingerprint, value T) Outcome[T] {
	return Outcome[T]{kind: KindComputed, fingerprint: fp, value: value}
}

// Kind returns the variant.
func (o Outcome[T]) Kind() OutcomeKind { return o.kind }

// Fingerprint returns the fingerprint the outcome is about.
func (o Outcome[T]) Fingerprint() cache.Fingerprint { return o.fingerprint }

// IsCacheHit reports whether this is the cache-hit variant.
func (o Outcome[T]) IsCacheHit() bool { return o.kind == KindCacheHit }

// IsComputed reports whether this is the computed variant.
func (o Outcome[T]) IsComputed() bool { return o.kind == KindComputed }

// Value returns the computed value. ok is false for a cache hit.
func (o Outcome[T]) Value() (value T, ok bool) {
	if o.kind != KindComputed {
		var zero T
		return zero, false
	}
	return o.value, true
}

func (o Outcome[T]) String() string {
	return fmt.Sprintf("%s(%s)", o.kind, o.fingerprint)
}

// Match dispatches on the variant. Both handlers are required, which keeps
// every call site exhaustive.
func Match[T, R any](o Outcome[T], onCacheHit func(cache.Fingerprint) R, onComputed func(cache.Fingerprint, T) R) R {
	switch o.kind {
	case KindCacheHit:
		return onCacheHit(o.fingerprint)
	case KindComputed:
		return onComputed(o.fingerprint, o.value)
	default:
		panic(fmt.Sprintf("connector: Match on invalid outcome kind %d", o.kind))
	}
}

// Optional is the value of a single-entity lookup: an entity, or nothing.
// Fields are exported so serializing stores can encode it.
type Optional[T any] struct {
	Value   T    `json:"value" msgpack:"value"`
	Present bool `json:"present" msgpack:"present"`
}

// Some wraps a present value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Present: true}
}

// None returns the absent value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Present
}
