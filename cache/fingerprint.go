package cache

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// KeyPrefix is prepended to every storage key derived from a Fingerprint.
const KeyPrefix = "qc:"

// Fingerprint identifies a query for caching purposes. It is derived from
// the query text alone: parameters never participate, so two calls that share
// text address the same cache slot.
//
// Fingerprint is comparable; equality is value-based on the text and it can
// be used directly as a map key.
type Fingerprint struct {
	text string
}

// NewFingerprint returns the fingerprint of query text.
func NewFingerprint(text string) Fingerprint {
	return Fingerprint{text: text}
}

// Text returns the query text the fingerprint was built from.
func (f Fingerprint) Text() string {
	return f.text
}

// IsZero reports whether the fingerprint was built from empty text.
func (f Fingerprint) IsZero() bool {
	return f.text == ""
}

// Hash returns the 64-bit xxhash of the text.
func (f Fingerprint) Hash() uint64 {
	return xxhash.Sum64String(f.text)
}

// Key returns a compact storage key for backends with key size limits.
// Distinct texts may share a Key; backends using it must keep the text to
// tell them apart.
func (f Fingerprint) Key() string {
	return KeyPrefix + strconv.FormatUint(f.Hash(), 16)
}

func (f Fingerprint) String() string {
	return f.Key()
}
