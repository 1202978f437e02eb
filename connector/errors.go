package connector

import "github.com/cockroachdb/errors"

var (
	// ErrNullArgument is returned before any I/O when a required argument is missing.
	ErrNullArgument = errors.New("required argument is missing")

	// ErrTooManyRows is returned when a single-entity query yields more than
	// one row. It marks an unsound query or a broken uniqueness constraint and
	// is never transient; errors.IsAssertionFailure reports true for it.
	ErrTooManyRows = errors.New("a query for a single entity row resulted in more than one row")

	// ErrCacheMiss is returned by Resolve when a cache hit can no longer be
	// loaded because the entry expired or was evicted after the check.
	ErrCacheMiss = errors.New("cached value is no longer available")
)

func nullArgument(name string) error {
	return errors.Wrapf(ErrNullArgument, "%s", name)
}

func tooManyRows(entityType string, rows int) error {
	return errors.WithAssertionFailure(errors.Wrapf(ErrTooManyRows, "type: %s, rows: %d", entityType, rows))
}
