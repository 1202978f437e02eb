package connector

import (
	"context"

	"github.com/agentuity/go-common/logger"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/row"
)

// Executor runs query text with parameters and returns the decoded rows in
// result order. Errors are returned to callers unchanged.
type Executor interface {
	Query(ctx context.Context, text string, params ...any) ([]row.Row, error)
}

// RawSource is a data source that already decodes rows into T.
type RawSource[T any] interface {
	Raw(ctx context.Context, sql string, args ...any) ([]T, error)
}

// go-repository-bun repositories can back a connector directly.
var _ RawSource[any] = repository.Repository[any](nil)

// EntityGetter is the capability connectors expose to their callers.
type EntityGetter[T any] interface {
	GetEntity(ctx context.Context, text string, params ...any) (Outcome[Optional[T]], error)
	GetEntities(ctx context.Context, text string, params ...any) (Outcome[[]T], error)
}

var _ EntityGetter[any] = (*Connector[any])(nil)

type fetchFn[T any] func(ctx context.Context, text string, params []any) ([]T, error)

// Connector retrieves entities through a cache check. It never writes to the
// cache: a hit returns CacheHit without touching the data store, a miss runs
// the query and returns Computed for the caller to cache.
//
// Connector holds no mutable state and is safe for concurrent use. Concurrent
// misses for the same fingerprint are not de-duplicated; each executes.
type Connector[T any] struct {
	cache  cache.Cache
	fetch  fetchFn[T]
	name   string
	logger logger.Logger
}

type options struct {
	name   string
	logger logger.Logger
}

// Option configures a Connector.
type Option func(*options)

// WithLogger sets the logger used for cache and cardinality events.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithName overrides the entity name used in logs and errors.
// It defaults to the snake_case name of T.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// New creates a Connector that executes queries through exec and maps every
// row with project.
func New[T any](exec Executor, c cache.Cache, project row.Projector[T], opts ...Option) (*Connector[T], error) {
	if exec == nil {
		return nil, nullArgument("executor")
	}
	if project == nil {
		return nil, nullArgument("projector")
	}

	return newConnector(c, func(ctx context.Context, text string, params []any) ([]T, error) {
		rows, err := exec.Query(ctx, text, params...)
		if err != nil {
			return nil, err
		}

		out := make([]T, 0, len(rows))
		for _, r := range rows {
			v, err := project(r)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}, opts)
}

// NewFromRepository creates a Connector over a source that decodes rows
// itself, such as a go-repository-bun repository's Raw method.
func NewFromRepository[T any](source RawSource[T], c cache.Cache, opts ...Option) (*Connector[T], error) {
	if source == nil {
		return nil, nullArgument("source")
	}

	return newConnector(c, func(ctx context.Context, text string, params []any) ([]T, error) {
		records, err := source.Raw(ctx, text, params...)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []T{}
		}
		return records, nil
	}, opts)
}

func newConnector[T any](c cache.Cache, fetch fetchFn[T], opts []Option) (*Connector[T], error) {
	if c == nil {
		return nil, nullArgument("cache")
	}

	o := options{name: entityName[T]()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.NewConsoleLogger(logger.LevelNone)
	}

	return &Connector[T]{
		cache:  c,
		fetch:  fetch,
		name:   o.name,
		logger: o.logger.WithPrefix("[" + o.name + "]"),
	}, nil
}

// Name returns the entity name used in logs and errors.
func (c *Connector[T]) Name() string {
	return c.name
}

// GetEntity retrieves at most one entity.
//
// The fingerprint is built from text alone; params never participate. When
// the cache already holds the fingerprint, CacheHit is returned and nothing
// is executed. Otherwise the query runs, every row is projected, and:
//
//   - zero rows yield Computed with an absent value
//   - one row yields Computed with that entity
//   - more rows fail with ErrTooManyRows
func (c *Connector[T]) GetEntity(ctx context.Context, text string, params ...any) (Outcome[Optional[T]], error) {
	if text == "" {
		return Outcome[Optional[T]]{}, nullArgument("query text")
	}

	fp := cache.NewFingerprint(text)

	cached, err := c.isCached(ctx, fp)
	if err != nil {
		return Outcome[Optional[T]]{}, err
	}
	if cached {
		return CacheHit[Optional[T]](fp), nil
	}

	records, err := c.fetch(ctx, text, params)
	if err != nil {
		return Outcome[Optional[T]]{}, err
	}

	switch len(records) {
	case 0:
		return Computed(fp, None[T]()), nil
	case 1:
		return Computed(fp, Some(records[0])), nil
	default:
		c.logger.Error("single entity query %s returned %d rows", fp, len(records))
		return Outcome[Optional[T]]{}, tooManyRows(c.name, len(records))
	}
}

// GetEntities retrieves every entity the query yields, in row order.
// It shares GetEntity's cache short-circuit and has no cardinality limit.
// A computed outcome always carries a non-nil slice.
func (c *Connector[T]) GetEntities(ctx context.Context, text string, params ...any) (Outcome[[]T], error) {
	if text == "" {
		return Outcome[[]T]{}, nullArgument("query text")
	}

	fp := cache.NewFingerprint(text)

	cached, err := c.isCached(ctx, fp)
	if err != nil {
		return Outcome[[]T]{}, err
	}
	if cached {
		return CacheHit[[]T](fp), nil
	}

	records, err := c.fetch(ctx, text, params)
	if err != nil {
		return Outcome[[]T]{}, err
	}

	return Computed(fp, records), nil
}

func (c *Connector[T]) isCached(ctx context.Context, fp cache.Fingerprint) (bool, error) {
	cached, err := c.cache.IsCached(ctx, fp)
	if err != nil {
		return false, err
	}
	if cached {
		c.logger.Debug("cache hit %s", fp)
	} else {
		c.logger.Debug("cache miss %s", fp)
	}
	return cached, nil
}
