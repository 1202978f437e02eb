package di

import (
	"context"

	"github.com/agentuity/go-common/logger"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/config"
	"github.com/goliatone/go-query-cache/connection"
	"github.com/goliatone/go-query-cache/connector"
	"github.com/goliatone/go-query-cache/row"
	"github.com/goliatone/go-query-cache/sqlexec"
	"github.com/goliatone/go-query-cache/transaction"
)

// Container provides dependency injection for the query cache components.
// It owns one cache store, one connection provider and the root logger, and
// provides factory functions for connectors and transaction scopes.
type Container struct {
	config      config.Config
	logger      logger.Logger
	store       cache.Store
	redis       redis.UniversalClient
	ownsRedis   bool
	connections *connection.Provider
}

// Option customizes container construction.
type Option func(*Container)

// WithLogger replaces the console logger built from the configured level.
func WithLogger(l logger.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// WithRedisClient supplies the client used by the redis backend. The caller
// keeps ownership of it.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(c *Container) { c.redis = client }
}

// NewContainer validates cfg and builds the container. The cache backend is
// picked by cfg.Cache.Backend.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	c := &Container{config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.NewConsoleLogger(cfg.Level())
	}

	store, err := c.buildStore()
	if err != nil {
		return nil, err
	}
	c.store = store

	c.connections = connection.NewProvider(cfg, connection.WithLogger(c.logger.WithPrefix("[connection]")))

	return c, nil
}

// NewContainerWithDefaults creates a container using config.Default: an
// in-memory store and no connections.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(config.Default(), opts...)
}

func (c *Container) buildStore() (cache.Store, error) {
	switch c.config.Cache.Backend {
	case config.BackendRedis:
		rc := c.config.Cache.Redis
		if c.redis == nil {
			c.redis = redis.NewClient(&redis.Options{
				Addr:     rc.Addr,
				Password: rc.Password,
				DB:       rc.DB,
			})
			c.ownsRedis = true
		}
		c.logger.Debug("using redis cache at %s", rc.Addr)
		return cache.NewRedisStore(c.redis, cache.WithRedisPrefix(rc.Prefix), cache.WithRedisTTL(rc.TTL)), nil
	default:
		c.logger.Debug("using in-memory cache, capacity %d", c.config.Cache.Capacity)
		return cache.NewStore(c.config.StoreConfig())
	}
}

// Store returns the singleton cache store.
func (c *Container) Store() cache.Store {
	return c.store
}

// Connections returns the connection provider.
func (c *Container) Connections() *connection.Provider {
	return c.connections
}

// Logger returns the root logger.
func (c *Container) Logger() logger.Logger {
	return c.logger
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

// Close closes every open connection and, when the container created it,
// the redis client.
func (c *Container) Close() error {
	err := c.connections.Close()
	if c.ownsRedis {
		err = errors.CombineErrors(err, c.redis.Close())
	}
	return err
}

// NewConnector creates a connector for T over the database registered under
// key, consulting the container's store.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewConnector[User](ctx, container, "main", projectUser)
func NewConnector[T any](ctx context.Context, c *Container, key string, project row.Projector[T], opts ...connector.Option) (*connector.Connector[T], error) {
	db, err := c.connections.DB(ctx, key)
	if err != nil {
		return nil, err
	}
	exec := sqlexec.New(db, sqlexec.WithLogger(c.logger.WithPrefix("[sql]")))
	return connector.New(exec, c.store, project, withDefaults(c, opts)...)
}

// NewScopedConnector creates a connector whose queries run inside scope.
func NewScopedConnector[T any](c *Container, scope *transaction.Scope, project row.Projector[T], opts ...connector.Option) (*connector.Connector[T], error) {
	exec, err := sqlexec.InScope(scope, sqlexec.WithLogger(c.logger.WithPrefix("[sql]")))
	if err != nil {
		return nil, err
	}
	return connector.New(exec, c.store, project, withDefaults(c, opts)...)
}

// NewRepositoryConnector creates a connector over a go-repository-bun
// repository, or any other RawSource.
func NewRepositoryConnector[T any](c *Container, source connector.RawSource[T], opts ...connector.Option) (*connector.Connector[T], error) {
	return connector.NewFromRepository(source, c.store, withDefaults(c, opts)...)
}

// BeginScope acquires a transaction scope on the database registered under
// key. The caller must Close it, typically with defer.
func BeginScope(ctx context.Context, c *Container, key string, opts ...transaction.Option) (*transaction.Scope, error) {
	db, err := c.connections.DB(ctx, key)
	if err != nil {
		return nil, err
	}
	opts = append([]transaction.Option{transaction.WithLogger(c.logger.WithPrefix("[tx]"))}, opts...)
	return transaction.Begin(ctx, db, opts...)
}

func withDefaults(c *Container, opts []connector.Option) []connector.Option {
	return append([]connector.Option{connector.WithLogger(c.logger)}, opts...)
}
