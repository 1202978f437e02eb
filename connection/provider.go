// Package connection resolves symbolic connection keys to live bun databases.
package connection

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/agentuity/go-common/logger"
	"github.com/cockroachdb/errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var (
	// ErrUnknownKey is returned when a resolver has no settings for a key.
	ErrUnknownKey = errors.New("unknown connection key")

	// ErrUnsupportedDriver is returned for drivers without a bun dialect.
	ErrUnsupportedDriver = errors.New("unsupported driver")

	// ErrProviderClosed is returned by DB after Close.
	ErrProviderClosed = errors.New("connection provider is closed")
)

// Settings describe how to open one database.
type Settings struct {
	Driver string `mapstructure:"driver" json:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" json:"dsn" yaml:"dsn"`
}

// Validate checks that the driver is supported and a DSN is set.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(DriverPostgres, DriverSQLite)),
		validation.Field(&s.DSN, validation.Required),
	)
}

// Resolver maps a symbolic key to connection settings.
type Resolver interface {
	ByKey(key string) (Settings, error)
}

// Static is a Resolver backed by a fixed map.
type Static map[string]Settings

// ByKey implements Resolver.
func (s Static) ByKey(key string) (Settings, error) {
	if key == "" {
		return Settings{}, errors.New("connection key is required")
	}
	settings, ok := s[key]
	if !ok {
		return Settings{}, errors.Wrapf(ErrUnknownKey, "%q", key)
	}
	return settings, nil
}

// Provider opens one *bun.DB per key on first use and hands out the same
// handle afterwards. It is safe for concurrent use.
type Provider struct {
	resolver Resolver
	dbs      *xsync.MapOf[string, *bun.DB]
	logger   logger.Logger

	// mu is held shared by DB and exclusively by Close, so no handle is
	// opened after Close has swept the map.
	mu     sync.RWMutex
	closed bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger for open and close events.
func WithLogger(l logger.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// NewProvider returns a Provider resolving keys through resolver.
func NewProvider(resolver Resolver, opts ...Option) *Provider {
	p := &Provider{
		resolver: resolver,
		dbs:      xsync.NewMapOf[string, *bun.DB](),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.NewConsoleLogger(logger.LevelNone)
	}
	return p
}

// DB returns the database for key, opening it on first use. Opening does not
// connect; the first query does.
func (p *Provider) DB(ctx context.Context, key string) (*bun.DB, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrProviderClosed
	}
	if db, ok := p.dbs.Load(key); ok {
		return db, nil
	}

	settings, err := p.resolver.ByKey(key)
	if err != nil {
		return nil, err
	}

	var openErr error
	db, _ := p.dbs.Compute(key, func(existing *bun.DB, loaded bool) (*bun.DB, bool) {
		if loaded {
			return existing, false
		}
		opened, err := Open(settings)
		if err != nil {
			openErr = err
			return nil, true
		}
		p.logger.Info("opened %s connection %q", settings.Driver, key)
		return opened, false
	})
	if openErr != nil {
		return nil, errors.Wrapf(openErr, "open connection %q", key)
	}
	return db, nil
}

// Keys returns the keys of every open database, sorted.
func (p *Provider) Keys() []string {
	keys := make([]string, 0, p.dbs.Size())
	p.dbs.Range(func(key string, _ *bun.DB) bool {
		keys = append(keys, key)
		return true
	})
	sort.Strings(keys)
	return keys
}

// Close closes every open database. Later calls to DB fail.
func (p *Provider) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	var errs error
	p.dbs.Range(func(key string, db *bun.DB) bool {
		if err := db.Close(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "close %q", key))
		}
		p.dbs.Delete(key)
		p.logger.Info("closed connection %q", key)
		return true
	})
	return errs
}

// Open opens a bun database for settings, picking the dialect from the
// driver name.
func Open(settings Settings) (*bun.DB, error) {
	dialect, err := dialectFor(settings.Driver)
	if err != nil {
		return nil, err
	}
	if settings.DSN == "" {
		return nil, errors.New("dsn is required")
	}

	sqldb, err := sql.Open(settings.Driver, settings.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "sql open")
	}
	return bun.NewDB(sqldb, dialect), nil
}

func dialectFor(driver string) (schema.Dialect, error) {
	switch driver {
	case DriverPostgres:
		return pgdialect.New(), nil
	case DriverSQLite:
		return sqlitedialect.New(), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedDriver, "%q", driver)
	}
}
