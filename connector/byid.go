package connector

import (
	"context"
	"strings"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/entity"
)

// Execer runs statements that return no rows.
type Execer interface {
	Exec(ctx context.Context, text string, params ...any) (int64, error)
}

// Table names the table and columns an ID connector works on.
// An empty Columns list selects every column.
type Table struct {
	Name     string
	IDColumn string
	Columns  []string
}

// ByID retrieves and deletes entities of one table by Identifier.
//
// Fingerprints ignore parameters, so the identifier is also embedded in the
// query text as a trailing comment: each ID gets its own cache slot while the
// value itself still travels as a bound parameter.
type ByID[T any] struct {
	conn  *Connector[T]
	exec  Execer
	table Table
}

// NewByID builds an ID connector reading through conn and deleting through
// exec.
func NewByID[T any](conn *Connector[T], exec Execer, table Table) (*ByID[T], error) {
	if conn == nil {
		return nil, nullArgument("connector")
	}
	if exec == nil {
		return nil, nullArgument("execer")
	}
	if table.Name == "" {
		return nil, nullArgument("table name")
	}
	if table.IDColumn == "" {
		return nil, nullArgument("id column")
	}
	return &ByID[T]{conn: conn, exec: exec, table: table}, nil
}

// GetByID retrieves the entity with id. It has GetEntity's semantics: a
// cached fingerprint yields CacheHit, no row yields an absent value and more
// than one row fails with ErrTooManyRows.
func (b *ByID[T]) GetByID(ctx context.Context, id entity.Identifier) (Outcome[Optional[T]], error) {
	if id.IsZero() {
		return Outcome[Optional[T]]{}, nullArgument("id")
	}
	return b.conn.GetEntity(ctx, b.selectText(id), id)
}

// DeleteByID deletes the entity with id. It returns the fingerprint GetByID
// uses for id so the caller can invalidate its cached value; the connector
// does not touch the cache.
func (b *ByID[T]) DeleteByID(ctx context.Context, id entity.Identifier) (cache.Fingerprint, error) {
	if id.IsZero() {
		return cache.Fingerprint{}, nullArgument("id")
	}

	text := "DELETE FROM " + b.table.Name + " WHERE " + b.table.IDColumn + " = ?"
	if _, err := b.exec.Exec(ctx, text, id); err != nil {
		return cache.Fingerprint{}, err
	}
	return b.Fingerprint(id), nil
}

// TextPrefix is the query text shared by every GetByID fingerprint of this
// table. Pass it to cache.Store.InvalidatePrefix to drop all per-id entries
// at once, for example after a bulk update.
func (b *ByID[T]) TextPrefix() string {
	text := b.selectText(entity.Identifier{})
	return text[:strings.LastIndex(text, "/* id:")+len("/* id:")]
}

// Fingerprint returns the fingerprint GetByID uses for id.
func (b *ByID[T]) Fingerprint(id entity.Identifier) cache.Fingerprint {
	return cache.NewFingerprint(b.selectText(id))
}

func (b *ByID[T]) selectText(id entity.Identifier) string {
	columns := "*"
	if len(b.table.Columns) > 0 {
		columns = strings.Join(b.table.Columns, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(columns)
	sb.WriteString(" FROM ")
	sb.WriteString(b.table.Name)
	sb.WriteString(" WHERE ")
	sb.WriteString(b.table.IDColumn)
	sb.WriteString(" = ? /* id:")
	sb.WriteString(id.String())
	sb.WriteString(" */")
	return sb.String()
}
