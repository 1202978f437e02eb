package row

import (
	"database/sql"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/goliatone/go-query-cache/entity"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	r := New(
		[]string{"id", "name", "age", "nickname", "raw"},
		[]any{int64(7), []byte("ada"), int64(36), nil, []byte{1, 2}},
	)

	id, err := Get[int64](r, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	name, err := Get[string](r, "name")
	require.NoError(t, err)
	assert.Equal(t, "ada", name)

	age, err := Get[int32](r, "age")
	require.NoError(t, err)
	assert.Equal(t, int32(36), age)

	nick, err := Get[*string](r, "nickname")
	require.NoError(t, err)
	assert.Nil(t, nick)

	agePtr, err := Get[*int](r, "age")
	require.NoError(t, err)
	require.NotNil(t, agePtr)
	assert.Equal(t, 36, *agePtr)

	raw, err := Get[[]byte](r, "raw")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, raw)
}

func TestGet_LosslessNumbers(t *testing.T) {
	r := New(
		[]string{"whole", "small", "count", "ratio"},
		[]any{2.0, int64(-5), uint64(9), float32(0.5)},
	)

	whole, err := Get[int](r, "whole")
	require.NoError(t, err)
	assert.Equal(t, 2, whole)

	small, err := Get[int8](r, "small")
	require.NoError(t, err)
	assert.Equal(t, int8(-5), small)

	asFloat, err := Get[float64](r, "small")
	require.NoError(t, err)
	assert.Equal(t, -5.0, asFloat)

	count, err := Get[int32](r, "count")
	require.NoError(t, err)
	assert.Equal(t, int32(9), count)

	ratio, err := Get[float64](r, "ratio")
	require.NoError(t, err)
	assert.Equal(t, 0.5, ratio)
}

func TestGet_Errors(t *testing.T) {
	r := New(
		[]string{"n", "s", "fraction", "big", "negative", "precise"},
		[]any{nil, "text", 1.9, int64(5_000_000_000), int64(-1), 0.1},
	)

	tests := []struct {
		name string
		get  func() error
		want error
	}{
		{"null into value type", func() error { _, err := Get[int64](r, "n"); return err }, ErrType},
		{"string into integer", func() error { _, err := Get[int64](r, "s"); return err }, ErrType},
		{"integer into string", func() error { _, err := Get[string](r, "big"); return err }, ErrType},
		{"fraction into int", func() error { _, err := Get[int](r, "fraction"); return err }, ErrType},
		{"fraction into int64", func() error { _, err := Get[int64](r, "fraction"); return err }, ErrType},
		{"fraction into pointer", func() error { _, err := Get[*int](r, "fraction"); return err }, ErrType},
		{"5e9 into int32", func() error { _, err := Get[int32](r, "big"); return err }, ErrType},
		{"negative into uint", func() error { _, err := Get[uint](r, "negative"); return err }, ErrType},
		{"float64 into float32 with rounding", func() error { _, err := Get[float32](r, "precise"); return err }, ErrType},
		{"missing column", func() error { _, err := Get[string](r, "missing"); return err }, ErrUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.get()
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestGet_Scanner(t *testing.T) {
	id := entity.NewIdentifier()
	r := New([]string{"id"}, []any{id.Bytes()})

	got, err := Get[entity.Identifier](r, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestIdentifierAndPreciseTime(t *testing.T) {
	id := entity.NewIdentifier()
	when := entity.PreciseNow()
	r := New([]string{"id", "at", "bad"}, []any{id.Bytes(), when.Ticks(), []byte{1, 2, 3}})

	gotID, err := r.Identifier("id")
	require.NoError(t, err)
	assert.Equal(t, id, gotID)

	gotAt, err := r.PreciseTime("at")
	require.NoError(t, err)
	assert.Equal(t, when, gotAt)

	_, err = r.Identifier("bad")
	assert.True(t, errors.Is(err, ErrType))

	_, err = r.PreciseTime("id")
	assert.True(t, errors.Is(err, ErrType))
}

func TestMapAndColumns(t *testing.T) {
	r := FromMap([]string{"b", "a"}, map[string]any{"a": 1, "b": 2})
	assert.Equal(t, []string{"b", "a"}, r.Columns())
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, r.Map())
	assert.Equal(t, 2, r.Len())
}

func TestScanAll(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, label TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO items (id, label) VALUES (1, 'a'), (2, 'b'), (3, 'c')`)
	require.NoError(t, err)

	rows, err := db.Query(`SELECT id, label FROM items ORDER BY id DESC`)
	require.NoError(t, err)

	got, err := ScanAll(rows)
	require.NoError(t, err)
	require.Len(t, got, 3)

	var labels []string
	for _, r := range got {
		l, err := Get[string](r, "label")
		require.NoError(t, err)
		labels = append(labels, l)
	}
	assert.Equal(t, []string{"c", "b", "a"}, labels)

	empty, err := db.Query(`SELECT id FROM items WHERE id > 100`)
	require.NoError(t, err)
	none, err := ScanAll(empty)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
