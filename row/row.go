// Package row holds materialized result rows and the typed accessors used by
// row projectors to turn them into entity values.
package row

import (
	"database/sql"
	"math"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/goliatone/go-query-cache/entity"
)

var (
	// ErrUnknownColumn is returned when a row has no column with the requested name.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrType is returned when a column value cannot be converted to the requested type.
	ErrType = errors.New("column type mismatch")
)

// Projector maps one decoded row to one entity value.
// Errors returned by a projector are propagated to callers unchanged.
type Projector[T any] func(r Row) (T, error)

// Row is a single decoded row: ordered column names and their values.
type Row struct {
	columns []string
	values  []any
	index   map[string]int
}

// New builds a row. columns and values must have the same length.
func New(columns []string, values []any) Row {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	return Row{columns: columns, values: values, index: index}
}

// FromMap builds a row from a column map, ordering columns as given.
func FromMap(columns []string, m map[string]any) Row {
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = m[c]
	}
	return New(columns, values)
}

// Columns returns the column names in result order.
func (r Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.columns)
}

// Value returns the raw value of column.
func (r Row) Value(column string) (any, error) {
	i, ok := r.index[column]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownColumn, "%q", column)
	}
	return r.values[i], nil
}

// Map returns the row as a column to value map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// Get reads column as T.
//
// A NULL column yields the zero value when T is a pointer, interface, slice
// or map, and ErrType otherwise. Values that are not directly assignable are
// scanned when T implements sql.Scanner. Numbers convert between numeric
// types only when the value survives unchanged: int64(36) reads as int32,
// float64(2) reads as int, but 1.9 or 5e9 into an int32 are ErrType.
func Get[T any](r Row, column string) (T, error) {
	var zero T
	raw, err := r.Value(column)
	if err != nil {
		return zero, err
	}

	if v, ok := raw.(T); ok {
		return v, nil
	}

	target := reflect.TypeOf((*T)(nil)).Elem()

	if raw == nil {
		if nullable(target) {
			return zero, nil
		}
		return zero, errors.Wrapf(ErrType, "column %q is NULL, %s is not nullable", column, target)
	}

	var out T
	if scanner, ok := any(&out).(sql.Scanner); ok {
		if err := scanner.Scan(raw); err != nil {
			return zero, errors.Wrapf(ErrType, "column %q: %v", column, err)
		}
		return out, nil
	}

	if target.Kind() == reflect.Pointer {
		elem, err := convert(raw, target.Elem())
		if err != nil {
			return zero, errors.Wrapf(ErrType, "column %q: %v", column, err)
		}
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(elem)
		return ptr.Interface().(T), nil
	}

	v, err := convert(raw, target)
	if err != nil {
		return zero, errors.Wrapf(ErrType, "column %q: %v", column, err)
	}
	return v.Interface().(T), nil
}

// Identifier reads a 16-byte binary column.
func (r Row) Identifier(column string) (entity.Identifier, error) {
	raw, err := r.Value(column)
	if err != nil {
		return entity.Identifier{}, err
	}
	var id entity.Identifier
	if err := id.Scan(raw); err != nil {
		return entity.Identifier{}, errors.Wrapf(ErrType, "column %q: %v", column, err)
	}
	return id, nil
}

// PreciseTime reads a 64-bit tick count column.
func (r Row) PreciseTime(column string) (entity.PreciseTime, error) {
	raw, err := r.Value(column)
	if err != nil {
		return entity.PreciseTime{}, err
	}
	var p entity.PreciseTime
	if err := p.Scan(raw); err != nil {
		return entity.PreciseTime{}, errors.Wrapf(ErrType, "column %q: %v", column, err)
	}
	return p, nil
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	default:
		return false
	}
}

func convert(raw any, target reflect.Type) (reflect.Value, error) {
	v := reflect.ValueOf(raw)
	if v.Type().AssignableTo(target) {
		return v, nil
	}
	// []byte from drivers that return text columns as bytes.
	if b, ok := raw.([]byte); ok && target.Kind() == reflect.String {
		return reflect.ValueOf(string(b)).Convert(target), nil
	}
	if numeric(v.Kind()) && numeric(target.Kind()) {
		return convertNumber(v, target)
	}
	if v.Type().ConvertibleTo(target) && !numeric(v.Kind()) && !numeric(target.Kind()) {
		return v.Convert(target), nil
	}
	return reflect.Value{}, errors.Newf("cannot convert %T to %s", raw, target)
}

// convertNumber converts v to target, failing instead of truncating,
// wrapping or rounding.
func convertNumber(v reflect.Value, target reflect.Type) (reflect.Value, error) {
	out := reflect.New(target).Elem()
	lossy := func() (reflect.Value, error) {
		return reflect.Value{}, errors.Newf("%v does not fit in %s", v.Interface(), target)
	}

	switch {
	case signed(v.Kind()):
		n := v.Int()
		switch {
		case signed(target.Kind()):
			if out.OverflowInt(n) {
				return lossy()
			}
			out.SetInt(n)
		case unsigned(target.Kind()):
			if n < 0 || out.OverflowUint(uint64(n)) {
				return lossy()
			}
			out.SetUint(uint64(n))
		default:
			f := float64(n)
			if f >= 0x1p63 || int64(f) != n || !setFloat(out, f) {
				return lossy()
			}
		}

	case unsigned(v.Kind()):
		u := v.Uint()
		switch {
		case signed(target.Kind()):
			if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
				return lossy()
			}
			out.SetInt(int64(u))
		case unsigned(target.Kind()):
			if out.OverflowUint(u) {
				return lossy()
			}
			out.SetUint(u)
		default:
			f := float64(u)
			if f >= 0x1p64 || uint64(f) != u || !setFloat(out, f) {
				return lossy()
			}
		}

	default:
		f := v.Float()
		switch {
		case signed(target.Kind()):
			// NaN fails the Trunc comparison.
			if f != math.Trunc(f) || f < -0x1p63 || f >= 0x1p63 || out.OverflowInt(int64(f)) {
				return lossy()
			}
			out.SetInt(int64(f))
		case unsigned(target.Kind()):
			if f != math.Trunc(f) || f < 0 || f >= 0x1p64 || out.OverflowUint(uint64(f)) {
				return lossy()
			}
			out.SetUint(uint64(f))
		default:
			if !setFloat(out, f) {
				return lossy()
			}
		}
	}
	return out, nil
}

// setFloat stores f in a float32 or float64 value, refusing to round.
func setFloat(out reflect.Value, f float64) bool {
	if out.Kind() == reflect.Float32 && float64(float32(f)) != f && !math.IsNaN(f) {
		return false
	}
	out.SetFloat(f)
	return true
}

func signed(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func unsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}

func numeric(k reflect.Kind) bool {
	return signed(k) || unsigned(k) || k == reflect.Float32 || k == reflect.Float64
}
