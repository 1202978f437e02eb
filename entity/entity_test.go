package entity

import (
	"crypto/rand"
	"encoding/json"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestIdentifierRoundTrip(t *testing.T) {
	inputs := [][]byte{
		make([]byte, IdentifierSize),
		{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	}
	for i := 0; i < 64; i++ {
		b := make([]byte, IdentifierSize)
		_, err := rand.Read(b)
		require.NoError(t, err)
		inputs = append(inputs, b)
	}

	for _, in := range inputs {
		id, err := IdentifierFromBytes(in)
		require.NoError(t, err)
		assert.Equal(t, in, id.Bytes())

		again, err := IdentifierFromBytes(id.Bytes())
		require.NoError(t, err)
		assert.Equal(t, id, again)
	}
}

func TestIdentifierFromBytes_WrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 15, 17, 32} {
		_, err := IdentifierFromBytes(make([]byte, n))
		assert.True(t, errors.Is(err, ErrIdentifierLength), "length %d", n)
	}
}

func TestIdentifierBytesIsACopy(t *testing.T) {
	id := NewIdentifier()
	b := id.Bytes()
	b[0] ^= 0xff
	assert.NotEqual(t, b, id.Bytes())
}

func TestIdentifierUUIDInterop(t *testing.T) {
	u := uuid.New()
	id := IdentifierFromUUID(u)
	assert.Equal(t, u, id.UUID())
	assert.Equal(t, u.String(), id.String())

	parsed, err := ParseIdentifier(u.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestIdentifierScan(t *testing.T) {
	id := NewIdentifier()

	var fromBlob Identifier
	require.NoError(t, fromBlob.Scan(id.Bytes()))
	assert.Equal(t, id, fromBlob)

	var fromText Identifier
	require.NoError(t, fromText.Scan(id.String()))
	assert.Equal(t, id, fromText)

	var bad Identifier
	assert.Error(t, bad.Scan(nil))
	assert.Error(t, bad.Scan(42))

	v, err := id.Value()
	require.NoError(t, err)
	assert.Equal(t, id.Bytes(), v)
}

func TestPreciseTimeRoundTrip(t *testing.T) {
	ref := time.Date(2024, time.March, 9, 17, 4, 5, 123456700, time.UTC)
	p := FromTime(ref)
	assert.True(t, ref.Equal(p.Time()))
	assert.Equal(t, p, NewPreciseTime(p.Ticks()))
}

func TestPreciseTimeKnownTicks(t *testing.T) {
	assert.Equal(t, unixEpochTicks, FromTime(time.Unix(0, 0)).Ticks())
	assert.Equal(t, int64(0), FromTime(time.Time{}).Ticks())
	assert.True(t, NewPreciseTime(0).Time().Equal(time.Time{}))
}

func TestPreciseTimeTruncatesBelowTick(t *testing.T) {
	ref := time.Date(2020, 1, 1, 0, 0, 0, 150, time.UTC)
	assert.Equal(t, FromTime(ref.Add(-50)), FromTime(ref))
	assert.Equal(t, 100, FromTime(ref).Time().Nanosecond())
}

func TestPreciseTimeOrdering(t *testing.T) {
	a := NewPreciseTime(10)
	b := NewPreciseTime(11)
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
	assert.NotEqual(t, a, b)

	assert.True(t, PreciseTime{}.IsZero())
	assert.False(t, a.IsZero())
	assert.Equal(t, "0001-01-01T00:00:00.0000011Z", b.String())
}

func TestPreciseTimeScan(t *testing.T) {
	var p PreciseTime
	require.NoError(t, p.Scan(int64(1234)))
	assert.Equal(t, int64(1234), p.Ticks())
	assert.Error(t, p.Scan("nope"))
	assert.Error(t, p.Scan(nil))
}

type record struct {
	ID      Identifier  `json:"id" msgpack:"id"`
	Created PreciseTime `json:"created" msgpack:"created"`
}

func TestEncodingsAreLossless(t *testing.T) {
	in := record{ID: NewIdentifier(), Created: NewPreciseTime(638000000000000001)}

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(in)
		require.NoError(t, err)
		assert.Contains(t, string(data), in.ID.String())
		assert.Contains(t, string(data), "638000000000000001")

		var out record
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, in, out)
	})

	t.Run("msgpack", func(t *testing.T) {
		data, err := msgpack.Marshal(in)
		require.NoError(t, err)

		var out record
		require.NoError(t, msgpack.Unmarshal(data, &out))
		assert.Equal(t, in, out)
	})

	t.Run("bad input", func(t *testing.T) {
		var out record
		assert.Error(t, json.Unmarshal([]byte(`{"id":"nope"}`), &out))
		assert.Error(t, json.Unmarshal([]byte(`{"created":"soon"}`), &out))
	})
}
