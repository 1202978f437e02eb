package entity

import (
	"database/sql/driver"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// TicksPerSecond is the resolution of a PreciseTime tick (100ns).
const TicksPerSecond = int64(time.Second / tickDuration)

const tickDuration = 100 * time.Nanosecond

// unixEpochTicks is the tick count of 1970-01-01T00:00:00Z.
const unixEpochTicks int64 = 621355968000000000

// PreciseTime is a point in time stored as a signed 64-bit count of 100ns
// ticks since 0001-01-01T00:00:00Z UTC. Two values are equal only when their
// tick counts are equal.
type PreciseTime struct {
	ticks int64
}

// NewPreciseTime returns the PreciseTime for the given tick count.
func NewPreciseTime(ticks int64) PreciseTime {
	return PreciseTime{ticks: ticks}
}

// PreciseNow returns the current time truncated to tick resolution.
func PreciseNow() PreciseTime {
	return FromTime(time.Now())
}

// FromTime converts t, truncating sub-tick precision.
func FromTime(t time.Time) PreciseTime {
	t = t.UTC()
	secs := t.Unix()
	return PreciseTime{ticks: unixEpochTicks + secs*TicksPerSecond + int64(t.Nanosecond())/int64(tickDuration)}
}

// Ticks returns the raw tick count.
func (p PreciseTime) Ticks() int64 {
	return p.ticks
}

// Time converts back to a UTC time.Time.
func (p PreciseTime) Time() time.Time {
	rel := p.ticks - unixEpochTicks
	secs := rel / TicksPerSecond
	rem := rel % TicksPerSecond
	if rem < 0 {
		secs--
		rem += TicksPerSecond
	}
	return time.Unix(secs, rem*int64(tickDuration)).UTC()
}

// Before reports whether p is strictly earlier than o.
func (p PreciseTime) Before(o PreciseTime) bool { return p.ticks < o.ticks }

// After reports whether p is strictly later than o.
func (p PreciseTime) After(o PreciseTime) bool { return p.ticks > o.ticks }

// IsZero reports whether p is the epoch, 0001-01-01T00:00:00Z.
func (p PreciseTime) IsZero() bool { return p.ticks == 0 }

// String formats p as RFC 3339 with 100ns precision.
func (p PreciseTime) String() string {
	return p.Time().Format(time.RFC3339Nano)
}

// Value implements driver.Valuer. PreciseTime is stored as a BIGINT tick count.
func (p PreciseTime) Value() (driver.Value, error) {
	return p.ticks, nil
}

// Scan implements sql.Scanner.
func (p *PreciseTime) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		p.ticks = v
	case int32:
		p.ticks = int64(v)
	case int:
		p.ticks = int64(v)
	case nil:
		return errors.New("cannot scan NULL into PreciseTime")
	default:
		return errors.Newf("cannot scan %T into PreciseTime", src)
	}
	return nil
}

// MarshalJSON encodes the tick count as a JSON number.
func (p PreciseTime) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, p.ticks, 10), nil
}

// UnmarshalJSON decodes a JSON number of ticks.
func (p *PreciseTime) UnmarshalJSON(data []byte) error {
	ticks, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return errors.Wrap(err, "decode PreciseTime")
	}
	p.ticks = ticks
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (p PreciseTime) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeInt(p.ticks)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (p *PreciseTime) DecodeMsgpack(dec *msgpack.Decoder) error {
	ticks, err := dec.DecodeInt64()
	if err != nil {
		return errors.Wrap(err, "decode PreciseTime")
	}
	p.ticks = ticks
	return nil
}
