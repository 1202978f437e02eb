package entity

import (
	"database/sql/driver"
	"encoding/hex"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// IdentifierSize is the length in bytes of an encoded Identifier.
const IdentifierSize = 16

// ErrIdentifierLength is returned when decoding a byte slice that is not exactly IdentifierSize long.
var ErrIdentifierLength = errors.New("identifier must be exactly 16 bytes")

// Identifier is the fixed 16-byte binary identity of an entity.
// It is a value type: two identifiers are equal when their bytes are equal.
type Identifier [IdentifierSize]byte

// NewIdentifier returns a random Identifier.
func NewIdentifier() Identifier {
	return Identifier(uuid.New())
}

// IdentifierFromBytes decodes an Identifier from its 16-byte encoding.
func IdentifierFromBytes(b []byte) (Identifier, error) {
	var id Identifier
	if len(b) != IdentifierSize {
		return id, errors.Wrapf(ErrIdentifierLength, "got %d bytes", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// IdentifierFromUUID converts a uuid.UUID, which shares the same layout.
func IdentifierFromUUID(u uuid.UUID) Identifier {
	return Identifier(u)
}

// ParseIdentifier parses either the canonical UUID text form or 32 hex characters.
func ParseIdentifier(s string) (Identifier, error) {
	if len(s) == 2*IdentifierSize {
		b, err := hex.DecodeString(s)
		if err != nil {
			return Identifier{}, errors.Wrapf(err, "parse identifier %q", s)
		}
		return IdentifierFromBytes(b)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return Identifier{}, errors.Wrapf(err, "parse identifier %q", s)
	}
	return Identifier(u), nil
}

// Bytes returns a copy of the 16-byte encoding.
func (id Identifier) Bytes() []byte {
	b := make([]byte, IdentifierSize)
	copy(b, id[:])
	return b
}

// UUID returns the identifier as a uuid.UUID.
func (id Identifier) UUID() uuid.UUID {
	return uuid.UUID(id)
}

// IsZero reports whether every byte is zero.
func (id Identifier) IsZero() bool {
	return id == Identifier{}
}

func (id Identifier) String() string {
	return uuid.UUID(id).String()
}

// Value implements driver.Valuer. Identifiers are stored as 16-byte blobs.
func (id Identifier) Value() (driver.Value, error) {
	return id.Bytes(), nil
}

// Scan implements sql.Scanner.
func (id *Identifier) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		if len(v) == IdentifierSize {
			parsed, err := IdentifierFromBytes(v)
			if err != nil {
				return err
			}
			*id = parsed
			return nil
		}
		parsed, err := ParseIdentifier(string(v))
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	case string:
		parsed, err := ParseIdentifier(v)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	case nil:
		return errors.New("cannot scan NULL into Identifier")
	default:
		return errors.Newf("cannot scan %T into Identifier", src)
	}
}

// MarshalText encodes the identifier in UUID text form.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText accepts the forms ParseIdentifier accepts.
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentifier(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
