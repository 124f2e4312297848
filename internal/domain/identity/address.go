package identity

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// AddressLength is the number of bytes in an Address.
const AddressLength = 20

var (
	ErrMalformedAddress = errors.New("identity: malformed address")
	ErrZeroAddress      = errors.New("identity: zero address")
)

// Address is an opaque account identity. Equality is the only operation the
// shop relies on; the zero value is the null identity.
type Address [AddressLength]byte

// Zero is the null identity.
var Zero Address

// Parse decodes a 0x-prefixed, 40 hex digit address. Input is case-insensitive.
func Parse(s string) (Address, error) {
	var a Address
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return a, fmt.Errorf("%w: missing 0x prefix", ErrMalformedAddress)
	}
	raw := s[2:]
	if len(raw) != AddressLength*2 {
		return a, fmt.Errorf("%w: want %d hex digits, got %d", ErrMalformedAddress, AddressLength*2, len(raw))
	}
	if _, err := hex.Decode(a[:], []byte(raw)); err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrMalformedAddress, err)
	}
	return a, nil
}

// ParseNonZero is Parse that also rejects the null identity.
func ParseNonZero(s string) (Address, error) {
	a, err := Parse(s)
	if err != nil {
		return a, err
	}
	if a.IsZero() {
		return a, ErrZeroAddress
	}
	return a, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// NewRandom returns a random non-zero address.
func NewRandom() (Address, error) {
	var a Address
	for a.IsZero() {
		if _, err := rand.Read(a[:]); err != nil {
			return Address{}, fmt.Errorf("identity: generate address: %w", err)
		}
	}
	return a, nil
}

func (a Address) IsZero() bool { return a == Zero }

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
