package crypto

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressLength is the size of an Address in bytes.
const AddressLength = 20

// AddressPrefix is the human-readable part used when rendering addresses.
const AddressPrefix = "iso"

// Address identifies an account, token, oracle, rate model or the ledger
// itself. It is a comparable value type and may be used as a map key.
type Address [AddressLength]byte

// ZeroAddress is the unset identity.
var ZeroAddress Address

// NewAddress copies exactly AddressLength bytes into an Address.
func NewAddress(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, fmt.Errorf("address must be %d bytes long, got %d", AddressLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// MustNewAddress is NewAddress for constant inputs.
func MustNewAddress(b []byte) Address {
	a, err := NewAddress(b)
	if err != nil {
		panic(err)
	}
	return a
}

// DeriveAddress returns a deterministic identity for a label. Simulation
// harnesses use it to name accounts and collaborators reproducibly.
func DeriveAddress(label string) Address {
	digest := ethcrypto.Keccak256([]byte(strings.TrimSpace(label)))
	return MustNewAddress(digest[len(digest)-AddressLength:])
}

// IsZero reports whether the address is the zero identity.
func (a Address) IsZero() bool { return a == ZeroAddress }

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// Word returns the address left-padded to a 32-byte word.
func (a Address) Word() []byte {
	word := make([]byte, 32)
	copy(word[32-AddressLength:], a[:])
	return word
}

// Hex renders the address as 0x-prefixed hex.
func (a Address) Hex() string { return hexutil.Encode(a[:]) }

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Compare orders addresses bytewise.
func (a Address) Compare(other Address) int { return bytes.Compare(a[:], other[:]) }

// DecodeAddress parses either the bech32 or the 0x-hex form of an address.
func DecodeAddress(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		raw, err := hexutil.Decode(trimmed)
		if err != nil {
			return Address{}, fmt.Errorf("invalid hex address: %w", err)
		}
		return NewAddress(raw)
	}
	prefix, decoded, err := bech32.Decode(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if prefix != AddressPrefix {
		return Address{}, fmt.Errorf("unexpected address prefix %q", prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(conv)
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	decoded, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}
