// Package address implements the 32-byte tagged address used throughout the
// MANY protocol (see spec §3, §4.1): anonymous, public-key, and subresource
// identities with a textual encoding whose checksum detects corruption.
package address

import (
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Size is the fixed on-wire byte length of an Address.
const Size = 32

// HashSize is the length of the embedded public-key hash (SHA3-224 output).
const HashSize = 28

// MaxSubresourceID is the largest subresource id representable in the
// reserved 31 bits (§4.1).
const MaxSubresourceID uint32 = 0x7FFF_FFFF

const (
	tagAnonymous    byte = 0x00
	tagPublicKey    byte = 0x01
	tagSubresource1 byte = 0x80 // low end of the subresource tag range
)

// Address is a 32-byte tagged identifier. The zero value is the anonymous
// address.
type Address [Size]byte

// Anonymous is the reserved all-zero address.
var Anonymous = Address{}

// InvalidIdentityError reports a malformed address, matching the identity
// error band of spec §7 (-100..-199).
type InvalidIdentityError struct {
	Reason string
}

func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("invalid identity: %s", e.Reason)
}

func invalid(reason string) error { return &InvalidIdentityError{Reason: reason} }

// FromBytes decodes a raw address. Valid lengths are 1 (anonymous), 29
// (public-key), or 32 (subresource) bytes; anything else is rejected.
func FromBytes(b []byte) (Address, error) {
	if len(b) == 0 {
		return Address{}, invalid("empty identity")
	}
	switch {
	case b[0] == tagAnonymous:
		if len(b) > 1 {
			return Address{}, invalid("anonymous identity must be exactly one byte")
		}
		return Address{}, nil
	case b[0] == tagPublicKey:
		if len(b) != 1+HashSize {
			return Address{}, invalid("public-key identity must be 29 bytes")
		}
		var a Address
		a[0] = tagPublicKey
		copy(a[1:1+HashSize], b[1:])
		return a, nil
	case b[0] >= tagSubresource1:
		if len(b) != Size {
			return Address{}, invalid("subresource identity must be 32 bytes")
		}
		var a Address
		copy(a[:], b)
		return a, nil
	default:
		return Address{}, invalid(fmt.Sprintf("unknown identity tag 0x%02x", b[0]))
	}
}

// FromPublicKeyHash builds a public-key address from a SHA3-224 hash.
func FromPublicKeyHash(hash [HashSize]byte) Address {
	var a Address
	a[0] = tagPublicKey
	copy(a[1:1+HashSize], hash[:])
	return a
}

// HashFromPublicKey derives the address hash (SHA3-224) of a canonical
// public-key encoding (§4.3: "sender address is derived as
// SHA3-224(canonical_public_key_cbor)").
func HashFromPublicKey(canonicalPublicKey []byte) [HashSize]byte {
	var out [HashSize]byte
	sum := sha3.Sum224(canonicalPublicKey)
	copy(out[:], sum[:])
	return out
}

// IsAnonymous reports whether a is the anonymous address.
func (a Address) IsAnonymous() bool { return a[0] == tagAnonymous }

// IsPublicKey reports whether a is a bare public-key address.
func (a Address) IsPublicKey() bool { return a[0] == tagPublicKey }

// IsSubresource reports whether a carries a subresource id.
func (a Address) IsSubresource() bool { return a[0] >= tagSubresource1 }

// hash returns the embedded public-key hash, or false for the anonymous
// address (mirrors InnerAddress::hash in the original implementation).
func (a Address) hash() ([HashSize]byte, bool) {
	if a.IsAnonymous() {
		return [HashSize]byte{}, false
	}
	var h [HashSize]byte
	copy(h[:], a[1:1+HashSize])
	return h, true
}

// SubresourceID returns the packed 31-bit subresource id and true if a is a
// subresource address.
func (a Address) SubresourceID() (uint32, bool) {
	if !a.IsSubresource() {
		return 0, false
	}
	high := uint32(a[0]&0x7F) << 24
	low := uint32(a[1+HashSize])<<16 | uint32(a[2+HashSize])<<8 | uint32(a[3+HashSize])
	return high | low, true
}

// WithSubresourceID derives a subresource address sharing a's public-key
// hash. It fails on the anonymous address (no hash to share) and on ids
// outside [0, 2^31).
func (a Address) WithSubresourceID(id uint32) (Address, error) {
	if id > MaxSubresourceID {
		return Address{}, invalid("subresource id out of range")
	}
	h, ok := a.hash()
	if !ok {
		return Address{}, invalid("cannot attach a subresource id to the anonymous address")
	}
	var out Address
	out[0] = tagSubresource1 | byte((id>>24)&0x7F)
	copy(out[1:1+HashSize], h[:])
	out[1+HashSize] = byte((id >> 16) & 0xFF)
	out[2+HashSize] = byte((id >> 8) & 0xFF)
	out[3+HashSize] = byte(id & 0xFF)
	return out, nil
}

// ToVec returns the shortest valid encoding: 1 byte for anonymous, 29 for a
// bare public key, 32 for a subresource.
func (a Address) ToVec() []byte {
	switch {
	case a.IsAnonymous():
		return []byte{tagAnonymous}
	case a.IsPublicKey():
		out := make([]byte, 1+HashSize)
		copy(out, a[:1+HashSize])
		return out
	default:
		out := make([]byte, Size)
		copy(out, a[:])
		return out
	}
}

// Matches reports whether a and other share the same tag class and
// public-key hash, ignoring any subresource id. Two anonymous addresses
// always match each other and nothing else.
func (a Address) Matches(other Address) bool {
	if a.IsAnonymous() || other.IsAnonymous() {
		return a.IsAnonymous() && other.IsAnonymous()
	}
	ah, _ := a.hash()
	oh, _ := other.hash()
	return ah == oh
}

// CanSign reports whether this address class is capable of being a
// validated request sender (public-key or subresource, never anonymous).
func (a Address) CanSign() bool { return a.IsPublicKey() || a.IsSubresource() }
