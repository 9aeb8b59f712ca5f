// Package identity implements the signer and verifier side of the protocol
// (spec §4.3, §4.4): anonymous, Ed25519, and ECDSA P-256 identities, key
// encoding, and the sender address derivation rule (SHA3-224 of the
// canonical public key).
//
// The reference implementation layers this on COSE (RFC 8152) via the Rust
// `coset` crate. No pack example vendors a Go COSE library, so keys here are
// encoded with the same deterministic CBOR profile used everywhere else
// (pkg/mcbor) instead of full COSE — a narrower but compatible substitute
// documented in DESIGN.md.
package identity

import (
	"github.com/synnergy-chain/manynet/pkg/address"
)

// Algorithm names the signature scheme of a Key.
type Algorithm string

const (
	AlgorithmEdDSA     Algorithm = "EdDSA"
	AlgorithmES256     Algorithm = "ES256"
	AlgorithmAnonymous Algorithm = ""
)

// Identity signs requests on behalf of an Address.
type Identity interface {
	Address() address.Address
	PublicKey() (Key, bool)
	Sign(message []byte) ([]byte, error)
}

// Verifier checks a signature produced by some Identity against a known or
// embedded public key.
type Verifier interface {
	Verify(addr address.Address, key Key, message, signature []byte) error
}

// AnonymousIdentity signs nothing; every request it produces is unsigned and
// its sender address is address.Anonymous (§4.3).
type AnonymousIdentity struct{}

func (AnonymousIdentity) Address() address.Address { return address.Anonymous }
func (AnonymousIdentity) PublicKey() (Key, bool)    { return Key{}, false }
func (AnonymousIdentity) Sign([]byte) ([]byte, error) {
	return nil, nil
}
