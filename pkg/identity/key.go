package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
)

// Key is the canonical, CBOR-encodable public key carried in a signed
// envelope's protected headers (§4.3). Field 0 names the algorithm, field 1
// holds the algorithm-specific encoding (raw 32-byte Ed25519 point, or
// uncompressed SEC1 point for ES256).
type Key struct {
	Alg Algorithm `cbor:"0,keyasint"`
	Pub []byte    `cbor:"1,keyasint"`
}

// Canonical returns the deterministic CBOR encoding used to derive the
// owning address (§4.3: "sender address is SHA3-224(canonical_public_key)").
func (k Key) Canonical() ([]byte, error) {
	return mcbor.Marshal(k)
}

// Address derives the public-key address owning this Key.
func (k Key) Address() (address.Address, error) {
	canon, err := k.Canonical()
	if err != nil {
		return address.Address{}, err
	}
	return address.FromPublicKeyHash(address.HashFromPublicKey(canon)), nil
}

// ecdsaPublicKeyFromBytes decodes an uncompressed SEC1 P-256 public key.
func ecdsaPublicKeyFromBytes(b []byte) (*ecdsa.PublicKey, error) {
	x, y := elliptic.Unmarshal(elliptic.P256(), b)
	if x == nil {
		return nil, fmt.Errorf("identity: invalid P-256 public key encoding")
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

func ecdsaPublicKeyToBytes(pub *ecdsa.PublicKey) []byte {
	return elliptic.Marshal(elliptic.P256(), pub.X, pub.Y)
}
