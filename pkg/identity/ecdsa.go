package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/synnergy-chain/manynet/pkg/address"
)

// ECDSAIdentity signs with an ES256 (P-256, SHA-256) keypair, the second
// signature scheme supported by the reference implementation alongside
// EdDSA.
type ECDSAIdentity struct {
	addr address.Address
	pub  *ecdsa.PublicKey
	priv *ecdsa.PrivateKey
}

// NewECDSAIdentity derives the owning address from pub and wraps the pair.
// priv may be nil for a verify-only identity.
func NewECDSAIdentity(pub *ecdsa.PublicKey, priv *ecdsa.PrivateKey) (*ECDSAIdentity, error) {
	key := Key{Alg: AlgorithmES256, Pub: ecdsaPublicKeyToBytes(pub)}
	addr, err := key.Address()
	if err != nil {
		return nil, err
	}
	return &ECDSAIdentity{addr: addr, pub: pub, priv: priv}, nil
}

// GenerateECDSAIdentity creates a fresh random P-256 keypair.
func GenerateECDSAIdentity() (*ECDSAIdentity, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewECDSAIdentity(&priv.PublicKey, priv)
}

func (i *ECDSAIdentity) Address() address.Address { return i.addr }

func (i *ECDSAIdentity) PublicKey() (Key, bool) {
	return Key{Alg: AlgorithmES256, Pub: ecdsaPublicKeyToBytes(i.pub)}, true
}

func (i *ECDSAIdentity) Sign(message []byte) ([]byte, error) {
	if i.priv == nil {
		return nil, fmt.Errorf("identity: ecdsa identity has no private key")
	}
	digest := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, i.priv, digest[:])
	if err != nil {
		return nil, err
	}
	return encodeRS(r, s), nil
}

// encodeRS concatenates r and s as fixed-width 32-byte big-endian halves,
// the "raw" ECDSA signature encoding used by COSE/ES256 (RFC 8152 §8.1),
// rather than ASN.1 DER.
func encodeRS(r, s *big.Int) []byte {
	out := make([]byte, 64)
	r.FillBytes(out[:32])
	s.FillBytes(out[32:])
	return out
}

// decodeRS accepts both the 64-byte raw encoding and ASN.1 DER, per §4.3
// ("accepts both DER and fixed-width raw signatures").
func decodeRS(sig []byte) (*big.Int, *big.Int, error) {
	if len(sig) == 64 {
		r := new(big.Int).SetBytes(sig[:32])
		s := new(big.Int).SetBytes(sig[32:])
		return r, s, nil
	}
	var der struct{ R, S *big.Int }
	if _, err := asn1.Unmarshal(sig, &der); err != nil {
		return nil, nil, fmt.Errorf("identity: ecdsa signature is neither 64-byte raw nor valid DER: %w", err)
	}
	return der.R, der.S, nil
}

// ECDSAVerifier verifies ES256 signatures.
type ECDSAVerifier struct{}

func (ECDSAVerifier) Verify(addr address.Address, key Key, message, signature []byte) error {
	if key.Alg != AlgorithmES256 {
		return fmt.Errorf("identity: key algorithm %q is not ES256", key.Alg)
	}
	derived, err := key.Address()
	if err != nil {
		return err
	}
	if !derived.Matches(addr) {
		return fmt.Errorf("identity: public key does not derive the claimed sender address")
	}
	pub, err := ecdsaPublicKeyFromBytes(key.Pub)
	if err != nil {
		return err
	}
	r, s, err := decodeRS(signature)
	if err != nil {
		return err
	}
	digest := sha256.Sum256(message)
	if !ecdsa.Verify(pub, digest[:], r, s) {
		return fmt.Errorf("identity: ecdsa signature verification failed")
	}
	return nil
}
