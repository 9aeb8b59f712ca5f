package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/synnergy-chain/manynet/pkg/address"
)

// Ed25519Identity signs with an EdDSA keypair, mirroring
// Ed25519IdentityInner in the reference implementation.
type Ed25519Identity struct {
	addr address.Address
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewEd25519Identity derives the owning address from pub and wraps the pair.
func NewEd25519Identity(pub ed25519.PublicKey, priv ed25519.PrivateKey) (*Ed25519Identity, error) {
	key := Key{Alg: AlgorithmEdDSA, Pub: append([]byte(nil), pub...)}
	addr, err := key.Address()
	if err != nil {
		return nil, err
	}
	return &Ed25519Identity{addr: addr, pub: pub, priv: priv}, nil
}

// GenerateEd25519Identity creates a fresh random keypair, used by tests and
// the genesis bootstrap tool.
func GenerateEd25519Identity() (*Ed25519Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewEd25519Identity(pub, priv)
}

func (i *Ed25519Identity) Address() address.Address { return i.addr }

func (i *Ed25519Identity) PublicKey() (Key, bool) {
	return Key{Alg: AlgorithmEdDSA, Pub: append([]byte(nil), i.pub...)}, true
}

func (i *Ed25519Identity) Sign(message []byte) ([]byte, error) {
	if i.priv == nil {
		return nil, fmt.Errorf("identity: ed25519 identity has no private key")
	}
	return ed25519.Sign(i.priv, message), nil
}

// Ed25519Verifier verifies EdDSA signatures against the Key embedded in the
// envelope (or supplied out of band for a shared/known identity).
type Ed25519Verifier struct{}

func (Ed25519Verifier) Verify(addr address.Address, key Key, message, signature []byte) error {
	if key.Alg != AlgorithmEdDSA {
		return fmt.Errorf("identity: key algorithm %q is not EdDSA", key.Alg)
	}
	derived, err := key.Address()
	if err != nil {
		return err
	}
	if !derived.Matches(addr) {
		return fmt.Errorf("identity: public key does not derive the claimed sender address")
	}
	if !ed25519.Verify(ed25519.PublicKey(key.Pub), message, signature) {
		return fmt.Errorf("identity: ed25519 signature verification failed")
	}
	return nil
}
