package identity

import (
	"fmt"

	"github.com/synnergy-chain/manynet/pkg/address"
)

// CompositeVerifier dispatches to the Verifier registered for a Key's
// algorithm, mirroring the small consumer-side interfaces the reference
// server composes its identity checks from.
type CompositeVerifier struct {
	byAlgorithm map[Algorithm]Verifier
}

// NewCompositeVerifier builds a verifier supporting EdDSA and ES256.
func NewCompositeVerifier() *CompositeVerifier {
	return &CompositeVerifier{byAlgorithm: map[Algorithm]Verifier{
		AlgorithmEdDSA: Ed25519Verifier{},
		AlgorithmES256: ECDSAVerifier{},
	}}
}

func (c *CompositeVerifier) Verify(addr address.Address, key Key, message, signature []byte) error {
	v, ok := c.byAlgorithm[key.Alg]
	if !ok {
		return fmt.Errorf("identity: unsupported signature algorithm %q", key.Alg)
	}
	return v.Verify(addr, key, message, signature)
}

// AnonymousVerifier accepts only an unsigned envelope whose sender is the
// anonymous address (§4.3).
type AnonymousVerifier struct{}

func (AnonymousVerifier) Verify(addr address.Address, key Key, message, signature []byte) error {
	if !addr.IsAnonymous() {
		return fmt.Errorf("identity: anonymous verifier rejects a non-anonymous sender")
	}
	if len(signature) != 0 {
		return fmt.Errorf("identity: anonymous requests must not carry a signature")
	}
	return nil
}
