package envelope

import (
	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/identity"
)

// Verify checks e's signature and returns the authenticated sender address.
// When the protected header embeds a public key, it is used and checked
// against keyID; otherwise externalKey must be supplied by the caller
// (§4.3: "otherwise a verifier is provided externally").
func Verify(verifier identity.Verifier, e Envelope, externalKey *identity.Key) (address.Address, error) {
	keyID, err := address.FromBytes(e.Protected.KeyID)
	if err != nil {
		return address.Address{}, err
	}

	if keyID.IsAnonymous() {
		if err := (identity.AnonymousVerifier{}).Verify(keyID, identity.Key{}, nil, e.Signature); err != nil {
			return address.Address{}, err
		}
		return address.Anonymous, nil
	}

	key := e.Protected.KeySet
	if key == nil {
		key = externalKey
	}
	if key == nil {
		return address.Address{}, errMissingKey()
	}

	tbs, err := ToBeSigned(e.Protected, nil, e.Payload)
	if err != nil {
		return address.Address{}, err
	}
	if err := verifier.Verify(keyID, *key, tbs, e.Signature); err != nil {
		return address.Address{}, err
	}
	return keyID, nil
}
