package attribute

import (
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/envelope"
	"github.com/synnergy-chain/manynet/pkg/identity"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
)

// Certificate is a signed envelope whose payload delegates authority from
// From to To for the window [NotBefore, NotAfter] (§4.5).
type Certificate struct {
	From      address.Address `cbor:"0,keyasint"`
	To        address.Address `cbor:"1,keyasint"`
	NotBefore mcbor.Timestamp `cbor:"2,keyasint"`
	NotAfter  mcbor.Timestamp `cbor:"3,keyasint"`
}

// Delegation builds the delegation attribute (id 2) from an ordered chain of
// signed certificate envelopes, outermost first.
func Delegation(chain ...envelope.Envelope) (Attribute, error) {
	if len(chain) == 0 {
		return Attribute{}, errArgCount(DelegationID, 1, 0)
	}
	args := make([]cbor.RawMessage, len(chain))
	for i, env := range chain {
		raw, err := mcbor.Marshal(env)
		if err != nil {
			return Attribute{}, err
		}
		args[i] = raw
	}
	return WithArguments(DelegationID, args...), nil
}

// ResolveDelegation walks a certificate chain, verifying each link's
// signature, time window, and from/to binding, and returns the effective
// sender (§4.5). Every certificate's window is checked against now only; no
// check ties the final certificate to the outer request's own timestamp.
func ResolveDelegation(verifier identity.Verifier, signer address.Address, a Attribute, now time.Time) (address.Address, error) {
	if a.ID != DelegationID {
		return address.Address{}, errWrongAttribute(DelegationID, a.ID)
	}
	current := signer
	for i, raw := range a.Arguments {
		var cert envelope.Envelope
		if err := mcbor.Unmarshal(raw, &cert); err != nil {
			return address.Address{}, err
		}
		certSigner, err := envelope.Verify(verifier, cert, nil)
		if err != nil {
			return address.Address{}, err
		}
		var payload Certificate
		if err := mcbor.Unmarshal(cert.Payload, &payload); err != nil {
			return address.Address{}, err
		}
		if payload.To != current {
			return address.Address{}, errChainBreak(i)
		}
		if certSigner != payload.From {
			return address.Address{}, errChainBreak(i)
		}
		if now.Before(payload.NotBefore.Time()) || now.After(payload.NotAfter.Time()) {
			return address.Address{}, errWindow(i)
		}
		current = payload.From
	}
	return current, nil
}
