// Package envelope implements the signed container used for every request
// and response on the wire (spec §3, §4.4): a protected header, an
// unprotected header, an optional payload, and a signature covering
// protected || external_aad || payload.
package envelope

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/synnergy-chain/manynet/pkg/identity"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
)

// ProtectedHeader carries the signing algorithm, the signer's key id
// (address bytes), and an optional embedded public-key set.
type ProtectedHeader struct {
	Algorithm identity.Algorithm `cbor:"0,keyasint,omitempty"`
	KeyID     []byte             `cbor:"1,keyasint,omitempty"`
	KeySet    *identity.Key      `cbor:"2,keyasint,omitempty"`
}

// Envelope is the signed container (§4.4).
type Envelope struct {
	Protected   ProtectedHeader
	Unprotected map[string]cbor.RawMessage
	Payload     []byte
	Signature   []byte
}

// wireEnvelope mirrors the four-field CBOR map, keyed 0-3, on the wire.
type wireEnvelope struct {
	Protected   []byte                     `cbor:"0,keyasint"`
	Unprotected map[string]cbor.RawMessage `cbor:"1,keyasint,omitempty"`
	Payload     []byte                     `cbor:"2,keyasint,omitempty"`
	Signature   []byte                     `cbor:"3,keyasint,omitempty"`
}

// ToBeSigned returns the byte string covered by the signature: the
// canonical protected header, external additional authenticated data, and
// the payload concatenated (§3: "Signing covers (protected || external-AAD
// || payload)").
func ToBeSigned(protected ProtectedHeader, externalAAD, payload []byte) ([]byte, error) {
	protectedBytes, err := mcbor.Marshal(protected)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(protectedBytes)+len(externalAAD)+len(payload))
	out = append(out, protectedBytes...)
	out = append(out, externalAAD...)
	out = append(out, payload...)
	return out, nil
}

// Sign builds a signed envelope for payload using id, embedding id's public
// key in the protected header unless shared is true (§4.3: "adds the public
// key to the protected header when the identity is unshared").
func Sign(id identity.Identity, payload []byte, shared bool) (Envelope, error) {
	protected := ProtectedHeader{KeyID: id.Address().ToVec()}
	if key, ok := id.PublicKey(); ok {
		protected.Algorithm = key.Alg
		if !shared {
			protected.KeySet = &key
		}
	}
	tbs, err := ToBeSigned(protected, nil, payload)
	if err != nil {
		return Envelope{}, err
	}
	sig, err := id.Sign(tbs)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Protected: protected, Payload: payload, Signature: sig}, nil
}

func (e Envelope) MarshalCBOR() ([]byte, error) {
	protectedBytes, err := mcbor.Marshal(e.Protected)
	if err != nil {
		return nil, err
	}
	return mcbor.Marshal(wireEnvelope{
		Protected:   protectedBytes,
		Unprotected: e.Unprotected,
		Payload:     e.Payload,
		Signature:   e.Signature,
	})
}

func (e *Envelope) UnmarshalCBOR(data []byte) error {
	var w wireEnvelope
	if err := mcbor.Unmarshal(data, &w); err != nil {
		return err
	}
	var protected ProtectedHeader
	if len(w.Protected) > 0 {
		if err := mcbor.Unmarshal(w.Protected, &protected); err != nil {
			return err
		}
	}
	e.Protected = protected
	e.Unprotected = w.Unprotected
	e.Payload = w.Payload
	e.Signature = w.Signature
	return nil
}
