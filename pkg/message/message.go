// Package message implements the canonical request and response envelopes'
// payloads (spec §3, §4.4): version, sender/recipient, method, data,
// timestamp, client-chosen id, attributes, and an optional nonce.
package message

import (
	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/attribute"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
)

// ProtocolVersion is the only version this implementation speaks.
const ProtocolVersion = 1

// NewRequest builds a Request with ProtocolVersion and an empty attribute
// set, ready for callers to populate From/To/Timestamp/Attributes.
func NewRequest(method string, data []byte, id uint64) Request {
	return Request{Version: ProtocolVersion, Method: method, Data: data, ID: id}
}

// Request is the decoded payload of a request envelope.
type Request struct {
	Version    uint8
	From       address.Address
	To         address.Address
	Method     string
	Data       []byte
	Timestamp  *mcbor.Timestamp
	ID         uint64
	Attributes attribute.Set
	Nonce      []byte
}

// wireRequest mirrors the CBOR map used on the wire. Version/from/to/data
// default on decode per §4.4; timestamp is omitted from encoding when nil.
type wireRequest struct {
	Version    *uint8           `cbor:"0,keyasint,omitempty"`
	From       []byte           `cbor:"1,keyasint,omitempty"`
	To         []byte           `cbor:"2,keyasint,omitempty"`
	Method     string           `cbor:"3,keyasint"`
	Data       []byte           `cbor:"4,keyasint,omitempty"`
	Timestamp  *mcbor.Timestamp `cbor:"5,keyasint,omitempty"`
	ID         uint64           `cbor:"6,keyasint,omitempty"`
	Attributes *attribute.Set   `cbor:"7,keyasint,omitempty"`
	Nonce      []byte           `cbor:"8,keyasint,omitempty"`
}

func (r Request) MarshalCBOR() ([]byte, error) {
	w := wireRequest{Method: r.Method, Data: r.Data, Timestamp: r.Timestamp, ID: r.ID, Nonce: r.Nonce}
	if r.Version != 0 {
		v := r.Version
		w.Version = &v
	}
	if !r.From.IsAnonymous() {
		w.From = r.From.ToVec()
	}
	if !r.To.IsAnonymous() {
		w.To = r.To.ToVec()
	}
	if r.Attributes.Len() > 0 {
		attrs := r.Attributes
		w.Attributes = &attrs
	}
	return mcbor.Marshal(w)
}

func (r *Request) UnmarshalCBOR(data []byte) error {
	var w wireRequest
	if err := mcbor.Unmarshal(data, &w); err != nil {
		return err
	}
	version := uint8(ProtocolVersion)
	if w.Version != nil {
		version = *w.Version
	}
	from := address.Anonymous
	if len(w.From) > 0 {
		decoded, err := address.FromBytes(w.From)
		if err != nil {
			return err
		}
		from = decoded
	}
	to := address.Anonymous
	if len(w.To) > 0 {
		decoded, err := address.FromBytes(w.To)
		if err != nil {
			return err
		}
		to = decoded
	}
	attrs := attribute.Set{}
	if w.Attributes != nil {
		attrs = *w.Attributes
	}
	*r = Request{
		Version:    version,
		From:       from,
		To:         to,
		Method:     w.Method,
		Data:       w.Data,
		Timestamp:  w.Timestamp,
		ID:         w.ID,
		Attributes: attrs,
		Nonce:      w.Nonce,
	}
	return nil
}
