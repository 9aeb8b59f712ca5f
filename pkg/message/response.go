package message

import (
	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/attribute"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
)

// Response is the decoded payload of a response envelope. Exactly one of
// Data or Err is set (§3: "data (Result<bytes, Error>)").
type Response struct {
	Version    uint8
	From       address.Address
	To         address.Address
	Data       []byte
	Err        *manyerr.Error
	Timestamp  *mcbor.Timestamp
	ID         uint64
	Attributes attribute.Set
	Nonce      []byte
}

type wireResponse struct {
	Version    *uint8           `cbor:"0,keyasint,omitempty"`
	From       []byte           `cbor:"1,keyasint,omitempty"`
	To         []byte           `cbor:"2,keyasint,omitempty"`
	Data       []byte           `cbor:"4,keyasint,omitempty"`
	Err        *manyerr.Error   `cbor:"5,keyasint,omitempty"`
	Timestamp  *mcbor.Timestamp `cbor:"6,keyasint,omitempty"`
	ID         uint64           `cbor:"7,keyasint,omitempty"`
	Attributes *attribute.Set   `cbor:"8,keyasint,omitempty"`
	Nonce      []byte           `cbor:"9,keyasint,omitempty"`
}

func (r Response) MarshalCBOR() ([]byte, error) {
	w := wireResponse{Data: r.Data, Err: r.Err, Timestamp: r.Timestamp, ID: r.ID, Nonce: r.Nonce}
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

func (r *Response) UnmarshalCBOR(data []byte) error {
	var w wireResponse
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
	*r = Response{
		Version:    version,
		From:       from,
		To:         to,
		Data:       w.Data,
		Err:        w.Err,
		Timestamp:  w.Timestamp,
		ID:         w.ID,
		Attributes: attrs,
		Nonce:      w.Nonce,
	}
	return nil
}

// Success builds a response carrying data.
func Success(from address.Address, id uint64, data []byte) Response {
	return Response{Version: ProtocolVersion, From: from, Data: data, ID: id}
}

// Failure builds a response carrying err.
func Failure(from address.Address, id uint64, err *manyerr.Error) Response {
	return Response{Version: ProtocolVersion, From: from, Err: err, ID: id}
}
