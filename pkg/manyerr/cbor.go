package manyerr

import "github.com/synnergy-chain/manynet/pkg/mcbor"

// wireError mirrors the three-field CBOR map used on the wire: 0 => code,
// 1 => message template, 2 => argument map (§7).
type wireError struct {
	Code      int64             `cbor:"0,keyasint"`
	Message   string            `cbor:"1,keyasint,omitempty"`
	Arguments map[string]string `cbor:"2,keyasint,omitempty"`
}

func (e *Error) MarshalCBOR() ([]byte, error) {
	w := wireError{Code: int64(e.Code), Message: e.Message, Arguments: e.Arguments}
	return mcbor.Marshal(w)
}

func (e *Error) UnmarshalCBOR(data []byte) error {
	var w wireError
	if err := mcbor.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Code = Code(w.Code)
	e.Message = w.Message
	e.Arguments = w.Arguments
	return nil
}
