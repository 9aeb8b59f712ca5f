package attribute

import "github.com/fxamacker/cbor/v2"

// Async builds the async-dispatch attribute (id 1) carrying token as its
// sole opaque byte-string argument (§4.5).
func Async(token []byte) (Attribute, error) {
	raw, err := cbor.Marshal(token)
	if err != nil {
		return Attribute{}, err
	}
	return WithArguments(AsyncID, raw), nil
}

// AsyncToken extracts the token from an Async attribute.
func AsyncToken(a Attribute) ([]byte, error) {
	if a.ID != AsyncID {
		return nil, errWrongAttribute(AsyncID, a.ID)
	}
	if len(a.Arguments) != 1 {
		return nil, errArgCount(AsyncID, 1, len(a.Arguments))
	}
	var token []byte
	if err := cbor.Unmarshal(a.Arguments[0], &token); err != nil {
		return nil, err
	}
	return token, nil
}
