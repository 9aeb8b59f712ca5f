package mcbor

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MemoItemMaxBytes is the default per-item size ceiling, matching the
// reference implementation's MEMO_DATA_DEFAULT_MAX_SIZE.
const MemoItemMaxBytes = 4000

// MemoItem is a single entry of a Memo: either a text string or an opaque
// byte string, never both (§4.2, §8).
type MemoItem struct {
	Text  string
	Bytes []byte
	isSet bool
}

// MemoText builds a text item, erroring if it exceeds the size limit.
func MemoText(s string) (MemoItem, error) {
	if len(s) > MemoItemMaxBytes {
		return MemoItem{}, fmt.Errorf("mcbor: memo text item of %d bytes exceeds %d byte limit", len(s), MemoItemMaxBytes)
	}
	return MemoItem{Text: s, isSet: true}, nil
}

// MemoBytes builds a byte-string item, erroring if it exceeds the size limit.
func MemoBytes(b []byte) (MemoItem, error) {
	if len(b) > MemoItemMaxBytes {
		return MemoItem{}, fmt.Errorf("mcbor: memo byte item of %d bytes exceeds %d byte limit", len(b), MemoItemMaxBytes)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return MemoItem{Bytes: out, isSet: true}, nil
}

// IsText reports whether the item holds a text string.
func (m MemoItem) IsText() bool { return m.isSet && m.Bytes == nil }

// IsBytes reports whether the item holds a byte string.
func (m MemoItem) IsBytes() bool { return m.isSet && m.Bytes != nil }

func (m MemoItem) MarshalCBOR() ([]byte, error) {
	if !m.isSet {
		return nil, fmt.Errorf("mcbor: cannot encode an empty memo item")
	}
	if m.Bytes != nil {
		return encMode.Marshal(m.Bytes)
	}
	return encMode.Marshal(m.Text)
}

func (m *MemoItem) UnmarshalCBOR(data []byte) error {
	var asText string
	if err := decMode.Unmarshal(data, &asText); err == nil {
		if len(asText) > MemoItemMaxBytes {
			return fmt.Errorf("mcbor: memo text item of %d bytes exceeds %d byte limit", len(asText), MemoItemMaxBytes)
		}
		*m = MemoItem{Text: asText, isSet: true}
		return nil
	}
	var asBytes []byte
	if err := decMode.Unmarshal(data, &asBytes); err != nil {
		return fmt.Errorf("mcbor: memo item is neither a text nor a byte string: %w", err)
	}
	if len(asBytes) > MemoItemMaxBytes {
		return fmt.Errorf("mcbor: memo byte item of %d bytes exceeds %d byte limit", len(asBytes), MemoItemMaxBytes)
	}
	*m = MemoItem{Bytes: asBytes, isSet: true}
	return nil
}

// Memo is an ordered, non-empty sequence of MemoItems attached to a request
// or a ledger transaction (§4.2). Decoding an empty sequence is rejected,
// mirroring the reference implementation's TryFrom validation.
type Memo struct {
	Items []MemoItem
}

// NewMemo builds a Memo from one or more items, rejecting an empty list.
func NewMemo(items ...MemoItem) (Memo, error) {
	if len(items) == 0 {
		return Memo{}, fmt.Errorf("mcbor: a memo must contain at least one item")
	}
	return Memo{Items: items}, nil
}

func (m Memo) MarshalCBOR() ([]byte, error) {
	if len(m.Items) == 0 {
		return nil, fmt.Errorf("mcbor: cannot encode an empty memo")
	}
	return encMode.Marshal(m.Items)
}

func (m *Memo) UnmarshalCBOR(data []byte) error {
	var raw []cbor.RawMessage
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("mcbor: memo is not a sequence: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("mcbor: a memo must contain at least one item")
	}
	items := make([]MemoItem, len(raw))
	for i, r := range raw {
		if err := decMode.Unmarshal(r, &items[i]); err != nil {
			return fmt.Errorf("mcbor: memo item %d: %w", i, err)
		}
	}
	m.Items = items
	return nil
}
