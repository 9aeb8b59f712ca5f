// Package mcbor implements the deterministic CBOR profile shared by every
// persisted and wire value in the protocol (spec §4.2): maps ordered by
// ascending integer key, big unsigned amounts collapsed to u64 where they
// fit and tag-2 bignums otherwise, and tag-1 timestamps.
package mcbor

import (
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	encOpts := cbor.CanonicalEncOptions()
	encOpts.Time = cbor.TimeUnix
	encOpts.TimeTag = cbor.EncTagRequired
	encOpts.BigIntConvert = cbor.BigIntConvertShortest
	var err error
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(err)
	}

	decOpts := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
		TimeTag:   cbor.DecTagOptional,
		BigIntDec: cbor.BigIntDecodeValue,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes v using the canonical MANY profile.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes data into v using the MANY profile. Unknown map keys are
// ignored per §6 ("Unknown keys MUST be ignored"), which is the default
// behavior of a Go struct target with fxamacker/cbor.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Timestamp is a tag-1 unsigned-seconds-since-epoch value (§3).
type Timestamp struct {
	Seconds uint64
}

// Now returns the current time truncated to the second.
func Now() Timestamp {
	return Timestamp{Seconds: uint64(time.Now().Unix())}
}

// FromTime converts a time.Time to a Timestamp, clamping negative values to
// zero (times before the epoch never occur in this domain).
func FromTime(t time.Time) Timestamp {
	sec := t.Unix()
	if sec < 0 {
		sec = 0
	}
	return Timestamp{Seconds: uint64(sec)}
}

// Time converts back to a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t.Seconds), 0).UTC()
}

func (t Timestamp) MarshalCBOR() ([]byte, error) {
	return encMode.Marshal(cbor.Tag{Number: 1, Content: t.Seconds})
}

func (t *Timestamp) UnmarshalCBOR(data []byte) error {
	var tag cbor.Tag
	if err := decMode.Unmarshal(data, &tag); err == nil && tag.Number == 1 {
		switch v := tag.Content.(type) {
		case uint64:
			t.Seconds = v
		case int64:
			t.Seconds = uint64(v)
		}
		return nil
	}
	var plain uint64
	if err := decMode.Unmarshal(data, &plain); err != nil {
		return err
	}
	t.Seconds = plain
	return nil
}

// Amount encodes a big unsigned quantity as a u64 when it fits the wire
// format, or as a CBOR tag-2 bignum (big-endian byte string) otherwise
// (§4.2). Used for ledger balances and token amounts.
type Amount struct {
	V *big.Int
}

// NewAmount wraps n, defaulting a nil n to zero.
func NewAmount(n *big.Int) Amount {
	if n == nil {
		n = new(big.Int)
	}
	return Amount{V: n}
}

// AmountFromUint64 builds an Amount from a plain uint64.
func AmountFromUint64(n uint64) Amount {
	return Amount{V: new(big.Int).SetUint64(n)}
}

func (a Amount) MarshalCBOR() ([]byte, error) {
	if a.V == nil {
		a.V = new(big.Int)
	}
	if a.V.IsUint64() {
		return encMode.Marshal(a.V.Uint64())
	}
	return encMode.Marshal(cbor.Tag{Number: 2, Content: a.V.Bytes()})
}

func (a *Amount) UnmarshalCBOR(data []byte) error {
	var tag cbor.Tag
	if err := decMode.Unmarshal(data, &tag); err == nil {
		if bs, ok := tag.Content.([]byte); ok && tag.Number == 2 {
			a.V = new(big.Int).SetBytes(bs)
			return nil
		}
	}
	var n uint64
	if err := decMode.Unmarshal(data, &n); err != nil {
		return err
	}
	a.V = new(big.Int).SetUint64(n)
	return nil
}

// String renders the decimal form of the amount.
func (a Amount) String() string {
	if a.V == nil {
		return "0"
	}
	return a.V.String()
}
