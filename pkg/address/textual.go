package address

import (
	"encoding/base32"
	"strings"
)

// lowerBase32 mirrors RFC4648 base32 (no padding) lowercased on output, as
// required by §4.1/§6: "m" + base32(data) + 2 lowercase base32 chars of the
// CRC-16 of data.
var lowerBase32 = base32.StdEncoding.WithPadding(base32.NoPadding)

const anonymousText = "maa"

// String renders the textual form of the address (§4.1, §6).
func (a Address) String() string {
	if a.IsAnonymous() {
		return anonymousText
	}
	data := a.ToVec()
	body := strings.ToLower(lowerBase32.EncodeToString(data))
	crc := crc16(data)
	crcStr := strings.ToLower(lowerBase32.EncodeToString(crc[:]))
	return "m" + body + crcStr[:2]
}

// Parse decodes the textual form of an address, re-encoding the result and
// rejecting it unless it reproduces the input exactly (§4.1: "Parsing
// re-encodes and compares to detect corruption").
func Parse(s string) (Address, error) {
	if !strings.HasPrefix(s, "m") {
		return Address{}, invalid("missing 'm' prefix")
	}
	if len(s) < 3 {
		return Address{}, invalid("identity text too short")
	}
	rest := s[1:]
	if rest == "aa" || rest == "aaaa" {
		return Address{}, nil
	}
	if len(s) < 3 {
		return Address{}, invalid("identity text too short")
	}
	body := s[1 : len(s)-2]
	data, err := lowerBase32.DecodeString(strings.ToUpper(body))
	if err != nil {
		return Address{}, invalid("invalid base32 body: " + err.Error())
	}
	a, err := FromBytes(data)
	if err != nil {
		return Address{}, err
	}
	if a.String() != s {
		return Address{}, invalid("checksum or canonical-form mismatch")
	}
	return a, nil
}
