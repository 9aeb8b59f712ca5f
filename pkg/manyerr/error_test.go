package manyerr

import (
	"testing"

	"github.com/synnergy-chain/manynet/pkg/mcbor"
)

func TestErrorTemplateSubstitution(t *testing.T) {
	err := RequiredFieldMissing("sender")
	if got, want := err.Error(), "Field is required but missing: 'sender'."; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestAttributeSpecificCodeDerivation(t *testing.T) {
	code := AttributeCode(2, 5)
	if code != -20005 {
		t.Fatalf("got %d want -20005", code)
	}
	if !code.IsAttributeSpecific() {
		t.Fatalf("expected attribute-specific code to report as such")
	}
}

func TestApplicationSpecificCodeIsNonNegative(t *testing.T) {
	err := ApplicationSpecific(42, "custom failure", nil)
	if !err.Code.IsApplicationSpecific() {
		t.Fatalf("expected application-specific code")
	}
}

func TestErrorCBORRoundTrip(t *testing.T) {
	want := UnknownDestination("mabc", "mdef")
	data, err := mcbor.Marshal(want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := &Error{}
	if err := mcbor.Unmarshal(data, got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Code != want.Code || got.Error() != want.Error() {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}
}
