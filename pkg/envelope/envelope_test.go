package envelope

import (
	"testing"

	"github.com/synnergy-chain/manynet/pkg/identity"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
)

func TestSignAndVerifyEmbeddedKey(t *testing.T) {
	id, err := identity.GenerateEd25519Identity()
	if err != nil {
		t.Fatalf("GenerateEd25519Identity: %v", err)
	}
	env, err := Sign(id, []byte("payload"), false)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if env.Protected.KeySet == nil {
		t.Fatalf("expected an embedded public key for a non-shared identity")
	}

	sender, err := Verify(identity.NewCompositeVerifier(), env, nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sender != id.Address() {
		t.Fatalf("got sender %v want %v", sender, id.Address())
	}
}

func TestSignSharedIdentityOmitsEmbeddedKey(t *testing.T) {
	id, err := identity.GenerateEd25519Identity()
	if err != nil {
		t.Fatalf("GenerateEd25519Identity: %v", err)
	}
	env, err := Sign(id, []byte("payload"), true)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if env.Protected.KeySet != nil {
		t.Fatalf("expected no embedded public key for a shared identity")
	}
	key, _ := id.PublicKey()
	sender, err := Verify(identity.NewCompositeVerifier(), env, &key)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sender != id.Address() {
		t.Fatalf("got sender %v want %v", sender, id.Address())
	}
}

func TestVerifyAnonymousEnvelope(t *testing.T) {
	var anon identity.AnonymousIdentity
	env, err := Sign(anon, []byte("payload"), false)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sender, err := Verify(identity.NewCompositeVerifier(), env, nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !sender.IsAnonymous() {
		t.Fatalf("expected anonymous sender")
	}
}

func TestEnvelopeCBORRoundTrip(t *testing.T) {
	id, err := identity.GenerateEd25519Identity()
	if err != nil {
		t.Fatalf("GenerateEd25519Identity: %v", err)
	}
	env, err := Sign(id, []byte("payload"), false)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	data, err := mcbor.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Envelope
	if err := mcbor.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if string(got.Payload) != "payload" {
		t.Fatalf("payload mismatch: %q", got.Payload)
	}
	if got.Protected.KeySet == nil || got.Protected.KeySet.Alg != identity.AlgorithmEdDSA {
		t.Fatalf("expected round-tripped embedded key")
	}
}
