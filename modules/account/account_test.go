package account

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/identity"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

type fakeExecutor struct {
	sent []SendArgs
	err  error
}

func (f *fakeExecutor) Send(store *merkle.Store, args SendArgs) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, args)
	return nil
}

func testAddress(t *testing.T) address.Address {
	t.Helper()
	id, err := identity.GenerateEd25519Identity()
	if err != nil {
		t.Fatalf("GenerateEd25519Identity: %v", err)
	}
	return id.Address()
}

func openTestStore(t *testing.T) *merkle.Store {
	t.Helper()
	store, err := merkle.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("merkle.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestMultisigHappyPath mirrors scenario S4: account owns itself, roles
// A=owner, B=approve, C=approve, threshold 2, execute_automatically=true.
// Two approvals (the submitter's own plus one more) cross the threshold
// and the inner send runs automatically.
func TestMultisigHappyPath(t *testing.T) {
	store := openTestStore(t)
	exec := &fakeExecutor{}

	acctAddr := testAddress(t)
	a, b, c := testAddress(t), testAddress(t), testAddress(t)
	acc := Account{
		Address: acctAddr,
		Roles: map[address.Address][]Role{
			a: {RoleOwner},
			b: {RoleApprove},
			c: {RoleApprove},
		},
		Multisig: MultisigConfig{Threshold: 2, TimeoutSecs: 3600, ExecuteAutomatically: true},
	}
	if err := putAccount(store, acc); err != nil {
		t.Fatalf("putAccount: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	now := time.Now()
	to := testAddress(t)
	txn := Transaction{Kind: KindSend, Send: SendArgs{From: acctAddr, To: to, Symbol: "MFX", Amount: 250}}
	pending, err := submit(store, acc, a, txn, "tok-1", nil, nil, nil, now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if pending.Status != StatusPending {
		t.Fatalf("got status %v want Pending", pending.Status)
	}
	if pending.approvalCount() != 1 {
		t.Fatalf("expected submitter's own approval to count, got %d", pending.approvalCount())
	}

	pending, err = approve(store, acc, pending, b, exec, now)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if pending.Status != StatusExecutedAutomatically {
		t.Fatalf("got status %v want ExecutedAutomatically", pending.Status)
	}
	if len(exec.sent) != 1 || exec.sent[0].Amount != 250 {
		t.Fatalf("expected the inner send to run exactly once, got %+v", exec.sent)
	}

	if _, err := execute(store, pending, exec, now); err == nil {
		t.Fatalf("expected executing an already-finished transaction to fail")
	}
}

// TestMultisigExpiry mirrors scenario S5: a submitted transaction with a
// 60s timeout, no approvals, reports Expired once 61s have passed, and a
// subsequent execute attempt fails with transaction_expired_or_withdrawn.
func TestMultisigExpiry(t *testing.T) {
	store := openTestStore(t)
	exec := &fakeExecutor{}

	acctAddr := testAddress(t)
	a, b := testAddress(t), testAddress(t)
	acc := Account{
		Address: acctAddr,
		Roles: map[address.Address][]Role{
			a: {RoleOwner},
			b: {RoleApprove},
		},
		Multisig: MultisigConfig{Threshold: 2, TimeoutSecs: 60},
	}
	if err := putAccount(store, acc); err != nil {
		t.Fatalf("putAccount: %v", err)
	}

	t0 := time.Unix(1_700_000_000, 0)
	to := testAddress(t)
	txn := Transaction{Kind: KindSend, Send: SendArgs{From: acctAddr, To: to, Symbol: "MFX", Amount: 1}}
	pending, err := submit(store, acc, a, txn, "tok-2", nil, nil, nil, t0)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	t61 := t0.Add(61 * time.Second)
	reported := info(pending, t61)
	if reported.Status != StatusExpired {
		t.Fatalf("got status %v want Expired at t=61s", reported.Status)
	}

	if _, err := execute(store, pending, exec, t61); err == nil {
		t.Fatalf("expected execute past the deadline to fail")
	}
	if len(exec.sent) != 0 {
		t.Fatalf("expired transaction must not run its inner send")
	}
}

func TestMultisigCannotExecuteBelowThreshold(t *testing.T) {
	store := openTestStore(t)
	exec := &fakeExecutor{}

	acctAddr := testAddress(t)
	a, b, c := testAddress(t), testAddress(t), testAddress(t)
	acc := Account{
		Address: acctAddr,
		Roles: map[address.Address][]Role{
			a: {RoleOwner},
			b: {RoleApprove},
			c: {RoleApprove},
		},
		Multisig: MultisigConfig{Threshold: 3, TimeoutSecs: 3600},
	}
	now := time.Now()
	to := testAddress(t)
	txn := Transaction{Kind: KindSend, Send: SendArgs{From: acctAddr, To: to, Symbol: "MFX", Amount: 1}}
	pending, err := submit(store, acc, a, txn, "tok-3", nil, nil, nil, now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := execute(store, pending, exec, now); err == nil {
		t.Fatalf("expected cannot_execute_transaction below threshold")
	}
}

func TestMultisigWithdrawBySubmitter(t *testing.T) {
	store := openTestStore(t)

	acctAddr := testAddress(t)
	a := testAddress(t)
	acc := Account{
		Address:  acctAddr,
		Roles:    map[address.Address][]Role{a: {RoleOwner}},
		Multisig: MultisigConfig{Threshold: 1, TimeoutSecs: 3600},
	}
	now := time.Now()
	to := testAddress(t)
	txn := Transaction{Kind: KindSend, Send: SendArgs{From: acctAddr, To: to, Symbol: "MFX", Amount: 1}}
	pending, err := submit(store, acc, a, txn, "tok-4", nil, nil, nil, now)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	pending, err = withdraw(store, acc, pending, a, now)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if pending.Status != StatusWithdrawn {
		t.Fatalf("got status %v want Withdrawn", pending.Status)
	}
}
