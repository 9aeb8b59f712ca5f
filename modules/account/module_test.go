package account

import (
	"testing"

	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/module"
)

// TestHandleCreateDefaultsThresholdToApproversMinusOne exercises §4.12
// "Defaults": with no explicit threshold, account.create computes it from
// the number of submit/approve-role holders, minus one.
func TestHandleCreateDefaultsThresholdToApproversMinusOne(t *testing.T) {
	store := openTestStore(t)
	mod := New(store, &fakeExecutor{})
	d := module.NewDispatcher()
	d.Register("account", mod)

	owner := testAddress(t)
	approverA := testAddress(t)
	approverB := testAddress(t)

	argsBytes, err := mcbor.Marshal(createArg{
		Address: owner.ToVec(),
		Owners:  [][]byte{owner.ToVec(), approverA.ToVec(), approverB.ToVec()},
		Roles:   [][]string{{string(RoleOwner)}, {string(RoleApprove)}, {string(RoleApprove)}},
	})
	if err != nil {
		t.Fatalf("marshal createArg: %v", err)
	}

	ep, ok := d.Lookup("account.create")
	if !ok {
		t.Fatalf("account.create not registered")
	}
	if _, err := ep.Handler(argsBytes); err != nil {
		t.Fatalf("handleCreate: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	acc, found, err := getAccount(store, owner)
	if err != nil || !found {
		t.Fatalf("expected account to be created, found=%v err=%v", found, err)
	}
	if acc.Multisig.Threshold != 1 {
		t.Fatalf("got default threshold %d, want 1 (two approvers minus one)", acc.Multisig.Threshold)
	}
}

// TestHandleCreateHonorsExplicitThreshold confirms an explicit threshold in
// the request overrides the computed default.
func TestHandleCreateHonorsExplicitThreshold(t *testing.T) {
	store := openTestStore(t)
	mod := New(store, &fakeExecutor{})
	d := module.NewDispatcher()
	d.Register("account", mod)

	owner := testAddress(t)
	approverA := testAddress(t)
	explicit := uint64(5)

	argsBytes, err := mcbor.Marshal(createArg{
		Address:   owner.ToVec(),
		Owners:    [][]byte{owner.ToVec(), approverA.ToVec()},
		Roles:     [][]string{{string(RoleOwner)}, {string(RoleApprove)}},
		Threshold: &explicit,
	})
	if err != nil {
		t.Fatalf("marshal createArg: %v", err)
	}

	ep, ok := d.Lookup("account.create")
	if !ok {
		t.Fatalf("account.create not registered")
	}
	if _, err := ep.Handler(argsBytes); err != nil {
		t.Fatalf("handleCreate: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	acc, found, err := getAccount(store, owner)
	if err != nil || !found {
		t.Fatalf("expected account to be created, found=%v err=%v", found, err)
	}
	if acc.Multisig.Threshold != 5 {
		t.Fatalf("got threshold %d, want explicit 5", acc.Multisig.Threshold)
	}
}
