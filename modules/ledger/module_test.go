package ledger

import (
	"testing"

	"github.com/synnergy-chain/manynet/pkg/event"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/module"
)

func TestModuleSendAndBalanceEndToEnd(t *testing.T) {
	store := openTestStore(t)
	eventsStore := openTestStore(t)
	events := event.NewLog(eventsStore)
	mod := New(store, events, nil)

	a, b := testAddress(t), testAddress(t)
	putBalance(store, a, "MFX", 1000)
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	d := module.NewDispatcher()
	d.Register("ledger", mod)

	sendArgs, err := mcbor.Marshal(sendArg{From: a.ToVec(), To: b.ToVec(), Symbol: "MFX", Amount: 250})
	if err != nil {
		t.Fatalf("marshal sendArg: %v", err)
	}
	ep, ok := d.Lookup("ledger.send")
	if !ok {
		t.Fatalf("ledger.send not registered")
	}
	if _, err := ep.Handler(sendArgs); err != nil {
		t.Fatalf("handleSend: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := eventsStore.Commit(); err != nil {
		t.Fatalf("Commit events: %v", err)
	}

	recs, err := events.List(0)
	if err != nil {
		t.Fatalf("events.List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d events want 1", len(recs))
	}

	balArgs, err := mcbor.Marshal(balanceArg{Address: b.ToVec(), Symbols: []string{"MFX"}})
	if err != nil {
		t.Fatalf("marshal balanceArg: %v", err)
	}
	ep, ok = d.Lookup("ledger.balance")
	if !ok {
		t.Fatalf("ledger.balance not registered")
	}
	out, err := ep.Handler(balArgs)
	if err != nil {
		t.Fatalf("handleBalance: %v", err)
	}
	var got balanceReturn
	if err := mcbor.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal balanceReturn: %v", err)
	}
	if len(got.Amounts) != 1 || got.Amounts[0] != 250 {
		t.Fatalf("got %+v want amount 250", got)
	}
}
