package tokens

import (
	"testing"

	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/module"
)

func TestModuleCreateInfoListEndToEnd(t *testing.T) {
	store := openTestStore(t)
	mod := New(store)
	d := module.NewDispatcher()
	d.Register("tokens", mod)

	owner := testAddress(t)
	createArgs, err := mcbor.Marshal(createArg{Symbol: "MFX", Name: "ManyFix", Ticker: "MFX", Decimals: 9, Owner: owner.ToVec()})
	if err != nil {
		t.Fatalf("marshal createArg: %v", err)
	}
	ep, ok := d.Lookup("token.create")
	if !ok {
		t.Fatalf("token.create not registered")
	}
	if _, err := ep.Handler(createArgs); err != nil {
		t.Fatalf("handleCreate: %v", err)
	}
	if _, err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	infoArgs, err := mcbor.Marshal(symbolArg{Symbol: "MFX"})
	if err != nil {
		t.Fatalf("marshal symbolArg: %v", err)
	}
	ep, ok = d.Lookup("token.info")
	if !ok {
		t.Fatalf("token.info not registered")
	}
	out, err := ep.Handler(infoArgs)
	if err != nil {
		t.Fatalf("handleInfo: %v", err)
	}
	var got wireInfo
	if err := mcbor.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal wireInfo: %v", err)
	}
	if got.Ticker != "MFX" {
		t.Fatalf("got ticker %q want MFX", got.Ticker)
	}

	ep, ok = d.Lookup("token.list")
	if !ok {
		t.Fatalf("token.list not registered")
	}
	out, err = ep.Handler(nil)
	if err != nil {
		t.Fatalf("handleList: %v", err)
	}
	var list listReturn
	if err := mcbor.Unmarshal(out, &list); err != nil {
		t.Fatalf("unmarshal listReturn: %v", err)
	}
	if len(list.Infos) != 1 || list.Infos[0].Symbol != "MFX" {
		t.Fatalf("got %+v want one MFX entry", list.Infos)
	}
}
