package tokens

import (
	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/module"
)

// Module wires token.create/token.info/token.list/token.mint onto the
// dispatcher.
type Module struct {
	store *merkle.Store
}

// New builds a Module backed by store.
func New(store *merkle.Store) *Module { return &Module{store: store} }

func (m *Module) AttributeID() uint32 { return AttributeID }

func (m *Module) Endpoints() []module.Endpoint {
	return []module.Endpoint{
		{Name: "token.create", Kind: module.Command, Handler: m.handleCreate},
		{Name: "token.mint", Kind: module.Command, Handler: m.handleMint},
		{Name: "token.info", Kind: module.Query, Handler: m.handleInfo},
		{Name: "token.list", Kind: module.Query, Handler: m.handleList},
	}
}

type createArg struct {
	Symbol   string `cbor:"0,keyasint"`
	Name     string `cbor:"1,keyasint"`
	Ticker   string `cbor:"2,keyasint"`
	Decimals uint64 `cbor:"3,keyasint"`
	Owner    []byte `cbor:"4,keyasint"`
	Maximum  uint64 `cbor:"5,keyasint,omitempty"`
	HasMax   bool   `cbor:"6,keyasint"`
}

func wireInfoOf(info Info) wireInfo {
	w := wireInfo{
		Symbol:   info.Symbol,
		Name:     info.Name,
		Ticker:   info.Ticker,
		Decimals: info.Decimals,
		Owner:    info.Owner.ToVec(),
		Supply:   info.Supply,
	}
	if info.Maximum != nil {
		w.HasMax = true
		w.Maximum = *info.Maximum
	}
	return w
}

func (m *Module) handleCreate(args []byte) ([]byte, error) {
	var in createArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	owner, err := address.FromBytes(in.Owner)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	var max *uint64
	if in.HasMax {
		max = &in.Maximum
	}
	info, err := Create(m.store, in.Symbol, in.Name, in.Ticker, in.Decimals, owner, max)
	if err != nil {
		return nil, err
	}
	return mcbor.Marshal(wireInfoOf(info))
}

type mintArg struct {
	Symbol string `cbor:"0,keyasint"`
	Amount uint64 `cbor:"1,keyasint"`
	Sender []byte `cbor:"2,keyasint"`
}

func (m *Module) handleMint(args []byte) ([]byte, error) {
	var in mintArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	sender, err := address.FromBytes(in.Sender)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	info, err := Mint(m.store, in.Symbol, in.Amount, sender)
	if err != nil {
		return nil, err
	}
	return mcbor.Marshal(wireInfoOf(info))
}

type symbolArg struct {
	Symbol string `cbor:"0,keyasint"`
}

func (m *Module) handleInfo(args []byte) ([]byte, error) {
	var in symbolArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	info, found, err := Get(m.store, in.Symbol)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errSymbolNotFoundErr(in.Symbol)
	}
	return mcbor.Marshal(wireInfoOf(info))
}

type listReturn struct {
	Infos []wireInfo `cbor:"0,keyasint"`
}

func (m *Module) handleList(args []byte) ([]byte, error) {
	infos, err := List(m.store)
	if err != nil {
		return nil, err
	}
	out := make([]wireInfo, len(infos))
	for i, info := range infos {
		out[i] = wireInfoOf(info)
	}
	return mcbor.Marshal(listReturn{Infos: out})
}
