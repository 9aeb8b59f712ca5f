package ledger

import (
	"github.com/synnergy-chain/manynet/modules/account"
	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/event"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/module"
)

// Module wires ledger.send / ledger.balance onto the dispatcher.
type Module struct {
	store    *merkle.Store
	events   *event.Log
	registry Registry
}

// New builds a Module backed by store, logging transfers to events. registry
// may be nil (see Send).
func New(store *merkle.Store, events *event.Log, registry Registry) *Module {
	return &Module{store: store, events: events, registry: registry}
}

func (m *Module) AttributeID() uint32 { return AttributeID }

func (m *Module) Endpoints() []module.Endpoint {
	return []module.Endpoint{
		{Name: "ledger.send", Kind: module.Command, Handler: m.handleSend},
		{Name: "ledger.balance", Kind: module.Query, Handler: m.handleBalance},
	}
}

// Send implements modules/account.Executor, so account multisig
// transactions can run a ledger transfer as their inner action.
func (m *Module) Send(store *merkle.Store, args account.SendArgs) error {
	_, err := Send(store, m.registry, SendArgs{
		From:   args.From,
		To:     args.To,
		Symbol: args.Symbol,
		Amount: args.Amount,
	})
	return err
}

type sendArg struct {
	From   []byte `cbor:"0,keyasint"`
	To     []byte `cbor:"1,keyasint"`
	Symbol string `cbor:"2,keyasint"`
	Amount uint64 `cbor:"3,keyasint"`
}

func (m *Module) handleSend(args []byte) ([]byte, error) {
	var in sendArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	from, err := address.FromBytes(in.From)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	to, err := address.FromBytes(in.To)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	info, err := Send(m.store, m.registry, SendArgs{From: from, To: to, Symbol: in.Symbol, Amount: in.Amount})
	if err != nil {
		return nil, err
	}
	if m.events != nil {
		payload, err := info.MarshalEvent()
		if err != nil {
			return nil, err
		}
		if _, err := m.events.Append(payload); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

type balanceArg struct {
	Address []byte   `cbor:"0,keyasint"`
	Symbols []string `cbor:"1,keyasint,omitempty"`
}

type balanceReturn struct {
	Symbols []string `cbor:"0,keyasint"`
	Amounts []uint64 `cbor:"1,keyasint"`
}

func (m *Module) handleBalance(args []byte) ([]byte, error) {
	var in balanceArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	addr, err := address.FromBytes(in.Address)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	if len(in.Symbols) == 0 {
		return nil, manyerr.RequiredFieldMissing("symbols")
	}
	out := balanceReturn{Symbols: in.Symbols, Amounts: make([]uint64, len(in.Symbols))}
	for i, symbol := range in.Symbols {
		amount, err := Balance(m.store, addr, symbol)
		if err != nil {
			return nil, err
		}
		out.Amounts[i] = amount
	}
	return mcbor.Marshal(out)
}
