// Package ledger implements token balances and transfers (spec §3, §8
// scenario S3): balances live at /balances/<address>/<symbol> as big-endian
// amount bytes, and a send debits one address and credits another in the
// same commit, emitting a Send event.
//
// Grounded on `many-ledger/src/storage/ledger.rs` (original_source) for the
// balance key layout and the anonymous-cannot-hold-funds rule, and on the
// teacher's `core/ledger.go` (`TokenBalances map[string]uint64`) for
// representing amounts as plain Go integers rather than a bignum type.
package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

// AttributeID is the ledger module's attribute id (many-rs assigns ledger
// attribute 2).
const AttributeID uint32 = 2

// attribute-2 error codes, named "unknown_symbol" / "unauthorized" /
// "insufficient_funds" / "anonymous_cannot_hold_funds" in
// many/src/server/module/_2_ledger.rs.
const (
	errUnknownSymbol            = 1
	errUnauthorized             = 2
	errInsufficientFunds        = 3
	errAnonymousCannotHoldFunds = 4
)

func errUnknownSymbolErr(symbol string) *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errUnknownSymbol,
		"Symbol not supported by this ledger: {symbol}.", map[string]string{"symbol": symbol})
}

func errInsufficientFundsErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errInsufficientFunds, "Insufficient funds.", nil)
}

func errAnonymousErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errAnonymousCannotHoldFunds,
		"Anonymous is not a valid account identity.", nil)
}

func balanceKey(addr address.Address, symbol string) []byte {
	return []byte(fmt.Sprintf("/balances/%s/%s", addr.String(), symbol))
}

// Balance returns addr's balance of symbol, 0 if never credited.
func Balance(store *merkle.Store, addr address.Address, symbol string) (uint64, error) {
	raw, found, err := store.Get(balanceKey(addr, symbol))
	if err != nil || !found {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("ledger: corrupt balance at %s", balanceKey(addr, symbol))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func putBalance(store *merkle.Store, addr address.Address, symbol string, amount uint64) {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, amount)
	store.Apply([]merkle.Op{{Key: balanceKey(addr, symbol), Value: raw}})
}

// SetGenesisBalance writes addr's balance of symbol directly, bypassing the
// debit/credit pairing Send enforces. many-rs's genesis-from-db bootstrap
// writes /balances/<address>/<symbol> keys the same way, ahead of any
// init_chain transaction that could have produced them through Send.
func SetGenesisBalance(store *merkle.Store, addr address.Address, symbol string, amount uint64) {
	putBalance(store, addr, symbol, amount)
}

// SendArgs is one transfer request (spec §8 S3): from, to, symbol, amount.
type SendArgs struct {
	From   address.Address
	To     address.Address
	Symbol string
	Amount uint64
}

// SendInfo is the event payload logged for a successful Send (mirrors
// EventInfo::Send in many-modules/src/events.rs).
type SendInfo struct {
	From   address.Address
	To     address.Address
	Symbol string
	Amount uint64
}

type wireSendInfo struct {
	From   []byte `cbor:"0,keyasint"`
	To     []byte `cbor:"1,keyasint"`
	Symbol string `cbor:"2,keyasint"`
	Amount uint64 `cbor:"3,keyasint"`
}

// MarshalEvent encodes info for the event log.
func (info SendInfo) MarshalEvent() ([]byte, error) {
	return mcbor.Marshal(wireSendInfo{
		From:   info.From.ToVec(),
		To:     info.To.ToVec(),
		Symbol: info.Symbol,
		Amount: info.Amount,
	})
}

// Registry reports whether a symbol is known, so Send can reject transfers
// in a symbol the ledger never registered. modules/tokens implements this.
type Registry interface {
	SymbolExists(symbol string) (bool, error)
}

// Send debits args.From and credits args.To by args.Amount of args.Symbol,
// staging both balance keys in the same batch so a single store.Commit
// makes the transfer atomic. registry may be nil, in which case any symbol
// is accepted (useful for tests and for callers that pre-validate symbols
// themselves).
func Send(store *merkle.Store, registry Registry, args SendArgs) (SendInfo, error) {
	if args.From.IsAnonymous() || args.To.IsAnonymous() {
		return SendInfo{}, errAnonymousErr()
	}
	if registry != nil {
		ok, err := registry.SymbolExists(args.Symbol)
		if err != nil {
			return SendInfo{}, err
		}
		if !ok {
			return SendInfo{}, errUnknownSymbolErr(args.Symbol)
		}
	}

	fromBalance, err := Balance(store, args.From, args.Symbol)
	if err != nil {
		return SendInfo{}, err
	}
	if fromBalance < args.Amount {
		return SendInfo{}, errInsufficientFundsErr()
	}
	toBalance, err := Balance(store, args.To, args.Symbol)
	if err != nil {
		return SendInfo{}, err
	}
	if args.From == args.To {
		toBalance = fromBalance - args.Amount
	}

	putBalance(store, args.From, args.Symbol, fromBalance-args.Amount)
	putBalance(store, args.To, args.Symbol, toBalance+args.Amount)

	return SendInfo{From: args.From, To: args.To, Symbol: args.Symbol, Amount: args.Amount}, nil
}
