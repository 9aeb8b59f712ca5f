// Package tokens implements the ledger's symbol registry (supplemented
// feature #2): a symbol's name, ticker, decimals, owner and total supply,
// queryable by token.info/token.list, and created via token.create.
//
// Grounded on `many-ledger/src/storage/ledger_tokens.rs` and
// `many-types/src/ledger.rs` (original_source) for the TokenInfo shape and
// the /config/symbols/<symbol> key layout; wired into the dispatcher the
// way `modules/account` wires multisig, as a narrow package of its own
// rather than folded into modules/ledger's attribute.
package tokens

import (
	"sort"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

// AttributeID identifies the tokens module. many-rs folds token metadata
// into the ledger's own attribute (2); here it is split into its own Go
// package and therefore needs a distinct attribute id of its own.
const AttributeID uint32 = 20

const (
	errSymbolNotFound  = 1
	errSymbolExists    = 2
	errNotOwner        = 3
	errMaximumExceeded = 4
)

func errSymbolNotFoundErr(symbol string) *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errSymbolNotFound,
		"Symbol not found: {symbol}.", map[string]string{"symbol": symbol})
}

func errSymbolExistsErr(symbol string) *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errSymbolExists,
		"Symbol already exists: {symbol}.", map[string]string{"symbol": symbol})
}

func errNotOwnerErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errNotOwner, "Sender does not own this token.", nil)
}

func errMaximumExceededErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errMaximumExceeded, "Maximum supply exceeded.", nil)
}

func symbolKey(symbol string) []byte {
	return []byte("/config/symbols/" + symbol)
}

const symbolsPrefix = "/config/symbols/"

// Info is the persisted record at /config/symbols/<symbol>.
type Info struct {
	Symbol   string
	Name     string
	Ticker   string
	Decimals uint64
	Owner    address.Address
	Supply   uint64
	Maximum  *uint64
}

type wireInfo struct {
	Symbol   string `cbor:"0,keyasint"`
	Name     string `cbor:"1,keyasint"`
	Ticker   string `cbor:"2,keyasint"`
	Decimals uint64 `cbor:"3,keyasint"`
	Owner    []byte `cbor:"4,keyasint"`
	Supply   uint64 `cbor:"5,keyasint"`
	Maximum  uint64 `cbor:"6,keyasint,omitempty"`
	HasMax   bool   `cbor:"7,keyasint"`
}

func (info Info) marshal() ([]byte, error) {
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
	return mcbor.Marshal(w)
}

func unmarshalInfo(data []byte) (Info, error) {
	var w wireInfo
	if err := mcbor.Unmarshal(data, &w); err != nil {
		return Info{}, err
	}
	owner, err := address.FromBytes(w.Owner)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Symbol:   w.Symbol,
		Name:     w.Name,
		Ticker:   w.Ticker,
		Decimals: w.Decimals,
		Owner:    owner,
		Supply:   w.Supply,
	}
	if w.HasMax {
		max := w.Maximum
		info.Maximum = &max
	}
	return info, nil
}

// Get loads a symbol's info, if registered.
func Get(store *merkle.Store, symbol string) (Info, bool, error) {
	raw, found, err := store.Get(symbolKey(symbol))
	if err != nil || !found {
		return Info{}, found, err
	}
	info, err := unmarshalInfo(raw)
	return info, true, err
}

func put(store *merkle.Store, info Info) error {
	data, err := info.marshal()
	if err != nil {
		return err
	}
	store.Apply([]merkle.Op{{Key: symbolKey(info.Symbol), Value: data}})
	return nil
}

// List returns every registered symbol's info, sorted by symbol.
func List(store *merkle.Store) ([]Info, error) {
	rows, err := store.Range(merkle.RangeOptions{Prefix: []byte(symbolsPrefix)})
	if err != nil {
		return nil, err
	}
	out := make([]Info, 0, len(rows))
	for _, row := range rows {
		info, err := unmarshalInfo(row.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// Create registers a brand-new symbol owned by owner. It fails if the
// symbol is already registered.
func Create(store *merkle.Store, symbol, name, ticker string, decimals uint64, owner address.Address, maximum *uint64) (Info, error) {
	if _, found, err := Get(store, symbol); err != nil {
		return Info{}, err
	} else if found {
		return Info{}, errSymbolExistsErr(symbol)
	}
	info := Info{Symbol: symbol, Name: name, Ticker: ticker, Decimals: decimals, Owner: owner, Maximum: maximum}
	if err := put(store, info); err != nil {
		return Info{}, err
	}
	return info, nil
}

// Mint increases symbol's recorded total supply by amount, enforcing the
// registered maximum if any. It does not itself credit a balance; callers
// combine it with modules/ledger's balance keys.
func Mint(store *merkle.Store, symbol string, amount uint64, sender address.Address) (Info, error) {
	info, found, err := Get(store, symbol)
	if err != nil {
		return Info{}, err
	}
	if !found {
		return Info{}, errSymbolNotFoundErr(symbol)
	}
	if info.Owner != sender {
		return Info{}, errNotOwnerErr()
	}
	newSupply := info.Supply + amount
	if info.Maximum != nil && newSupply > *info.Maximum {
		return Info{}, errMaximumExceededErr()
	}
	info.Supply = newSupply
	if err := put(store, info); err != nil {
		return Info{}, err
	}
	return info, nil
}

// SymbolRegistry implements modules/ledger.Registry.
type SymbolRegistry struct{ store *merkle.Store }

// NewSymbolRegistry wraps store as a modules/ledger.Registry.
func NewSymbolRegistry(store *merkle.Store) SymbolRegistry { return SymbolRegistry{store: store} }

func (r SymbolRegistry) SymbolExists(symbol string) (bool, error) {
	_, found, err := Get(r.store, symbol)
	return found, err
}
