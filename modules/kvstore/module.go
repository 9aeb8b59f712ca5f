package kvstore

import (
	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/module"
)

// Module wires kvstore.{get,query,put,disable,transfer,list} onto the
// dispatcher.
type Module struct {
	store *merkle.Store
}

// New builds a Module backed by store.
func New(store *merkle.Store) *Module { return &Module{store: store} }

func (m *Module) AttributeID() uint32 { return AttributeID }

func (m *Module) Endpoints() []module.Endpoint {
	return []module.Endpoint{
		{Name: "kvstore.get", Kind: module.Query, Handler: m.handleGet},
		{Name: "kvstore.query", Kind: module.Query, Handler: m.handleQuery},
		{Name: "kvstore.put", Kind: module.Command, Handler: m.handlePut},
		{Name: "kvstore.disable", Kind: module.Command, Handler: m.handleDisable},
		{Name: "kvstore.transfer", Kind: module.Command, Handler: m.handleTransfer},
		{Name: "kvstore.list", Kind: module.Query, Handler: m.handleList},
	}
}

type keyArg struct {
	Owner []byte `cbor:"0,keyasint"`
	Key   []byte `cbor:"1,keyasint"`
}

func (m *Module) handleGet(args []byte) ([]byte, error) {
	var in keyArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	owner, err := address.FromBytes(in.Owner)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	value, found, err := Get(m.store, owner, in.Key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return value, nil
}

type queryReturn struct {
	Owner    []byte `cbor:"0,keyasint"`
	Disabled bool   `cbor:"1,keyasint"`
	Reason   string `cbor:"2,keyasint,omitempty"`
}

func (m *Module) handleQuery(args []byte) ([]byte, error) {
	var in keyArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	owner, err := address.FromBytes(in.Owner)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	entry, found, err := Query(m.store, owner, in.Key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errKeyNotFoundErr()
	}
	return mcbor.Marshal(queryReturn{Owner: entry.Owner.ToVec(), Disabled: entry.Disabled, Reason: entry.Reason})
}

type putArg struct {
	Sender []byte `cbor:"0,keyasint"`
	Owner  []byte `cbor:"1,keyasint"`
	Key    []byte `cbor:"2,keyasint"`
	Value  []byte `cbor:"3,keyasint"`
}

func (m *Module) handlePut(args []byte) ([]byte, error) {
	var in putArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	sender, err := address.FromBytes(in.Sender)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	owner, err := address.FromBytes(in.Owner)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	if err := Put(m.store, sender, owner, in.Key, in.Value); err != nil {
		return nil, err
	}
	return nil, nil
}

type disableArg struct {
	Sender []byte `cbor:"0,keyasint"`
	Owner  []byte `cbor:"1,keyasint"`
	Key    []byte `cbor:"2,keyasint"`
	Reason string `cbor:"3,keyasint,omitempty"`
}

func (m *Module) handleDisable(args []byte) ([]byte, error) {
	var in disableArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	sender, err := address.FromBytes(in.Sender)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	owner, err := address.FromBytes(in.Owner)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	if err := Disable(m.store, sender, owner, in.Key, in.Reason); err != nil {
		return nil, err
	}
	return nil, nil
}

type transferArg struct {
	Sender   []byte `cbor:"0,keyasint"`
	Owner    []byte `cbor:"1,keyasint"`
	Key      []byte `cbor:"2,keyasint"`
	NewOwner []byte `cbor:"3,keyasint"`
}

func (m *Module) handleTransfer(args []byte) ([]byte, error) {
	var in transferArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	sender, err := address.FromBytes(in.Sender)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	owner, err := address.FromBytes(in.Owner)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	newOwner, err := address.FromBytes(in.NewOwner)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	if err := Transfer(m.store, sender, owner, in.Key, newOwner); err != nil {
		return nil, err
	}
	return nil, nil
}

type listArg struct {
	Owner []byte `cbor:"0,keyasint"`
}

type listReturn struct {
	Keys     [][]byte `cbor:"0,keyasint"`
	Disabled []bool   `cbor:"1,keyasint"`
}

func (m *Module) handleList(args []byte) ([]byte, error) {
	var in listArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	owner, err := address.FromBytes(in.Owner)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	entries, keys, err := List(m.store, owner)
	if err != nil {
		return nil, err
	}
	out := listReturn{Keys: keys, Disabled: make([]bool, len(entries))}
	for i, entry := range entries {
		out.Disabled[i] = entry.Disabled
	}
	return mcbor.Marshal(out)
}
