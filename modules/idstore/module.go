package idstore

import (
	"strings"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/module"
)

// Module wires idstore.{store,getFromRecallPhrase,getFromAddress} onto the
// dispatcher.
type Module struct {
	store *merkle.Store
}

// New builds a Module backed by store.
func New(store *merkle.Store) *Module { return &Module{store: store} }

func (m *Module) AttributeID() uint32 { return AttributeID }

func (m *Module) Endpoints() []module.Endpoint {
	return []module.Endpoint{
		{Name: "idstore.store", Kind: module.Command, Handler: m.handleStore},
		{Name: "idstore.getFromRecallPhrase", Kind: module.Query, Handler: m.handleGetFromRecallPhrase},
		{Name: "idstore.getFromAddress", Kind: module.Query, Handler: m.handleGetFromAddress},
	}
}

type storeArg struct {
	Sender       []byte `cbor:"0,keyasint"`
	Address      []byte `cbor:"1,keyasint"`
	CredentialID []byte `cbor:"2,keyasint"`
	PublicKey    []byte `cbor:"3,keyasint"`
}

type storeReturn struct {
	RecallPhrase []string `cbor:"0,keyasint"`
}

func (m *Module) handleStore(args []byte) ([]byte, error) {
	var in storeArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	sender, err := address.FromBytes(in.Sender)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	addr, err := address.FromBytes(in.Address)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	phrase, err := Store(m.store, sender, addr, in.CredentialID, in.PublicKey)
	if err != nil {
		return nil, err
	}
	return mcbor.Marshal(storeReturn{RecallPhrase: phrase})
}

type recallPhraseArg struct {
	RecallPhrase string `cbor:"0,keyasint"`
}

type recordReturn struct {
	Address      []byte `cbor:"0,keyasint"`
	CredentialID []byte `cbor:"1,keyasint"`
	PublicKey    []byte `cbor:"2,keyasint"`
}

func (m *Module) handleGetFromRecallPhrase(args []byte) ([]byte, error) {
	var in recallPhraseArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	record, err := GetFromRecallPhrase(m.store, strings.Fields(in.RecallPhrase))
	if err != nil {
		return nil, err
	}
	return mcbor.Marshal(recordReturn{Address: record.Address.ToVec(), CredentialID: record.CredentialID, PublicKey: record.PublicKey})
}

type addressArg struct {
	Address []byte `cbor:"0,keyasint"`
}

func (m *Module) handleGetFromAddress(args []byte) ([]byte, error) {
	var in addressArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	addr, err := address.FromBytes(in.Address)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	record, err := GetFromAddress(m.store, addr)
	if err != nil {
		return nil, err
	}
	return mcbor.Marshal(recordReturn{Address: record.Address.ToVec(), CredentialID: record.CredentialID, PublicKey: record.PublicKey})
}
