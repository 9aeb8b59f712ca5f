package web

import (
	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/module"
)

// Module wires web.{deploy,remove,info,list} onto the dispatcher.
type Module struct {
	store *merkle.Store
}

// New builds a Module backed by store.
func New(store *merkle.Store) *Module { return &Module{store: store} }

func (m *Module) AttributeID() uint32 { return AttributeID }

func (m *Module) Endpoints() []module.Endpoint {
	return []module.Endpoint{
		{Name: "web.deploy", Kind: module.Command, Handler: m.handleDeploy},
		{Name: "web.remove", Kind: module.Command, Handler: m.handleRemove},
		{Name: "web.info", Kind: module.Query, Handler: m.handleInfo},
		{Name: "web.list", Kind: module.Query, Handler: m.handleList},
	}
}

type deployArg struct {
	Owner       []byte `cbor:"0,keyasint"`
	SiteName    string `cbor:"1,keyasint"`
	Description string `cbor:"2,keyasint,omitempty"`
	Zip         []byte `cbor:"3,keyasint"`
}

type deployReturn struct {
	URL string `cbor:"0,keyasint"`
}

func (m *Module) handleDeploy(args []byte) ([]byte, error) {
	var in deployArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	owner, err := address.FromBytes(in.Owner)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	url, err := Deploy(m.store, owner, in.SiteName, in.Description, in.Zip)
	if err != nil {
		return nil, err
	}
	return mcbor.Marshal(deployReturn{URL: url})
}

type removeArg struct {
	Sender   []byte `cbor:"0,keyasint"`
	Owner    []byte `cbor:"1,keyasint"`
	SiteName string `cbor:"2,keyasint"`
}

func (m *Module) handleRemove(args []byte) ([]byte, error) {
	var in removeArg
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
	if err := Remove(m.store, sender, owner, in.SiteName); err != nil {
		return nil, err
	}
	return nil, nil
}

type infoArg struct {
	Owner    []byte `cbor:"0,keyasint"`
	SiteName string `cbor:"1,keyasint"`
}

type infoReturn struct {
	SiteName    string `cbor:"0,keyasint"`
	Description string `cbor:"1,keyasint,omitempty"`
	URL         string `cbor:"2,keyasint"`
}

func (m *Module) handleInfo(args []byte) ([]byte, error) {
	var in infoArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	owner, err := address.FromBytes(in.Owner)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	info, found, err := GetInfo(m.store, owner, in.SiteName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errSiteNotFoundErr()
	}
	return mcbor.Marshal(infoReturn{SiteName: info.SiteName, Description: info.Description, URL: info.URL})
}

type listArg struct {
	Owner []byte `cbor:"0,keyasint,omitempty"`
}

type listReturn struct {
	Deployments []infoReturn `cbor:"0,keyasint"`
}

func (m *Module) handleList(args []byte) ([]byte, error) {
	var in listArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	var owner *address.Address
	if len(in.Owner) > 0 {
		addr, err := address.FromBytes(in.Owner)
		if err != nil {
			return nil, manyerr.InvalidIdentity()
		}
		owner = &addr
	}
	infos, err := List(m.store, owner)
	if err != nil {
		return nil, err
	}
	out := listReturn{Deployments: make([]infoReturn, len(infos))}
	for i, info := range infos {
		out.Deployments[i] = infoReturn{SiteName: info.SiteName, Description: info.Description, URL: info.URL}
	}
	return mcbor.Marshal(out)
}
