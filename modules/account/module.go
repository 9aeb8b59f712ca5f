package account

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/module"
)

// Module wires the account/multisig state machine into the dispatcher.
type Module struct {
	store *merkle.Store
	exec  Executor
	now   func() time.Time
}

// New builds a Module backed by store, running executed sends through exec.
func New(store *merkle.Store, exec Executor) *Module {
	return &Module{store: store, exec: exec, now: time.Now}
}

func (m *Module) AttributeID() uint32 { return AttributeID }

func (m *Module) Endpoints() []module.Endpoint {
	return []module.Endpoint{
		{Name: "account.create", Kind: module.Command, Handler: m.handleCreate},
		{Name: "account.multisigSubmit", Kind: module.Command, Handler: m.handleSubmit},
		{Name: "account.multisigApprove", Kind: module.Command, Handler: m.handleApprove},
		{Name: "account.multisigRevoke", Kind: module.Command, Handler: m.handleRevoke},
		{Name: "account.multisigExecute", Kind: module.Command, Handler: m.handleExecute},
		{Name: "account.multisigWithdraw", Kind: module.Command, Handler: m.handleWithdraw},
		{Name: "account.multisigInfo", Kind: module.Query, Handler: m.handleInfo},
	}
}

// --- account.create ---

type createArg struct {
	Address   []byte     `cbor:"0,keyasint"`
	Owners    [][]byte   `cbor:"1,keyasint"`
	Roles     [][]string `cbor:"2,keyasint"`
	Threshold *uint64    `cbor:"3,keyasint,omitempty"`
	Timeout   uint64     `cbor:"4,keyasint"`
	Auto      bool       `cbor:"5,keyasint"`
}

func (m *Module) handleCreate(args []byte) ([]byte, error) {
	var in createArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	addr, err := address.FromBytes(in.Address)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	roles := make(map[address.Address][]Role, len(in.Owners))
	for i, ownerBytes := range in.Owners {
		owner, err := address.FromBytes(ownerBytes)
		if err != nil {
			return nil, manyerr.InvalidIdentity()
		}
		rs := make([]Role, len(in.Roles[i]))
		for j, r := range in.Roles[i] {
			rs[j] = Role(r)
		}
		roles[owner] = rs
	}
	threshold := defaultThreshold(roles)
	if in.Threshold != nil {
		threshold = *in.Threshold
	}
	acc := Account{
		Address: addr,
		Roles:   roles,
		Multisig: MultisigConfig{
			Threshold:            threshold,
			TimeoutSecs:          in.Timeout,
			ExecuteAutomatically: in.Auto,
		},
	}
	if err := putAccount(m.store, acc); err != nil {
		return nil, err
	}
	return addr.ToVec(), nil
}

// --- account.multisigSubmit ---

type submitArg struct {
	Account   []byte  `cbor:"0,keyasint"`
	From      []byte  `cbor:"1,keyasint"`
	To        []byte  `cbor:"2,keyasint"`
	Symbol    string  `cbor:"3,keyasint"`
	Amount    uint64  `cbor:"4,keyasint"`
	Threshold *uint64 `cbor:"5,keyasint,omitempty"`
	Timeout   *uint64 `cbor:"6,keyasint,omitempty"`
	Auto      *bool   `cbor:"7,keyasint,omitempty"`
}

func (m *Module) handleSubmit(args []byte) ([]byte, error) {
	var in submitArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	accAddr, err := address.FromBytes(in.Account)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	acc, found, err := getAccount(m.store, accAddr)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, manyerr.RequiredFieldMissing("account")
	}

	from, err := address.FromBytes(in.From)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	to, err := address.FromBytes(in.To)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}

	// TODO: derive the submitter from the verified sender rather than a
	// dedicated field once the dispatcher threads message.Request.From
	// through to module handlers.
	submitter := from
	if !acc.HasRole(submitter, RoleSubmit) && !acc.HasRole(submitter, RoleOwner) {
		return nil, errCannotApprove(submitter.String())
	}

	token := uuid.NewString()
	txn := Transaction{Kind: KindSend, Send: SendArgs{From: from, To: to, Symbol: in.Symbol, Amount: in.Amount}}
	t, err := submit(m.store, acc, submitter, txn, token, in.Threshold, in.Timeout, in.Auto, m.now())
	if err != nil {
		return nil, err
	}
	return []byte(t.Token), nil
}

// --- approve / revoke / execute / withdraw share a {token} argument ---

type tokenArg struct {
	Token string `cbor:"0,keyasint"`
}

func (m *Module) loadPending(args []byte) (Account, PendingTransaction, error) {
	var in tokenArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return Account{}, PendingTransaction{}, manyerr.DeserializationError(err.Error())
	}
	t, found, err := getPending(m.store, in.Token)
	if err != nil {
		return Account{}, PendingTransaction{}, err
	}
	if !found {
		return Account{}, PendingTransaction{}, errTxNotFound(in.Token)
	}
	acc, found, err := getAccount(m.store, t.Account)
	if err != nil {
		return Account{}, PendingTransaction{}, err
	}
	if !found {
		return Account{}, PendingTransaction{}, fmt.Errorf("account: pending transaction references unknown account %s", t.Account)
	}
	return acc, t, nil
}

// approveArg additionally carries the approver, until the dispatcher
// forwards the verified sender to handlers (see the TODO in handleSubmit).
type approveArg struct {
	Token    string `cbor:"0,keyasint"`
	Approver []byte `cbor:"1,keyasint"`
}

func (m *Module) handleApprove(args []byte) ([]byte, error) {
	var in approveArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	acc, t, err := m.loadPending(args)
	if err != nil {
		return nil, err
	}
	approver, err := address.FromBytes(in.Approver)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	t, err = approve(m.store, acc, t, approver, m.exec, m.now())
	if err != nil {
		return nil, err
	}
	return []byte{byte(t.Status)}, nil
}

func (m *Module) handleRevoke(args []byte) ([]byte, error) {
	var in approveArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	_, t, err := m.loadPending(args)
	if err != nil {
		return nil, err
	}
	approver, err := address.FromBytes(in.Approver)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	t, err = revoke(m.store, t, approver, m.now())
	if err != nil {
		return nil, err
	}
	return []byte{byte(t.Status)}, nil
}

func (m *Module) handleExecute(args []byte) ([]byte, error) {
	_, t, err := m.loadPending(args)
	if err != nil {
		return nil, err
	}
	t, err = execute(m.store, t, m.exec, m.now())
	if err != nil {
		return nil, err
	}
	return []byte{byte(t.Status)}, nil
}

func (m *Module) handleWithdraw(args []byte) ([]byte, error) {
	var in approveArg
	if err := mcbor.Unmarshal(args, &in); err != nil {
		return nil, manyerr.DeserializationError(err.Error())
	}
	acc, t, err := m.loadPending(args)
	if err != nil {
		return nil, err
	}
	who, err := address.FromBytes(in.Approver)
	if err != nil {
		return nil, manyerr.InvalidIdentity()
	}
	t, err = withdraw(m.store, acc, t, who, m.now())
	if err != nil {
		return nil, err
	}
	return []byte{byte(t.Status)}, nil
}

type infoReturn struct {
	Status    uint8  `cbor:"0,keyasint"`
	Threshold uint64 `cbor:"1,keyasint"`
	Approved  uint64 `cbor:"2,keyasint"`
}

func (m *Module) handleInfo(args []byte) ([]byte, error) {
	_, t, err := m.loadPending(args)
	if err != nil {
		return nil, err
	}
	t = info(t, m.now())
	return mcbor.Marshal(infoReturn{Status: uint8(t.Status), Threshold: t.Threshold, Approved: t.approvalCount()})
}
