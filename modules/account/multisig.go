package account

import (
	"bytes"
	"sort"
	"time"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

// AttributeID is the multisig feature's protocol attribute id (§4.12,
// §7: "multisig (attr 9)").
const AttributeID uint32 = 9

const (
	errTransactionCannotBeFound      uint32 = 100
	errUserCannotApproveTransaction  uint32 = 101
	errTransactionTypeUnsupported    uint32 = 102
	errCannotExecuteTransaction      uint32 = 103
	errTransactionExpiredOrWithdrawn uint32 = 104
)

func errTxNotFound(token string) *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errTransactionCannotBeFound,
		"The transaction {token} cannot be found.", map[string]string{"token": token})
}

func errCannotApprove(who string) *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errUserCannotApproveTransaction,
		"{who} is not in the list of approvers.", map[string]string{"who": who})
}

func errTypeUnsupported() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errTransactionTypeUnsupported,
		"This transaction is not supported.", nil)
}

func errCannotExecute() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errCannotExecuteTransaction,
		"This transaction cannot be executed yet.", nil)
}

func errExpiredOrWithdrawn() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errTransactionExpiredOrWithdrawn,
		"This transaction expired or was withdrawn.", nil)
}

// Status is a pending transaction's place in the §4.12 transition table.
type Status int

const (
	StatusPending Status = iota
	StatusExecutedManually
	StatusExecutedAutomatically
	StatusWithdrawn
	StatusExpired
)

// Kind names the inner transaction a pending multisig runs on execution.
// Only Send is implemented; every other kind is rejected with
// transaction_type_unsupported (ledger mint/burn and beyond are this
// domain's only DeFi semantics per the Non-goals).
type Kind int

const (
	KindSend Kind = iota
)

// SendArgs is the inner ledger.send transaction a multisig may execute.
type SendArgs struct {
	From   address.Address
	To     address.Address
	Symbol string
	Amount uint64
}

// Transaction is the inner operation a PendingTransaction will run once
// executed.
type Transaction struct {
	Kind Kind
	Send SendArgs
}

// PendingTransaction is the persisted state of one in-flight multisig
// transaction, keyed by its opaque token.
type PendingTransaction struct {
	Token                string
	Account              address.Address
	Submitter            address.Address
	Transaction          Transaction
	Approvers            map[address.Address]bool
	Threshold            uint64
	Timeout              time.Time
	ExecuteAutomatically bool
	Status               Status
	Result               []byte
}

// approvalCount returns how many addresses currently have an active
// approval recorded.
func (t PendingTransaction) approvalCount() uint64 {
	var n uint64
	for _, ok := range t.Approvers {
		if ok {
			n++
		}
	}
	return n
}

func multisigKey(token string) []byte {
	return []byte("/multisig/" + token)
}

type wireTransaction struct {
	Kind   uint8  `cbor:"0,keyasint"`
	From   []byte `cbor:"1,keyasint,omitempty"`
	To     []byte `cbor:"2,keyasint,omitempty"`
	Symbol string `cbor:"3,keyasint,omitempty"`
	Amount uint64 `cbor:"4,keyasint,omitempty"`
}

type wirePendingTransaction struct {
	Token       string          `cbor:"0,keyasint"`
	Account     []byte          `cbor:"1,keyasint"`
	Submitter   []byte          `cbor:"2,keyasint"`
	Transaction wireTransaction `cbor:"3,keyasint"`
	Approvers   [][]byte        `cbor:"4,keyasint"`
	Threshold   uint64          `cbor:"5,keyasint"`
	Timeout     uint64          `cbor:"6,keyasint"`
	Auto        bool            `cbor:"7,keyasint"`
	Status      uint8           `cbor:"8,keyasint"`
	Result      []byte          `cbor:"9,keyasint,omitempty"`
}

func (t PendingTransaction) marshal() ([]byte, error) {
	active := make([]address.Address, 0, len(t.Approvers))
	for addr, ok := range t.Approvers {
		if ok {
			active = append(active, addr)
		}
	}
	sort.Slice(active, func(i, j int) bool { return bytes.Compare(active[i][:], active[j][:]) < 0 })
	approvers := make([][]byte, 0, len(active))
	for _, addr := range active {
		approvers = append(approvers, addr.ToVec())
	}
	return mcbor.Marshal(wirePendingTransaction{
		Token:     t.Token,
		Account:   t.Account.ToVec(),
		Submitter: t.Submitter.ToVec(),
		Transaction: wireTransaction{
			Kind:   uint8(t.Transaction.Kind),
			From:   t.Transaction.Send.From.ToVec(),
			To:     t.Transaction.Send.To.ToVec(),
			Symbol: t.Transaction.Send.Symbol,
			Amount: t.Transaction.Send.Amount,
		},
		Approvers: approvers,
		Threshold: t.Threshold,
		Timeout:   uint64(t.Timeout.Unix()),
		Auto:      t.ExecuteAutomatically,
		Status:    uint8(t.Status),
		Result:    t.Result,
	})
}

func unmarshalPendingTransaction(data []byte) (PendingTransaction, error) {
	var w wirePendingTransaction
	if err := mcbor.Unmarshal(data, &w); err != nil {
		return PendingTransaction{}, err
	}
	acc, err := address.FromBytes(w.Account)
	if err != nil {
		return PendingTransaction{}, err
	}
	submitter, err := address.FromBytes(w.Submitter)
	if err != nil {
		return PendingTransaction{}, err
	}
	approvers := make(map[address.Address]bool, len(w.Approvers))
	for _, raw := range w.Approvers {
		addr, err := address.FromBytes(raw)
		if err != nil {
			return PendingTransaction{}, err
		}
		approvers[addr] = true
	}
	from, err := address.FromBytes(w.Transaction.From)
	if err != nil {
		return PendingTransaction{}, err
	}
	to, err := address.FromBytes(w.Transaction.To)
	if err != nil {
		return PendingTransaction{}, err
	}
	return PendingTransaction{
		Token:     w.Token,
		Account:   acc,
		Submitter: submitter,
		Transaction: Transaction{
			Kind: Kind(w.Transaction.Kind),
			Send: SendArgs{From: from, To: to, Symbol: w.Transaction.Symbol, Amount: w.Transaction.Amount},
		},
		Approvers:            approvers,
		Threshold:             w.Threshold,
		Timeout:               time.Unix(int64(w.Timeout), 0).UTC(),
		ExecuteAutomatically:  w.Auto,
		Status:                Status(w.Status),
		Result:                w.Result,
	}, nil
}

func getPending(store *merkle.Store, token string) (PendingTransaction, bool, error) {
	raw, found, err := store.Get(multisigKey(token))
	if err != nil || !found {
		return PendingTransaction{}, found, err
	}
	t, err := unmarshalPendingTransaction(raw)
	return t, true, err
}

func putPending(store *merkle.Store, t PendingTransaction) error {
	data, err := t.marshal()
	if err != nil {
		return err
	}
	store.Apply([]merkle.Op{{Key: multisigKey(t.Token), Value: data}})
	return nil
}

// expireIfDue transitions t to Expired if now is past its timeout and it is
// still Pending (§4.12: "now >= timeout (implicit) -> Expired").
func expireIfDue(t *PendingTransaction, now time.Time) {
	if t.Status == StatusPending && !now.Before(t.Timeout) {
		t.Status = StatusExpired
	}
}

// Executor runs a multisig's inner transaction once it is authorized.
// Implemented by modules/ledger so modules/account never imports it
// directly, matching the teacher's small consumer-side interface idiom
// (core/consensus_network_adapter.go's networkAdapter).
type Executor interface {
	Send(store *merkle.Store, args SendArgs) error
}

// submit creates a new Pending transaction on acc, snapshotting its
// threshold/timeout/auto-execute either from the request's own overrides or
// from the account's current MultisigConfig (§4.12 "Defaults").
func submit(store *merkle.Store, acc Account, submitter address.Address, txn Transaction, token string, threshold, timeoutSecs *uint64, auto *bool, now time.Time) (PendingTransaction, error) {
	th := acc.Multisig.Threshold
	if threshold != nil {
		th = *threshold
	}
	to := acc.Multisig.TimeoutSecs
	if to == 0 {
		to = DefaultTimeoutSecs
	}
	if timeoutSecs != nil {
		to = *timeoutSecs
	}
	if to > MaximumTimeoutSecs {
		to = MaximumTimeoutSecs
	}
	ea := acc.Multisig.ExecuteAutomatically
	if auto != nil {
		ea = *auto
	}

	t := PendingTransaction{
		Token:                token,
		Account:              acc.Address,
		Submitter:            submitter,
		Transaction:          txn,
		Approvers:            map[address.Address]bool{submitter: true},
		Threshold:            th,
		Timeout:              now.Add(time.Duration(to) * time.Second),
		ExecuteAutomatically: ea,
		Status:               StatusPending,
	}
	return t, putPending(store, t)
}

// approve marks approver as having approved t, executing it immediately if
// doing so crosses the threshold and ExecuteAutomatically is set.
func approve(store *merkle.Store, acc Account, t PendingTransaction, approver address.Address, exec Executor, now time.Time) (PendingTransaction, error) {
	expireIfDue(&t, now)
	if t.Status != StatusPending {
		return t, errExpiredOrWithdrawn()
	}
	if !acc.HasRole(approver, RoleApprove) && !acc.HasRole(approver, RoleOwner) {
		return t, errCannotApprove(approver.String())
	}
	t.Approvers[approver] = true

	if t.ExecuteAutomatically && t.approvalCount() >= t.Threshold {
		return runExecution(store, t, exec, StatusExecutedAutomatically)
	}
	return t, putPending(store, t)
}

// revoke clears approver's approval on t.
func revoke(store *merkle.Store, t PendingTransaction, approver address.Address, now time.Time) (PendingTransaction, error) {
	expireIfDue(&t, now)
	if t.Status != StatusPending {
		return t, errExpiredOrWithdrawn()
	}
	if !t.Approvers[approver] {
		return t, errCannotApprove(approver.String())
	}
	delete(t.Approvers, approver)
	return t, putPending(store, t)
}

// execute runs t's inner transaction once approvals meet its threshold.
func execute(store *merkle.Store, t PendingTransaction, exec Executor, now time.Time) (PendingTransaction, error) {
	expireIfDue(&t, now)
	if t.Status != StatusPending {
		return t, errExpiredOrWithdrawn()
	}
	if t.approvalCount() < t.Threshold {
		return t, errCannotExecute()
	}
	return runExecution(store, t, exec, StatusExecutedManually)
}

func runExecution(store *merkle.Store, t PendingTransaction, exec Executor, final Status) (PendingTransaction, error) {
	switch t.Transaction.Kind {
	case KindSend:
		if err := exec.Send(store, t.Transaction.Send); err != nil {
			return t, err
		}
	default:
		return t, errTypeUnsupported()
	}
	t.Status = final
	return t, putPending(store, t)
}

// withdraw cancels t without running its inner transaction. Only the
// submitter or an account owner may withdraw (§4.12).
func withdraw(store *merkle.Store, acc Account, t PendingTransaction, who address.Address, now time.Time) (PendingTransaction, error) {
	expireIfDue(&t, now)
	if t.Status != StatusPending {
		return t, errExpiredOrWithdrawn()
	}
	if who != t.Submitter && !acc.HasRole(who, RoleOwner) {
		return t, errCannotApprove(who.String())
	}
	t.Status = StatusWithdrawn
	return t, putPending(store, t)
}

// info reports t's current status, applying the implicit expiry transition
// as a read-time effect (§4.12, §8 scenario S5) without mutating storage.
// approve, revoke, execute and withdraw also call expireIfDue and refuse an
// expired transaction, but none of them writes the Expired status back.
func info(t PendingTransaction, now time.Time) PendingTransaction {
	expireIfDue(&t, now)
	return t
}
