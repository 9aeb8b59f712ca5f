// Package kvstore implements a generic, owner-scoped key-value store
// distinct from the protocol's own Merkle state (supplemented feature #4):
// get/query/put/disable/transfer/list endpoints namespaced under
// /kvstore/<owner>/<key>.
//
// Grounded on `many-kvstore/src/storage.rs` and `src/module.rs`
// (original_source) for the put/disable/transfer semantics and the
// disabled-key rejection on get, adapted from a merk-backed two-root
// layout (content root + ACL root) to a single namespaced key prefix over
// pkg/merkle.
package kvstore

import (
	"bytes"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

// AttributeID identifies the kvstore module.
const AttributeID uint32 = 21

const (
	errKeyNotFound      = 1
	errKeyDisabled      = 2
	errPermissionDenied = 3
)

func errKeyNotFoundErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errKeyNotFound, "Key not found.", nil)
}

func errKeyDisabledErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errKeyDisabled, "Key has been disabled.", nil)
}

func errPermissionDeniedErr() *manyerr.Error {
	return manyerr.AttributeSpecific(AttributeID, errPermissionDenied, "Permission denied.", nil)
}

func entryKey(owner address.Address, key []byte) []byte {
	return append([]byte("/kvstore/"+owner.String()+"/"), key...)
}

// Entry is the persisted record for one key.
type Entry struct {
	Owner    address.Address
	Value    []byte
	Disabled bool
	Reason   string
}

type wireEntry struct {
	Owner    []byte `cbor:"0,keyasint"`
	Value    []byte `cbor:"1,keyasint"`
	Disabled bool   `cbor:"2,keyasint"`
	Reason   string `cbor:"3,keyasint,omitempty"`
}

func (e Entry) marshal() ([]byte, error) {
	return mcbor.Marshal(wireEntry{Owner: e.Owner.ToVec(), Value: e.Value, Disabled: e.Disabled, Reason: e.Reason})
}

func unmarshalEntry(data []byte) (Entry, error) {
	var w wireEntry
	if err := mcbor.Unmarshal(data, &w); err != nil {
		return Entry{}, err
	}
	owner, err := address.FromBytes(w.Owner)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Owner: owner, Value: w.Value, Disabled: w.Disabled, Reason: w.Reason}, nil
}

func get(store *merkle.Store, owner address.Address, key []byte) (Entry, bool, error) {
	raw, found, err := store.Get(entryKey(owner, key))
	if err != nil || !found {
		return Entry{}, found, err
	}
	entry, err := unmarshalEntry(raw)
	return entry, true, err
}

func put(store *merkle.Store, owner address.Address, key []byte, entry Entry) error {
	data, err := entry.marshal()
	if err != nil {
		return err
	}
	store.Apply([]merkle.Op{{Key: entryKey(owner, key), Value: data}})
	return nil
}

// Get returns the value at owner/key, rejecting disabled keys (§4.6, mirrors
// many-kvstore's get()).
func Get(store *merkle.Store, owner address.Address, key []byte) ([]byte, bool, error) {
	entry, found, err := get(store, owner, key)
	if err != nil || !found {
		return nil, found, err
	}
	if entry.Disabled {
		return nil, false, errKeyDisabledErr()
	}
	return entry.Value, true, nil
}

// Query returns owner and disabled status without checking the disabled
// flag (so callers can discover *why* a key is unreadable).
func Query(store *merkle.Store, owner address.Address, key []byte) (Entry, bool, error) {
	return get(store, owner, key)
}

// Put creates or overwrites owner/key, enforcing that only the existing
// owner may overwrite a key it already owns.
func Put(store *merkle.Store, sender, owner address.Address, key, value []byte) error {
	existing, found, err := get(store, owner, key)
	if err != nil {
		return err
	}
	if found && existing.Owner != sender {
		return errPermissionDeniedErr()
	}
	return put(store, owner, key, Entry{Owner: owner, Value: value})
}

// Disable marks owner/key as unreadable by Get, recording an optional
// reason. Only the current owner may disable a key.
func Disable(store *merkle.Store, sender, owner address.Address, key []byte, reason string) error {
	entry, found, err := get(store, owner, key)
	if err != nil {
		return err
	}
	if !found {
		return errKeyNotFoundErr()
	}
	if entry.Owner != sender {
		return errPermissionDeniedErr()
	}
	entry.Disabled = true
	entry.Reason = reason
	return put(store, owner, key, entry)
}

// Transfer reassigns owner/key's owner field to newOwner, re-keyed under
// newOwner's namespace. Only the current owner may transfer a key.
func Transfer(store *merkle.Store, sender, owner address.Address, key []byte, newOwner address.Address) error {
	entry, found, err := get(store, owner, key)
	if err != nil {
		return err
	}
	if !found {
		return errKeyNotFoundErr()
	}
	if entry.Owner != sender {
		return errPermissionDeniedErr()
	}
	store.Apply([]merkle.Op{{Key: entryKey(owner, key), Delete: true}})
	entry.Owner = newOwner
	return put(store, newOwner, key, entry)
}

// List returns every key/entry owned by owner, in key order.
func List(store *merkle.Store, owner address.Address) ([]Entry, [][]byte, error) {
	prefix := []byte("/kvstore/" + owner.String() + "/")
	rows, err := store.Range(merkle.RangeOptions{Prefix: prefix})
	if err != nil {
		return nil, nil, err
	}
	entries := make([]Entry, 0, len(rows))
	keys := make([][]byte, 0, len(rows))
	for _, row := range rows {
		entry, err := unmarshalEntry(row.Value)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, entry)
		keys = append(keys, bytes.TrimPrefix(row.Key, prefix))
	}
	return entries, keys, nil
}
