// Package event implements the append-only, monotonically-ordered event log
// keyed by EventId (spec §3): every domain action (send, account-create,
// token-create, kvstore-put, web-deploy, multisig-submit, ...) is recorded
// at /events/<id>, with the latest id persisted at /latest_event_id.
//
// Grounded on the teacher's event_management.go shape (a small, focused
// manager type with Emit/List/Get), adapted from a sha256-digest id and an
// in-memory ledger interface to a durable monotonic big-integer id backed
// by pkg/merkle.
package event

import (
	"fmt"
	"math/big"

	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
)

const (
	eventsPrefix = "/events/"
	latestIDKey  = "/latest_event_id"
)

// ID is an arbitrary-length big-endian integer event identifier.
type ID struct {
	V *big.Int
}

func (id ID) key() []byte {
	return []byte(fmt.Sprintf("%s%040s", eventsPrefix, id.V.String()))
}

// String renders the decimal event id.
func (id ID) String() string { return id.V.String() }

// Record is a stored event: its id and an opaque, module-defined info
// payload (the typed domain action).
type Record struct {
	ID   ID
	Info []byte
}

type wireRecord struct {
	Info []byte `cbor:"0,keyasint"`
}

// Log is an append-only event log backed by a merkle.Store.
type Log struct {
	store *merkle.Store
}

// NewLog wraps store as an event log.
func NewLog(store *merkle.Store) *Log { return &Log{store: store} }

func (l *Log) latest() (*big.Int, error) {
	value, found, err := l.store.Get([]byte(latestIDKey))
	if err != nil {
		return nil, err
	}
	if !found {
		return new(big.Int), nil
	}
	n := new(big.Int).SetBytes(value)
	return n, nil
}

// Append assigns the next monotonic id to info and stages it for the
// current block. The caller is responsible for calling the owning store's
// Commit (§4.6: events are immutable once appended, i.e. once committed).
func (l *Log) Append(info []byte) (ID, error) {
	last, err := l.latest()
	if err != nil {
		return ID{}, err
	}
	next := new(big.Int).Add(last, big.NewInt(1))
	id := ID{V: next}

	data, err := mcbor.Marshal(wireRecord{Info: info})
	if err != nil {
		return ID{}, err
	}
	l.store.Apply([]merkle.Op{
		{Key: id.key(), Value: data},
		{Key: []byte(latestIDKey), Value: next.Bytes()},
	})
	return id, nil
}

// Get retrieves a single event by id.
func (l *Log) Get(id ID) (Record, bool, error) {
	value, found, err := l.store.Get(id.key())
	if err != nil || !found {
		return Record{}, found, err
	}
	var w wireRecord
	if err := mcbor.Unmarshal(value, &w); err != nil {
		return Record{}, false, err
	}
	return Record{ID: id, Info: w.Info}, true, nil
}

// List returns committed events in ascending id order, optionally capped at
// limit (limit <= 0 means unbounded).
func (l *Log) List(limit int) ([]Record, error) {
	rows, err := l.store.Range(merkle.RangeOptions{Prefix: []byte(eventsPrefix)})
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		var w wireRecord
		if err := mcbor.Unmarshal(row.Value, &w); err != nil {
			return nil, err
		}
		idStr := row.Key[len(eventsPrefix):]
		n := new(big.Int)
		if _, ok := n.SetString(trimLeadingZeros(string(idStr)), 10); !ok {
			return nil, fmt.Errorf("event: malformed event key %q", row.Key)
		}
		out = append(out, Record{ID: ID{V: n}, Info: w.Info})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}
