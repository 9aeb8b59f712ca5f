// Package abci adapts a module-backed Server to a Tendermint-style
// consensus engine's seven-operation application contract: info, init_chain,
// begin_block, check_tx, deliver_tx, end_block, and commit (spec §4.10).
//
// It is a thin, narrow-interface wrapper in the same spirit as the
// teacher's networkAdapter: the consensus engine only ever sees Info,
// InitChain, BeginBlock, CheckTx, DeliverTx, EndBlock, and Commit, never the
// store, the migration registry, or the server's pipeline internals.
package abci

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/migration"
	"github.com/synnergy-chain/manynet/pkg/server"
)

var heightKey = []byte("/abci/height")

// Info answers the consensus engine's info call, telling it where the
// application left off so it can replay or skip already-committed blocks.
type Info struct {
	Height  uint64
	AppHash [32]byte
}

// CommitResult is returned by Commit: the new state root and how many
// blocks of history the consensus engine may safely prune below.
type CommitResult struct {
	AppHash      [32]byte
	RetainHeight uint64
}

// CheckResult is the outcome of CheckTx: Code is 0 on success, non-zero
// (paired with a human-readable Log) otherwise. Consensus engines reject
// the transaction from the mempool on any non-zero code.
type CheckResult struct {
	Code uint32
	Log  string
}

// Adapter implements the consensus-facing application contract over a
// Server and the application's Merkle-backed state store.
type Adapter struct {
	mu         sync.Mutex
	store      *merkle.Store
	migrations *migration.Registry
	clock      *server.BlockClock
	srv        *server.Server

	height uint64
}

// New builds an Adapter. store holds application state; migrations runs
// initializers/updates/hotfixes at chain start and at each block height;
// clock is the BlockClock shared with srv so begin_block's header time
// becomes the pipeline's notion of "now"; srv runs the request pipeline for
// deliver_tx and the read-only subset of it for check_tx.
func New(store *merkle.Store, migrations *migration.Registry, clock *server.BlockClock, srv *server.Server) (*Adapter, error) {
	height, err := loadHeight(store)
	if err != nil {
		return nil, err
	}
	return &Adapter{store: store, migrations: migrations, clock: clock, srv: srv, height: height}, nil
}

func loadHeight(store *merkle.Store) (uint64, error) {
	raw, found, err := store.Get(heightKey)
	if err != nil {
		return 0, fmt.Errorf("abci: load height: %w", err)
	}
	if !found || len(raw) < 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

// Info reports the adapter's last-committed height and state root, so the
// consensus engine can resume consistently after a restart.
func (a *Adapter) Info() Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Info{Height: a.height, AppHash: a.store.RootHash()}
}

// InitChain runs every registered initializer once, at genesis (height 0).
func (a *Adapter) InitChain() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.migrations.RunInitializers(a.store, 0); err != nil {
		return fmt.Errorf("abci: init chain: %w", err)
	}
	_, err := a.store.Commit()
	return err
}

// BeginBlock sets the block clock that the server pipeline reads as "now"
// for the rest of the block to the header's time, and runs every enabled
// migration's update for height. It does not store height; the adapter's
// height advances in Commit.
func (a *Adapter) BeginBlock(height uint64, blockTime time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clock.Set(blockTime)
	if err := a.migrations.RunUpdates(a.store, height); err != nil {
		return fmt.Errorf("abci: begin block: %w", err)
	}
	return nil
}

// CheckTx runs the read-only validation subset of the pipeline (§4.8 steps
// 1,3,4,6, plus the duplicate-cache check) without dispatching, so the
// consensus engine can reject malformed or replayed transactions from the
// mempool before they reach deliver_tx.
func (a *Adapter) CheckTx(envelope []byte) CheckResult {
	if err := a.srv.Validate(envelope); err != nil {
		return CheckResult{Code: 1, Log: err.Error()}
	}
	return CheckResult{Code: 0}
}

// DeliverTx runs envelope through the full pipeline and returns the signed
// response envelope. Any per-request failure is carried inside that
// response (as a Response.Err), not as a Go error: only a transport-level
// failure to even produce a response is reported here.
func (a *Adapter) DeliverTx(envelope []byte) ([]byte, error) {
	return a.srv.Handle(envelope)
}

// EndBlock runs any hooks due at the end of a block. The reference
// migration model only acts on chain init and block begin, so this is
// presently a no-op retained for symmetry with the consensus contract.
func (a *Adapter) EndBlock() {}

// Commit persists the block's height alongside whatever state mutations
// deliver_tx staged, as a single atomic batch, and returns the resulting
// state root.
func (a *Adapter) Commit() (CommitResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.height++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, a.height)
	a.store.Apply([]merkle.Op{{Key: heightKey, Value: buf}})

	root, err := a.store.Commit()
	if err != nil {
		return CommitResult{}, fmt.Errorf("abci: commit: %w", err)
	}
	return CommitResult{AppHash: root, RetainHeight: 0}, nil
}
