package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/envelope"
	"github.com/synnergy-chain/manynet/pkg/identity"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/message"
)

// AsyncStatus is the status reported by async.status (§4.9).
type AsyncStatus int

const (
	AsyncUnknown AsyncStatus = iota
	AsyncQueued
	AsyncProcessing
	AsyncDone
	AsyncExpired
)

// AsyncResult is the decoded reply to an async.status poll. Envelope is
// populated only when Status is AsyncDone.
type AsyncResult struct {
	Status   AsyncStatus
	Envelope []byte
}

type asyncEntry struct {
	status   AsyncStatus
	envelope []byte
	expires  time.Time
}

// AsyncStore tracks in-flight async dispatch tokens (§4.9). Tokens are
// short-lived; an entry not completed before its deadline reports Expired.
type AsyncStore struct {
	mu      sync.Mutex
	entries map[string]*asyncEntry
	ttl     time.Duration
}

// NewAsyncStore builds a store whose tokens live for ttl.
func NewAsyncStore(ttl time.Duration) *AsyncStore {
	return &AsyncStore{entries: make(map[string]*asyncEntry), ttl: ttl}
}

// NewToken mints an opaque token and records it Queued.
func (s *AsyncStore) NewToken() []byte {
	token := uuid.New()
	b := token[:]
	s.mu.Lock()
	s.entries[string(b)] = &asyncEntry{status: AsyncQueued, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return append([]byte(nil), b...)
}

// MarkProcessing transitions token from Queued to Processing.
func (s *AsyncStore) MarkProcessing(token []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[string(token)]; ok {
		e.status = AsyncProcessing
	}
}

// Complete records the finished, fully-signed response envelope for token.
func (s *AsyncStore) Complete(token []byte, responseEnvelope []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[string(token)]; ok {
		e.status = AsyncDone
		e.envelope = responseEnvelope
	}
}

// Status reports token's current state as of now.
func (s *AsyncStore) Status(token []byte, now time.Time) AsyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[string(token)]
	if !ok {
		return AsyncResult{Status: AsyncUnknown}
	}
	if e.status != AsyncDone && now.After(e.expires) {
		return AsyncResult{Status: AsyncExpired}
	}
	return AsyncResult{Status: e.status, Envelope: e.envelope}
}

// buildDoneEnvelope signs resp after forcing the replay-safe canonical
// fields required of an async Done response (§4.9): anonymous sender, no
// version, and a zero timestamp, so the same logical completion produces
// byte-identical envelopes across replicas regardless of when each one
// finished the work.
func buildDoneEnvelope(signer identity.Identity, resp message.Response) ([]byte, error) {
	resp.Version = 0
	resp.From = address.Anonymous
	epoch := mcbor.FromTime(time.Unix(0, 0).UTC())
	resp.Timestamp = &epoch

	payload, err := mcbor.Marshal(resp)
	if err != nil {
		return nil, err
	}
	env, err := envelope.Sign(signer, payload, false)
	if err != nil {
		return nil, err
	}
	return mcbor.Marshal(env)
}
