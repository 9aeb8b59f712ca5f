// Package server implements the request pipeline that sits between the
// transport layer and the module dispatcher (spec §4.8, §4.9): decode,
// deduplicate, verify, resolve the effective sender through any delegation
// chain, validate timing and destination, dispatch, and sign the reply.
package server

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/synnergy-chain/manynet/pkg/address"
	"github.com/synnergy-chain/manynet/pkg/attribute"
	"github.com/synnergy-chain/manynet/pkg/envelope"
	"github.com/synnergy-chain/manynet/pkg/identity"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/message"
	"github.com/synnergy-chain/manynet/pkg/module"
)

// DefaultTimeout is the default acceptable skew between a request's
// timestamp and the server's clock (§4.8 step 6).
const DefaultTimeout = 300 * time.Second

// DefaultAsyncBudget is how long a dispatch is allowed to run synchronously
// before the server returns an async token instead (§4.8 step 9, §4.9).
const DefaultAsyncBudget = 2 * time.Second

// Server runs the §4.8 pipeline over signed envelopes.
type Server struct {
	identity    identity.Identity
	address     address.Address
	verifier    identity.Verifier
	dispatcher  *module.Dispatcher
	clock       Clock
	cache       *ResponseCache
	async       *AsyncStore
	timeout     time.Duration
	asyncBudget time.Duration
	metrics     *Metrics
}

// New builds a Server. id is the server's own signing identity (used to
// sign every response); verifier authenticates incoming envelopes.
func New(id identity.Identity, verifier identity.Verifier, dispatcher *module.Dispatcher, clock Clock, cache *ResponseCache, async *AsyncStore) *Server {
	return &Server{
		identity:    id,
		address:     id.Address(),
		verifier:    verifier,
		dispatcher:  dispatcher,
		clock:       clock,
		cache:       cache,
		async:       async,
		timeout:     DefaultTimeout,
		asyncBudget: DefaultAsyncBudget,
	}
}

// WithTimeout overrides the default request timestamp tolerance.
func (s *Server) WithTimeout(d time.Duration) *Server { s.timeout = d; return s }

// WithAsyncBudget overrides the default synchronous-dispatch budget.
func (s *Server) WithAsyncBudget(d time.Duration) *Server { s.asyncBudget = d; return s }

// WithMetrics attaches m so the async queue depth gauge tracks every
// dispatch that runs past the async budget. Optional: a Server with no
// Metrics attached dispatches exactly as before.
func (s *Server) WithMetrics(m *Metrics) *Server { s.metrics = m; return s }

func fingerprint(raw []byte) []byte {
	sum := sha256.Sum256(raw)
	return sum[:]
}

// Handle runs the full §4.8 pipeline over a raw, CBOR-encoded request
// envelope and returns a raw, CBOR-encoded, signed response envelope.
func (s *Server) Handle(raw []byte) ([]byte, error) {
	now := s.clock.Now()
	fp := fingerprint(raw)

	// Step 2: cache lookup.
	if cached, ok := s.cache.Lookup(fp, now); ok {
		return cached, nil
	}

	resp := s.process(raw, now)

	out, err := s.signResponse(resp)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Store(fp, out, now); err != nil {
		return nil, err
	}
	return out, nil
}

// process runs steps 1, 3-9 and returns an unsigned response (sender and
// id populated, ready for step 10).
func (s *Server) process(raw []byte, now time.Time) message.Response {
	// Step 1: decode envelope.
	var env envelope.Envelope
	if err := mcbor.Unmarshal(raw, &env); err != nil {
		return message.Failure(s.address, 0, manyerr.DeserializationError(err.Error()))
	}
	if len(env.Payload) == 0 {
		return message.Failure(s.address, 0, manyerr.EmptyEnvelope())
	}

	// Step 3: verify envelope signature.
	signer, err := envelope.Verify(s.verifier, env, nil)
	if err != nil {
		return message.Failure(s.address, 0, manyerr.CouldNotVerifySignature(err.Error()))
	}

	// Step 4: decode request message.
	var req message.Request
	if err := mcbor.Unmarshal(env.Payload, &req); err != nil {
		return message.Failure(s.address, 0, manyerr.DeserializationError(err.Error()))
	}

	// Step 5: resolve sender through any delegation chain.
	sender := signer
	if delegation, ok := req.Attributes.Get(attribute.DelegationID); ok {
		resolved, err := attribute.ResolveDelegation(s.verifier, signer, delegation, now)
		if err != nil {
			return message.Failure(s.address, req.ID, manyerr.CouldNotVerifySignature(err.Error()))
		}
		sender = resolved
	}
	req.From = sender

	// Step 6: validate time window. A request carries no timestamp to check
	// against, so it is itself out of range.
	if req.Timestamp == nil {
		return message.Failure(s.address, req.ID, manyerr.TimestampOutOfRange())
	}
	delta := now.Sub(req.Timestamp.Time())
	if delta < 0 {
		delta = -delta
	}
	if delta > s.timeout {
		return message.Failure(s.address, req.ID, manyerr.TimestampOutOfRange())
	}

	// Step 7: validate destination.
	if !req.To.IsAnonymous() && req.To != s.address {
		return message.Failure(s.address, req.ID, manyerr.UnknownDestination(req.To.String(), s.address.String()))
	}

	// Step 9: dispatch, possibly going async. No per-module pre-validation
	// hook runs before it.
	return s.dispatch(req)
}

// dispatch runs req's endpoint, returning the synchronous result or, if it
// doesn't finish within the async budget, an async-token response whose
// real result is later recorded in s.async (§4.9).
func (s *Server) dispatch(req message.Request) message.Response {
	done := make(chan message.Response, 1)
	go func() { done <- s.dispatcher.Dispatch(req) }()

	select {
	case resp := <-done:
		resp.From = s.address
		resp.ID = req.ID
		return resp
	case <-time.After(s.asyncBudget):
		token := s.async.NewToken()
		s.async.MarkProcessing(token)
		if s.metrics != nil {
			s.metrics.asyncQueueDepth.Inc()
		}
		go func() {
			result := <-done
			result.From = s.address
			result.ID = req.ID
			if s.metrics != nil {
				s.metrics.asyncQueueDepth.Dec()
			}
			envBytes, err := buildDoneEnvelope(s.identity, result)
			if err != nil {
				return
			}
			s.async.Complete(token, envBytes)
		}()

		asyncAttr, err := attribute.Async(token)
		if err != nil {
			return message.Failure(s.address, req.ID, manyerr.New(manyerr.CodeInternalServerError, err.Error(), nil))
		}
		attrs, err := attribute.NewSet(asyncAttr)
		if err != nil {
			return message.Failure(s.address, req.ID, manyerr.New(manyerr.CodeInternalServerError, err.Error(), nil))
		}
		return message.Response{Version: message.ProtocolVersion, From: s.address, ID: req.ID, Attributes: attrs}
	}
}

// signResponse encodes resp's payload and wraps it in a signed envelope
// (§4.8 step 10).
func (s *Server) signResponse(resp message.Response) ([]byte, error) {
	payload, err := mcbor.Marshal(resp)
	if err != nil {
		return nil, err
	}
	env, err := envelope.Sign(s.identity, payload, false)
	if err != nil {
		return nil, err
	}
	return mcbor.Marshal(env)
}

// AsyncStatus answers an async.status poll for token (§4.9).
func (s *Server) AsyncStatus(token []byte) AsyncResult {
	return s.async.Status(token, s.clock.Now())
}

// Validate runs the read-only prefix of the pipeline: duplicate check,
// decode, signature verification, request decode, and timestamp validation
// (§4.8 steps 1,3,4,6). It never dispatches and never mutates state, making
// it safe to call from a consensus adapter's check_tx.
func (s *Server) Validate(raw []byte) error {
	now := s.clock.Now()
	fp := fingerprint(raw)
	if _, ok := s.cache.Lookup(fp, now); ok {
		return fmt.Errorf("server: duplicate envelope")
	}

	var env envelope.Envelope
	if err := mcbor.Unmarshal(raw, &env); err != nil {
		return err
	}
	if len(env.Payload) == 0 {
		return manyerr.EmptyEnvelope()
	}
	if _, err := envelope.Verify(s.verifier, env, nil); err != nil {
		return err
	}

	var req message.Request
	if err := mcbor.Unmarshal(env.Payload, &req); err != nil {
		return err
	}
	if req.Timestamp == nil {
		return manyerr.TimestampOutOfRange()
	}
	delta := now.Sub(req.Timestamp.Time())
	if delta < 0 {
		delta = -delta
	}
	if delta > s.timeout {
		return manyerr.TimestampOutOfRange()
	}
	return nil
}
