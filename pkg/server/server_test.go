package server

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/synnergy-chain/manynet/pkg/attribute"
	"github.com/synnergy-chain/manynet/pkg/envelope"
	"github.com/synnergy-chain/manynet/pkg/identity"
	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/message"
	"github.com/synnergy-chain/manynet/pkg/module"
)

type echoModule struct{ delay time.Duration }

func (echoModule) AttributeID() uint32 { return 42 }

func (m echoModule) Endpoints() []module.Endpoint {
	return []module.Endpoint{
		{Name: "echo.ping", Kind: module.Query, Handler: func(args []byte) ([]byte, error) {
			if m.delay > 0 {
				time.Sleep(m.delay)
			}
			return args, nil
		}},
	}
}

func newTestServer(t *testing.T, delay time.Duration) (*Server, *identity.Ed25519Identity) {
	t.Helper()
	dir := t.TempDir()
	cold, err := merkle.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("merkle.Open: %v", err)
	}
	t.Cleanup(func() { cold.Close() })

	cache, err := NewResponseCache(cold, 64, time.Minute)
	if err != nil {
		t.Fatalf("NewResponseCache: %v", err)
	}

	serverID, err := identity.GenerateEd25519Identity()
	if err != nil {
		t.Fatalf("GenerateEd25519Identity: %v", err)
	}

	d := module.NewDispatcher()
	d.Register("echo", echoModule{delay: delay})

	srv := New(serverID, identity.NewCompositeVerifier(), d, WallClock{}, cache, NewAsyncStore(time.Minute)).
		WithAsyncBudget(50 * time.Millisecond)
	return srv, serverID
}

func signedEnvelope(t *testing.T, sender identity.Identity, method string, data []byte) []byte {
	t.Helper()
	req := message.NewRequest(method, data, 1)
	ts := mcbor.Now()
	req.Timestamp = &ts
	payload, err := mcbor.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	env, err := envelope.Sign(sender, payload, false)
	if err != nil {
		t.Fatalf("sign envelope: %v", err)
	}
	raw, err := mcbor.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func decodeResponse(t *testing.T, raw []byte) message.Response {
	t.Helper()
	var env envelope.Envelope
	if err := mcbor.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	var resp message.Response
	if err := mcbor.Unmarshal(env.Payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return resp
}

func TestHandleSynchronousEcho(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	client, err := identity.GenerateEd25519Identity()
	if err != nil {
		t.Fatalf("GenerateEd25519Identity: %v", err)
	}
	raw := signedEnvelope(t, client, "echo.ping", []byte("hi"))

	out, err := srv.Handle(raw)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := decodeResponse(t, out)
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if string(resp.Data) != "hi" {
		t.Fatalf("got %q want %q", resp.Data, "hi")
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	client, _ := identity.GenerateEd25519Identity()
	raw := signedEnvelope(t, client, "nowhere.go", nil)

	out, err := srv.Handle(raw)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := decodeResponse(t, out)
	if resp.Err == nil || resp.Err.Code != manyerr.CodeCouldNotRouteMessage {
		t.Fatalf("expected CouldNotRouteMessage, got %v", resp.Err)
	}
}

func TestHandleCachesDuplicateSubmission(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	client, _ := identity.GenerateEd25519Identity()
	raw := signedEnvelope(t, client, "echo.ping", []byte("once"))

	first, err := srv.Handle(raw)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	second, err := srv.Handle(raw)
	if err != nil {
		t.Fatalf("Handle (replay): %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("expected identical cached response bytes")
	}
}

func TestHandleGoesAsyncPastBudget(t *testing.T) {
	srv, _ := newTestServer(t, 200*time.Millisecond)
	client, _ := identity.GenerateEd25519Identity()
	raw := signedEnvelope(t, client, "echo.ping", []byte("slow"))

	out, err := srv.Handle(raw)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := decodeResponse(t, out)
	a, ok := resp.Attributes.Get(attribute.AsyncID)
	if !ok {
		t.Fatalf("expected an async attribute, got none")
	}
	token, err := attribute.AsyncToken(a)
	if err != nil {
		t.Fatalf("AsyncToken: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	var result AsyncResult
	for time.Now().Before(deadline) {
		result = srv.AsyncStatus(token)
		if result.Status == AsyncDone {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if result.Status != AsyncDone {
		t.Fatalf("expected Done, got status %d", result.Status)
	}
	done := decodeResponse(t, result.Envelope)
	if string(done.Data) != "slow" {
		t.Fatalf("got %q want %q", done.Data, "slow")
	}
	if !done.From.IsAnonymous() {
		t.Fatalf("async Done response must carry an anonymous from (§4.9)")
	}
}

func TestAsyncQueueDepthGaugeTracksInFlightRequests(t *testing.T) {
	srv, _ := newTestServer(t, 200*time.Millisecond)
	metrics := NewMetrics()
	srv.WithMetrics(metrics)
	client, _ := identity.GenerateEd25519Identity()
	raw := signedEnvelope(t, client, "echo.ping", []byte("slow"))

	out, err := srv.Handle(raw)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := decodeResponse(t, out)
	if testutil.ToFloat64(metrics.asyncQueueDepth) != 1 {
		t.Fatalf("expected async queue depth 1 right after going async")
	}
	a, ok := resp.Attributes.Get(attribute.AsyncID)
	if !ok {
		t.Fatalf("expected an async attribute, got none")
	}
	token, err := attribute.AsyncToken(a)
	if err != nil {
		t.Fatalf("AsyncToken: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	var result AsyncResult
	for time.Now().Before(deadline) {
		result = srv.AsyncStatus(token)
		if result.Status == AsyncDone {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if result.Status != AsyncDone {
		t.Fatalf("expected Done, got status %d", result.Status)
	}
	if testutil.ToFloat64(metrics.asyncQueueDepth) != 0 {
		t.Fatalf("expected async queue depth back to 0 once the request completed")
	}
}

func TestHandleRejectsMissingTimestamp(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	client, _ := identity.GenerateEd25519Identity()

	req := message.NewRequest("echo.ping", []byte("x"), 1)
	payload, _ := mcbor.Marshal(req)
	env, _ := envelope.Sign(client, payload, false)
	raw, _ := mcbor.Marshal(env)

	out, err := srv.Handle(raw)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := decodeResponse(t, out)
	if resp.Err == nil || resp.Err.Code != manyerr.CodeTimestampOutOfRange {
		t.Fatalf("expected TimestampOutOfRange, got %v", resp.Err)
	}
}

func TestValidateRejectsMissingTimestamp(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	client, _ := identity.GenerateEd25519Identity()

	req := message.NewRequest("echo.ping", []byte("x"), 1)
	payload, _ := mcbor.Marshal(req)
	env, _ := envelope.Sign(client, payload, false)
	raw, _ := mcbor.Marshal(env)

	if err := srv.Validate(raw); err == nil {
		t.Fatalf("expected Validate to reject a request with no timestamp")
	}
}

func TestHandleUnknownDestinationRejected(t *testing.T) {
	srv, _ := newTestServer(t, 0)
	client, _ := identity.GenerateEd25519Identity()
	other, _ := identity.GenerateEd25519Identity()

	req := message.NewRequest("echo.ping", []byte("x"), 1)
	req.To = other.Address()
	ts := mcbor.Now()
	req.Timestamp = &ts
	payload, _ := mcbor.Marshal(req)
	env, _ := envelope.Sign(client, payload, false)
	raw, _ := mcbor.Marshal(env)

	out, err := srv.Handle(raw)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	resp := decodeResponse(t, out)
	if resp.Err == nil || resp.Err.Code != manyerr.CodeUnknownDestination {
		t.Fatalf("expected UnknownDestination, got %v", resp.Err)
	}
}
