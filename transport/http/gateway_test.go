package http

import (
	"bytes"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/synnergy-chain/manynet/pkg/envelope"
	"github.com/synnergy-chain/manynet/pkg/event"
	"github.com/synnergy-chain/manynet/pkg/identity"
	"github.com/synnergy-chain/manynet/pkg/mcbor"
	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/message"
	"github.com/synnergy-chain/manynet/pkg/module"
	"github.com/synnergy-chain/manynet/pkg/server"
)

type echoModule struct{}

func (echoModule) AttributeID() uint32 { return 3 }

func (echoModule) Endpoints() []module.Endpoint {
	return []module.Endpoint{
		{Name: "echo.ping", Kind: module.Query, Handler: func(args []byte) ([]byte, error) {
			return args, nil
		}},
	}
}

func newTestGateway(t *testing.T) (*Gateway, identity.Identity) {
	t.Helper()
	dir := t.TempDir()
	cache, err := merkle.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("merkle.Open: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	eventStore, err := merkle.Open(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatalf("merkle.Open: %v", err)
	}
	t.Cleanup(func() { eventStore.Close() })

	respCache, err := server.NewResponseCache(cache, 64, time.Minute)
	if err != nil {
		t.Fatalf("NewResponseCache: %v", err)
	}
	serverID, err := identity.GenerateEd25519Identity()
	if err != nil {
		t.Fatalf("GenerateEd25519Identity: %v", err)
	}
	d := module.NewDispatcher()
	d.Register("echo", echoModule{})
	srv := server.New(serverID, identity.NewCompositeVerifier(), d, server.WallClock{}, respCache, server.NewAsyncStore(time.Minute))

	return NewGateway(srv, event.NewLog(eventStore)), serverID
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

func TestSubmitEnvelopeRoundTrip(t *testing.T) {
	gw, client := newTestGateway(t)
	router := gw.Router()

	raw := signedEnvelope(t, client, "echo.ping", []byte("hi"))
	req := httptest.NewRequest(http.MethodPost, "/api/envelope", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d body %q", rec.Code, rec.Body.String())
	}

	var env envelope.Envelope
	if err := mcbor.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal response envelope: %v", err)
	}
	var resp message.Response
	if err := mcbor.Unmarshal(env.Payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if string(resp.Data) != "hi" {
		t.Fatalf("got %q want %q", resp.Data, "hi")
	}
}

func TestAsyncStatusUnknownTokenReturnsAccepted(t *testing.T) {
	gw, _ := newTestGateway(t)
	router := gw.Router()

	token := hex.EncodeToString([]byte("not-a-real-token"))
	req := httptest.NewRequest(http.MethodGet, "/api/async/"+token, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("got status %d want %d", rec.Code, http.StatusAccepted)
	}
	if rec.Header().Get("X-Async-Status") != "unknown" {
		t.Fatalf("got status header %q want unknown", rec.Header().Get("X-Async-Status"))
	}
}

func TestAsyncStatusMalformedTokenRejected(t *testing.T) {
	gw, _ := newTestGateway(t)
	router := gw.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/async/not-hex!", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRouterRegistersExpectedRoutes(t *testing.T) {
	gw, _ := newTestGateway(t)
	router := gw.Router()

	var paths []string
	router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			paths = append(paths, tmpl)
		}
		return nil
	})

	want := map[string]bool{"/api/envelope": false, "/api/async/{token}": false, "/api/events/ws": false}
	for _, p := range paths {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for p, found := range want {
		if !found {
			t.Fatalf("expected route %q to be registered", p)
		}
	}
}
