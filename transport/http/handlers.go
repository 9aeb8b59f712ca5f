package http

import (
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/synnergy-chain/manynet/pkg/server"
)

const maxEnvelopeBytes = 1 << 20

// submitEnvelope accepts a raw, CBOR-encoded signed request envelope in the
// request body and returns the raw, CBOR-encoded, signed response
// envelope (which may itself carry an async-dispatch token, §4.9).
func (g *Gateway) submitEnvelope(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	out, err := g.srv.Handle(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	w.Write(out)
}

// asyncStatus answers an async.status poll for a hex-encoded token (§4.9).
// A Done token's response envelope is written as the body; Queued,
// Processing, Expired, and Unknown are reported via the status header only.
func (g *Gateway) asyncStatus(w http.ResponseWriter, r *http.Request) {
	tokenHex := mux.Vars(r)["token"]
	token, err := hex.DecodeString(tokenHex)
	if err != nil {
		http.Error(w, "malformed token", http.StatusBadRequest)
		return
	}

	result := g.srv.AsyncStatus(token)
	w.Header().Set("X-Async-Status", asyncStatusName(result.Status))
	if result.Status != server.AsyncDone {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/cbor")
	w.Write(result.Envelope)
}

func asyncStatusName(s server.AsyncStatus) string {
	switch s {
	case server.AsyncQueued:
		return "queued"
	case server.AsyncProcessing:
		return "processing"
	case server.AsyncDone:
		return "done"
	case server.AsyncExpired:
		return "expired"
	default:
		return "unknown"
	}
}
