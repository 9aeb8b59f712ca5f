// Package http is the HTTP gateway fronting the request pipeline
// (supplement: an outer transport for pkg/server.Server): envelope
// submission, async-dispatch polling, and event-log tailing over a
// websocket, wired together the way the teacher's walletserver wires
// gorilla/mux routes over its wallet service.
package http

import (
	"time"

	"github.com/gorilla/mux"

	"github.com/synnergy-chain/manynet/pkg/event"
	"github.com/synnergy-chain/manynet/pkg/server"
	"github.com/synnergy-chain/manynet/transport/http/middleware"
)

// Gateway holds the dependencies every route handler needs.
type Gateway struct {
	srv    *server.Server
	events *event.Log
}

// NewGateway builds a Gateway over srv (the signed request pipeline) and
// events (the append-only domain event log it tails over websocket).
func NewGateway(srv *server.Server, events *event.Log) *Gateway {
	return &Gateway{srv: srv, events: events}
}

// Router builds the mux.Router exposing the gateway's routes.
func (g *Gateway) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logger)
	r.HandleFunc("/api/envelope", g.submitEnvelope).Methods("POST")
	r.HandleFunc("/api/async/{token}", g.asyncStatus).Methods("GET")
	r.HandleFunc("/api/events/ws", g.tailEvents)
	return r
}

// eventPollInterval is how often the websocket tailer re-checks the event
// log for records past the client's last-seen id.
const eventPollInterval = 500 * time.Millisecond
