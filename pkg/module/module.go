// Package module implements the endpoint registry and dispatcher that sits
// between the server pipeline and per-module business logic (spec §4.7):
// each module declares a unique attribute id, a set of endpoint names, and a
// handler per endpoint; the dispatcher locates the endpoint named by a
// decoded request and invokes it.
package module

// Kind distinguishes a state-mutating endpoint from a read-only one. It is
// declared on each Endpoint; the dispatcher and the server pipeline invoke
// both kinds the same way.
type Kind int

const (
	// Command is a state-mutating endpoint (e.g. ledger.send).
	Command Kind = iota
	// Query is a read-only endpoint (e.g. ledger.balance).
	Query
)

// Handler executes one endpoint: it receives the raw argument bytes decoded
// from the request's Data field and returns the raw reply bytes to place in
// the response's Data field, or an error.
type Handler func(args []byte) ([]byte, error)

// Endpoint is one callable method exposed by a Module.
type Endpoint struct {
	Name    string
	Kind    Kind
	Handler Handler
}

// Module is a self-contained unit of protocol functionality: a unique
// attribute id advertised to clients via the server's Info call, plus the
// endpoints it answers.
type Module interface {
	// AttributeID is the module's unique attribute id (§4.5, §4.7).
	AttributeID() uint32
	// Endpoints lists every method this module answers.
	Endpoints() []Endpoint
}
