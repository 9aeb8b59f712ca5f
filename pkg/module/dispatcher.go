package module

import (
	"fmt"
	"sort"
	"sync"

	"github.com/synnergy-chain/manynet/pkg/manyerr"
	"github.com/synnergy-chain/manynet/pkg/message"
)

// Dispatcher is the process-wide endpoint registry. It is safe for
// concurrent use; registration is expected at start-up and panics on
// collision, mirroring the teacher's opcode table.
type Dispatcher struct {
	mu        sync.RWMutex
	endpoints map[string]Endpoint
	attrs     map[uint32]string // attribute id -> owning module name, for Info dumps
	metrics   *Metrics
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		endpoints: make(map[string]Endpoint),
		attrs:     make(map[uint32]string),
	}
}

// WithMetrics attaches m so every Dispatch call is counted. Optional: a
// Dispatcher with no Metrics attached dispatches exactly as before.
func (d *Dispatcher) WithMetrics(m *Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Register binds every endpoint of m into the dispatcher. It panics if any
// endpoint name or the module's attribute id is already registered: a
// collision here is a build-time programming error, not a runtime
// condition a caller should have to handle.
func (d *Dispatcher) Register(name string, m Module) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if owner, exists := d.attrs[m.AttributeID()]; exists {
		panic(fmt.Sprintf("module: attribute id %d already registered by %q", m.AttributeID(), owner))
	}
	for _, ep := range m.Endpoints() {
		if _, exists := d.endpoints[ep.Name]; exists {
			panic(fmt.Sprintf("module: endpoint %q already registered", ep.Name))
		}
	}
	for _, ep := range m.Endpoints() {
		d.endpoints[ep.Name] = ep
	}
	d.attrs[m.AttributeID()] = name
}

// Lookup returns the endpoint registered under name, if any.
func (d *Dispatcher) Lookup(name string) (Endpoint, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ep, ok := d.endpoints[name]
	return ep, ok
}

// Dispatch locates the endpoint named by req.Method, invokes it with
// req.Data, and wraps the outcome into a Response addressed back to
// req.From. An unknown method yields manyerr.CouldNotRouteMessage (§4.7).
// A handler error that is a *manyerr.Error is returned with its own code;
// any other handler error is surfaced as an internal server error carrying
// the handler's message.
func (d *Dispatcher) Dispatch(req message.Request) message.Response {
	resp := d.dispatch(req)
	if d.metrics != nil {
		d.metrics.observe(resp)
	}
	return resp
}

func (d *Dispatcher) dispatch(req message.Request) message.Response {
	ep, ok := d.Lookup(req.Method)
	if !ok {
		return message.Failure(req.To, req.ID, manyerr.CouldNotRouteMessage())
	}
	out, err := ep.Handler(req.Data)
	if err != nil {
		if merr, ok := err.(*manyerr.Error); ok {
			return message.Failure(req.To, req.ID, merr)
		}
		return message.Failure(req.To, req.ID, manyerr.New(manyerr.CodeInternalServerError, err.Error(), nil))
	}
	return message.Success(req.To, req.ID, out)
}

// Endpoints returns the names of every registered endpoint, sorted for
// deterministic output (used by Info/debug dumps).
func (d *Dispatcher) Endpoints() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.endpoints))
	for name := range d.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AttributeIDs returns the attribute ids of every registered module,
// sorted, for the server's Info response (§4.7, §4.8).
func (d *Dispatcher) AttributeIDs() []uint32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]uint32, 0, len(d.attrs))
	for id := range d.attrs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
