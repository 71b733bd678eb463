package session

import (
	"sync"

	"github.com/sonara-labs/dialtone/src/agent"
	"github.com/sonara-labs/dialtone/src/telephony"
)

// TransferRoutes are the per-call transfer destinations. Missing
// route numbers fall back to Default.
type TransferRoutes struct {
	Primary   telephony.Route
	Secondary telephony.Route
	Default   telephony.Route
}

// pick resolves an action's route, falling back to Default when the
// named route is unconfigured.
func (r TransferRoutes) pick(action agent.Action) telephony.Route {
	var route telephony.Route
	switch action {
	case agent.ActionTransferPrimary:
		route = r.Primary
	case agent.ActionTransferSecondary:
		route = r.Secondary
	default:
		route = r.Default
	}
	if route.Number == "" {
		route = r.Default
	}
	return route
}

// CallContext is what the dialer knows about a call before its media
// stream connects.
type CallContext struct {
	Lead   agent.Lead
	Routes TransferRoutes
}

// Registry holds pending call contexts between call placement and
// stream start, keyed by call SID. Each context is consumed exactly
// once.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*CallContext
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]*CallContext)}
}

// Put registers a pending context, replacing any previous entry for
// the same call SID.
func (r *Registry) Put(callSID string, ctx *CallContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[callSID] = ctx
}

// Take removes and returns the context for a call SID. The second
// return is false if the call was never registered or already taken.
func (r *Registry) Take(callSID string) (*CallContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.pending[callSID]
	if ok {
		delete(r.pending, callSID)
	}
	return ctx, ok
}

// Len reports the number of pending contexts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
