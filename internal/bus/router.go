package bus

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrNoRoute is returned by Route for a message type with no handler.
var ErrNoRoute = errors.New("no route for event type")

// Router maps each event type to exactly one handler. It is built once at
// startup and handed to a Subscriber; it must not be modified afterwards.
type Router struct {
	routes map[string]Handler
}

// NewRouter returns an empty routing table.
func NewRouter() *Router {
	return &Router{routes: make(map[string]Handler)}
}

// Handle registers h for eventType. A second handler for the same type is
// rejected: fan-out happens inside one handler, not across subscriptions.
func (r *Router) Handle(eventType string, h Handler) error {
	if eventType == "" {
		return errors.New("router: empty event type")
	}
	if h == nil {
		return fmt.Errorf("router: nil handler for %s", eventType)
	}
	if _, exists := r.routes[eventType]; exists {
		return fmt.Errorf("router: %s already has a consumer", eventType)
	}
	r.routes[eventType] = h
	return nil
}

// Route delivers msg to its handler.
func (r *Router) Route(ctx context.Context, msg Message) error {
	h, ok := r.routes[msg.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoRoute, msg.Type)
	}
	return h(ctx, msg)
}

// Has reports whether eventType is routed.
func (r *Router) Has(eventType string) bool {
	_, ok := r.routes[eventType]
	return ok
}

// Types returns the routed event types, sorted.
func (r *Router) Types() []string {
	out := make([]string, 0, len(r.routes))
	for t := range r.routes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
