package model

import (
	"context"
	"net/http"
	"strings"
)

// Identity headers attached by the UI. They are informational only.
const (
	HeaderUserID      = "X-User-Id"
	HeaderUserAccount = "X-User-Account"
)

// Actor is the caller identity forwarded by the UI. Nothing enforces it.
type Actor struct {
	ID      string `json:"id,omitempty"`
	Account string `json:"account,omitempty"`
}

// IsZero reports whether no identity was supplied.
func (a Actor) IsZero() bool {
	return a.ID == "" && a.Account == ""
}

// ActorFromHeader reads the identity headers of a request.
func ActorFromHeader(h http.Header) Actor {
	return Actor{
		ID:      strings.TrimSpace(h.Get(HeaderUserID)),
		Account: strings.TrimSpace(h.Get(HeaderUserAccount)),
	}
}

type actorKey struct{}

// WithActor returns a context carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the actor stored by WithActor, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
