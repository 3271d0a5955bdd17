package core

import (
	"context"
	"strings"
)

type contextKey string

const actorKey contextKey = "actor_id"

// WithActor stores the authenticated user id on ctx.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey, strings.TrimSpace(actorID))
}

// ActorFromContext returns the authenticated user id, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// RequireActor returns an Auth error when ctx carries no actor.
func RequireActor(ctx context.Context, op string) (string, error) {
	id, ok := ActorFromContext(ctx)
	if !ok {
		return "", Auth(op, ErrUnauthenticated)
	}
	return id, nil
}
