// Package audit stamps created/modified metadata on persisted rows.
//
// The acting principal and the clock travel on the context so storage hooks
// can stamp rows without callers passing them explicitly.
package audit

import (
	"context"
	"time"
)

// SystemActor is recorded when no principal is attached to the context.
const SystemActor = "system"

// Operation distinguishes first writes from later updates.
type Operation int

const (
	Insert Operation = iota
	Update
)

// Clock returns the current time.
type Clock func() time.Time

type actorKey struct{}
type clockKey struct{}

// WithActor attaches the acting principal to ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// DefaultActor attaches actor only when ctx does not already carry one.
// Self-service flows use it so the subject user is recorded unless an
// authenticated principal is already acting.
func DefaultActor(ctx context.Context, actor string) context.Context {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return ctx
	}
	return WithActor(ctx, actor)
}

// Actor returns the acting principal, falling back to SystemActor.
func Actor(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return SystemActor
}

// WithClock overrides the clock used by Now.
func WithClock(ctx context.Context, clock Clock) context.Context {
	return context.WithValue(ctx, clockKey{}, clock)
}

// Now reads the context clock, or the wall clock in UTC.
func Now(ctx context.Context) time.Time {
	if c, ok := ctx.Value(clockKey{}).(Clock); ok && c != nil {
		return c().UTC()
	}
	return time.Now().UTC()
}

// Auditable rows accept created and modified stamps.
type Auditable interface {
	SetCreated(at time.Time, by string)
	SetModified(at time.Time, by string)
}

// Stamp writes the audit columns of row. Inserts set both the created and the
// modified pair; updates only touch the modified pair.
func Stamp(ctx context.Context, row Auditable, op Operation) {
	now := Now(ctx)
	actor := Actor(ctx)

	if op == Insert {
		row.SetCreated(now, actor)
	}
	row.SetModified(now, actor)
}
