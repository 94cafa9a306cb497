package gate

import (
	"context"
)

// guardKey marks a context as being inside a mutating call of one specific gate.
type guardKey struct {
	gate *Gate
}

type requestIDKey struct{}

func (g *Gate) entered(ctx context.Context) bool {
	return ctx.Value(guardKey{gate: g}) != nil
}

func (g *Gate) enter(ctx context.Context) context.Context {
	return context.WithValue(ctx, guardKey{gate: g}, true)
}

// WithRequestID attaches an id that becomes the receipt id of a whitelist call.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
