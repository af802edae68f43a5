package core

import "context"

type cycleIDKey struct{}

// WithCycleID tags the context with the identifier of the polling cycle in flight.
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	if ctx == nil || cycleID == "" {
		return ctx
	}
	return context.WithValue(ctx, cycleIDKey{}, cycleID)
}

func CycleIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(cycleIDKey{}).(string); ok {
		return v
	}
	return ""
}
