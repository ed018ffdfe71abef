// Package backend defines the origin computation (L3) the cascade amortizes,
// with an HTTP implementation for remote inference endpoints.
package backend

import (
	"context"
)

// Backend is the expensive, fallible origin operation.
// Compute must honour ctx cancellation where it can; the cascade abandons
// calls whose context is done regardless.
type Backend interface {
	Compute(ctx context.Context, input []byte) ([]byte, error)
}

// Named is implemented by backends that identify themselves in entry metadata.
type Named interface {
	Name() string
}

// Func adapts a plain function to the Backend interface.
type Func func(ctx context.Context, input []byte) ([]byte, error)

// Compute calls f(ctx, input).
func (f Func) Compute(ctx context.Context, input []byte) ([]byte, error) {
	return f(ctx, input)
}
