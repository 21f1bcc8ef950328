package intake

import "context"

// CommandFunc is an adapter that lets you use a function as a Commander[T]
type CommandFunc[T any] func(ctx context.Context, msg T) error

// Execute calls the underlying function
func (f CommandFunc[T]) Execute(ctx context.Context, msg T) error {
	return f(ctx, msg)
}

// Commander performs a side effect, e.g. submitting a support case.
type Commander[T any] interface {
	Execute(ctx context.Context, msg T) error
}

// QueryFunc is an adapter that lets you use a function as a Querier[T, R]
type QueryFunc[T any, R any] func(ctx context.Context, msg T) (R, error)

// Query calls the underlying function
func (f QueryFunc[T, R]) Query(ctx context.Context, msg T) (R, error) {
	return f(ctx, msg)
}

// Querier returns data without side effects, e.g. a product history lookup.
type Querier[T any, R any] interface {
	Query(ctx context.Context, msg T) (R, error)
}
