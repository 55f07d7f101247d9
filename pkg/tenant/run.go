package tenant

import "context"

// Run executes body with id as the active tenant and restores the previous
// tenant on every exit path, including errors and panics. body's result
// and error are returned unchanged.
//
// If ctx carries no slot, body runs in a forked context so the caller's
// view is untouched.
func Run[T any](ctx context.Context, id string, body func(ctx context.Context) (T, error)) (T, error) {
	s := slotFrom(ctx)
	if s == nil {
		return body(WithTenant(ctx, id))
	}

	previous := s.load()
	if Normalize(id) == previous {
		return body(ctx)
	}

	Set(ctx, id)
	defer Set(ctx, previous)
	return body(ctx)
}

// Do is Run for bodies without a result.
func Do(ctx context.Context, id string, body func(ctx context.Context) error) error {
	_, err := Run(ctx, id, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, body(ctx)
	})
	return err
}

// UseDefault executes body with no tenant active.
func UseDefault[T any](ctx context.Context, body func(ctx context.Context) (T, error)) (T, error) {
	return Run(ctx, "", body)
}

// Go starts fn in a new goroutine. fn observes the tenant active in ctx at
// the time of the call, in its own slot.
func Go(ctx context.Context, fn func(ctx context.Context)) {
	child := Fork(ctx)
	go fn(child)
}
