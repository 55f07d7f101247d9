package tenant

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/rhuss/portier/pkg/observability"
)

// Default is the sentinel equivalent to no tenant.
const Default = "default"

// Normalize trims id and maps the default sentinel to the empty string.
// The sentinel match is exact, so "DEFAULT" names a real tenant.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if id == Default {
		return ""
	}
	return id
}

// slot holds the tenant of one execution. The pointer is atomic so that a
// slot mistakenly shared between goroutines stays race free; ownership is
// still single-execution.
type slot struct {
	value atomic.Pointer[string]
}

func (s *slot) load() string {
	if p := s.value.Load(); p != nil {
		return *p
	}
	return ""
}

func (s *slot) store(id string) {
	if id == "" {
		s.value.Store(nil)
		return
	}
	s.value.Store(&id)
}

type slotKey struct{}

func slotFrom(ctx context.Context) *slot {
	s, _ := ctx.Value(slotKey{}).(*slot)
	return s
}

// Fork returns a context with a fresh slot seeded from the tenant that is
// active in ctx. Later changes on either side are not visible to the other.
func Fork(ctx context.Context) context.Context {
	s := &slot{}
	if parent := slotFrom(ctx); parent != nil {
		s.store(parent.load())
	}
	return context.WithValue(ctx, slotKey{}, s)
}

// WithTenant forks ctx and sets id in the new slot.
func WithTenant(ctx context.Context, id string) context.Context {
	ctx = Fork(ctx)
	slotFrom(ctx).store(Normalize(id))
	return ctx
}

// Get returns the active tenant, if any.
func Get(ctx context.Context) (string, bool) {
	s := slotFrom(ctx)
	if s == nil {
		return "", false
	}
	id := s.load()
	return id, id != ""
}

// Current returns the active tenant or the empty string.
func Current(ctx context.Context) string {
	id, _ := Get(ctx)
	return id
}

// IsDefault reports whether no explicit tenant is active.
func IsDefault(ctx context.Context) bool {
	_, ok := Get(ctx)
	return !ok
}

// Set makes id the active tenant of the execution owning ctx. Setting the
// current value is a no-op; an empty id or "default" clears the tenant.
// Set reports false when ctx carries no slot (see Fork).
func Set(ctx context.Context, id string) bool {
	s := slotFrom(ctx)
	if s == nil {
		slog.DebugContext(ctx, "tenant set outside of a scope", "tenant", id)
		return false
	}
	id = Normalize(id)
	current := s.load()
	if id == current {
		return true
	}
	slog.DebugContext(ctx, "tenant switch", "from", displayName(current), "to", displayName(id))
	observability.TenantSwitchesTotal.Inc()
	s.store(id)
	return true
}

// Clear resets the execution to the default tenant.
func Clear(ctx context.Context) bool {
	return Set(ctx, "")
}

func displayName(id string) string {
	if id == "" {
		return Default
	}
	return id
}
