// Package debug provides category-based debug logging for portier.
//
// Categories select what is logged and come from PORTIER_DEBUG or the
// log.debug config key. The level comes from PORTIER_LOG_LEVEL or
// log.level. Environment wins over config.
//
//	debug.Log("auth", "bearer authorization header received")
//	if debug.Enabled("tokens") { /* expensive formatting */ }
//
// Categories: auth, tokens, tenant, config, transport, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/rhuss/portier/pkg/tenant"
)

// LevelTrace is below slog.LevelDebug. At TRACE, token claims are dumped
// in full.
const LevelTrace = slog.LevelDebug - 4

// categories is read-only after Init.
var categories map[string]bool

func init() {
	categories = parseCategories(os.Getenv("PORTIER_DEBUG"))
}

// Options configures the default logger.
type Options struct {
	Categories string
	Level      string

	// Format is "text" (default) or "json".
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// Init installs the default slog logger. Records logged with a context
// that carries a tenant get a "tenant" attribute.
func Init(opts Options) {
	cats := os.Getenv("PORTIER_DEBUG")
	if cats == "" {
		cats = opts.Categories
	}
	categories = parseCategories(cats)

	level := os.Getenv("PORTIER_LOG_LEVEL")
	if level == "" {
		level = opts.Level
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	slog.SetDefault(slog.New(tenant.NewLogHandler(NewHandler(out, opts.Format, ParseLevel(level)))))
}

// NewHandler builds the text or json handler used by Init.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	ho := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, ho)
	}
	return slog.NewTextHandler(w, ho)
}

// Enabled reports whether debug output is active for category.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a debug message for category. It is a no-op when the
// category is disabled.
func Log(category string, msg string, args ...any) {
	LogContext(context.Background(), category, msg, args...)
}

// LogContext is Log with a context, so the tenant attribute is attached.
func LogContext(ctx context.Context, category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.DebugContext(ctx, msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for category.
func Trace(ctx context.Context, category string, msg string, args ...any) {
	if !TraceEnabled(ctx, category) {
		return
	}
	slog.Log(ctx, LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceEnabled reports whether TRACE is active for category.
func TraceEnabled(ctx context.Context, category string) bool {
	return Enabled(category) && slog.Default().Enabled(ctx, LevelTrace)
}

// ParseLevel converts a level name to a slog.Level. Unknown names map
// to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories, sorted.
func Categories() []string {
	result := make([]string, 0, len(categories))
	for k := range categories {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
