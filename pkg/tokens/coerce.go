package tokens

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/portier/pkg/observability"
)

// coercion is one typed decoding attempt over an untyped claim value.
type coercion func(v any) (any, bool)

// coercions are tried in order; the first that succeeds wins.
var coercions = []coercion{
	asString,
	asBool,
	asFloat64,
	asInt32,
	asInt64,
	asTime,
	asMap,
	asList,
}

// coerceClaims decodes every non-null claim with the first matching
// coercion. Values no coercion accepts are kept in their JSON form.
func coerceClaims(claims jwtlib.MapClaims) map[string]any {
	out := make(map[string]any, len(claims))
	for key, raw := range claims {
		if raw == nil {
			continue
		}
		out[key] = coerceClaim(key, raw)
	}
	return out
}

func coerceClaim(key string, raw any) any {
	for _, attempt := range coercions {
		if v, ok := attempt(raw); ok {
			return v
		}
	}
	slog.Warn("unsupported claim type, using string", "claim", key, "type", fmt.Sprintf("%T", raw))
	observability.ClaimCoercionFallbacksTotal.Inc()
	return stringify(raw)
}

func stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func asString(v any) (any, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (any, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asFloat64(v any) (any, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return nil, false
}

func asInt32(v any) (any, bool) {
	switch n := v.(type) {
	case int32:
		return n, true
	case int:
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n), true
		}
	}
	return nil, false
}

func asInt64(v any) (any, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return nil, false
}

func asTime(v any) (any, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *jwtlib.NumericDate:
		if t == nil {
			return nil, false
		}
		return t.Time, true
	}
	return nil, false
}

func asMap(v any) (any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// asList keeps JSON arrays as lists so multi-valued claims such as roles
// survive verification intact.
func asList(v any) (any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
