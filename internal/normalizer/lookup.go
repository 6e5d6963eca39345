package normalizer

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// resolve walks a dotted path through nested maps. It returns nil when any
// segment is missing or not a map, which is how renamed and dropped upstream
// fields degrade to null instead of raising.
func resolve(payload map[string]any, path string) any {
	if payload == nil || path == "" {
		return nil
	}
	current := any(payload)
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// firstString returns the first path that resolves to a non-empty string.
func firstString(payload map[string]any, paths []string) string {
	for _, path := range paths {
		if s := asString(resolve(payload, path)); s != "" {
			return s
		}
	}
	return ""
}

// firstTime returns the first path that resolves to a parseable timestamp.
func firstTime(payload map[string]any, paths []string) (time.Time, bool) {
	for _, path := range paths {
		if ts, ok := asTime(resolve(payload, path)); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

// firstInt returns the first path that resolves to an integer.
func firstInt(payload map[string]any, paths []string) (int, bool) {
	for _, path := range paths {
		if n, ok := asInt(resolve(payload, path)); ok {
			return n, true
		}
	}
	return 0, false
}

// firstFloat returns the first path that resolves to a number.
func firstFloat(payload map[string]any, paths []string) (float64, bool) {
	for _, path := range paths {
		if f, ok := asFloat(resolve(payload, path)); ok {
			return f, true
		}
	}
	return 0, false
}

// firstLabelMap returns the first path that resolves to a string-keyed label
// map, with values coerced to strings.
func firstLabelMap(payload map[string]any, paths []string) map[string]string {
	for _, path := range paths {
		m, ok := resolve(payload, path).(map[string]any)
		if !ok {
			continue
		}
		labels := make(map[string]string, len(m))
		for k, v := range m {
			if s := asString(v); s != "" {
				labels[k] = s
			}
		}
		if len(labels) > 0 {
			return labels
		}
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
	case float64:
		if t > 0 {
			sec := int64(t)
			return time.Unix(sec, int64((t-float64(sec))*1e9)).UTC(), true
		}
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return asTime(f)
		}
	}
	return time.Time{}, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// flattenText collects every string value reachable from v in deterministic
// key order, for PII classification over free text.
func flattenText(v any, out *[]string) {
	switch val := v.(type) {
	case string:
		if val != "" {
			*out = append(*out, val)
		}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenText(val[k], out)
		}
	case []any:
		for _, item := range val {
			flattenText(item, out)
		}
	}
}

// topLevelKeyHash fingerprints the observed payload shape so schema drift is
// detectable across batches.
func topLevelKeyHash(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := fnv.New64a()
	h.Write([]byte(strings.Join(keys, ",")))
	return fmt.Sprintf("%x", h.Sum64())
}
