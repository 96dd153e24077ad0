package common

import (
	"encoding/json"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// CleanText strips HTML tags and entities and collapses whitespace.
// Upstream descriptions routinely arrive as HTML fragments.
func CleanText(raw string) string {
	value := strings.TrimSpace(raw)
	value = html.UnescapeString(value)
	value = tagPattern.ReplaceAllString(value, " ")
	return strings.Join(strings.Fields(value), " ")
}

// FirstString walks the candidate keys in order and returns the first
// non-empty string-like value. Numbers are rendered as strings because
// some upstreams ship ids as JSON numbers in one deployment and strings
// in another.
func FirstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		if s := coerceString(value); s != "" {
			return s
		}
	}
	return ""
}

// FirstInt returns the first candidate value coercible to an int.
func FirstInt(raw map[string]any, keys ...string) int {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		if n, ok := coerceInt(value); ok {
			return n
		}
	}
	return 0
}

// FirstBool returns the first candidate value coercible to a bool.
// Upstreams variously use booleans, 0/1 numbers, and "true"/"1" strings.
func FirstBool(raw map[string]any, keys ...string) bool {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v
		case float64:
			return v != 0
		case json.Number:
			return v.String() != "0"
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "1", "true", "yes":
				return true
			case "0", "false", "no":
				return false
			}
		}
	}
	return false
}

// StringList returns the first candidate value that is a list of strings,
// tolerating mixed-type arrays and comma-joined strings.
func StringList(raw map[string]any, keys ...string) []string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case []any:
			items := make([]string, 0, len(v))
			for _, entry := range v {
				if s := coerceString(entry); s != "" {
					items = append(items, s)
				}
			}
			if len(items) > 0 {
				return items
			}
		case []string:
			if len(v) > 0 {
				return v
			}
		case string:
			parts := strings.Split(v, ",")
			items := make([]string, 0, len(parts))
			for _, part := range parts {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					items = append(items, trimmed)
				}
			}
			if len(items) > 0 {
				return items
			}
		}
	}
	return nil
}

func coerceString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func coerceInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n, true
		}
	case int:
		return v, true
	}
	return 0, false
}
