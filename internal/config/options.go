package config

import "strings"

// Options is a loosely-typed option bag decoded straight from JSON config.
//
// Accessors never fail: a missing key or a value of the wrong type yields the
// provided default. This keeps parser/sink option plumbing tolerant of
// hand-written config files.
type Options map[string]any

func (o Options) Bool(key string, def bool) bool {
	if o == nil {
		return def
	}
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

func (o Options) Int(key string, def int) int {
	if o == nil {
		return def
	}
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

func (o Options) Float(key string, def float64) float64 {
	if o == nil {
		return def
	}
	switch v := o[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func (o Options) String(key, def string) string {
	if o == nil {
		return def
	}
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}

// Rune returns the first rune of a string option. JSON has no rune type, so
// delimiters arrive as one-character strings ("," ";" "\t").
func (o Options) Rune(key string, def rune) rune {
	s := o.String(key, "")
	if s == "" {
		return def
	}
	return []rune(s)[0]
}

// Strings accepts either a JSON array of strings or a comma-separated string.
func (o Options) Strings(key string) []string {
	if o == nil {
		return nil
	}
	switch v := o[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

func (o Options) StringMap(key string) map[string]string {
	if o == nil {
		return nil
	}
	raw, ok := o[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
