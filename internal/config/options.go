package config

import "encoding/json"

// Options is a free-form JSON object with typed accessors. Each getter returns
// def when the key is absent or holds a value of another type.
type Options map[string]any

// String returns the string at key.
func (o Options) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the bool at key.
func (o Options) Bool(key string, def bool) bool {
	if b, ok := o[key].(bool); ok {
		return b
	}
	return def
}

// Int returns the number at key truncated to int. encoding/json decodes
// numbers as float64, so both float64 and int are accepted.
func (o Options) Int(key string, def int) int {
	switch n := o[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

// Rune returns the first rune of the string at key, e.g. a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if s, ok := o[key].(string); ok && s != "" {
		return []rune(s)[0]
	}
	return def
}

// StringMap returns the string-valued entries of the object at key. The
// result is never nil.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	m, _ := o[key].(map[string]any)
	for k, v := range m {
		if s, ok := v.(string); ok {
			res[k] = s
		}
	}
	return res
}

// UnmarshalJSON decodes a missing or null object into an empty, non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
