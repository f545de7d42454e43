package manager

import (
	"encoding/json"
	"fmt"
)

// GetAs fetches part/key as T. Values restored from a snapshot arrive as
// decoded JSON (maps, json.RawMessage or []byte) and are re-decoded into T.
// A value that cannot be converted counts as a miss.
func GetAs[T any](m *Manager, part, key string) (T, bool) {
	var zero T
	v, ok := m.Get(part, key)
	if !ok {
		return zero, false
	}
	out, err := convert[T](v)
	if err != nil {
		m.log.Warn("cache value has unexpected shape", "partition", part, "key", key, "err", err)
		return zero, false
	}
	return out, true
}

func convert[T any](v any) (T, error) {
	var out T
	switch x := v.(type) {
	case T:
		return x, nil
	case *T:
		if x == nil {
			return out, fmt.Errorf("nil %T", v)
		}
		return *x, nil
	case json.RawMessage:
		err := json.Unmarshal(x, &out)
		return out, err
	case []byte:
		err := json.Unmarshal(x, &out)
		return out, err
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return out, fmt.Errorf("re-encode %T: %w", v, err)
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return out, fmt.Errorf("decode into %T: %w", out, err)
		}
		return out, nil
	}
}
