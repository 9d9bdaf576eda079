package offset

import (
	"fmt"
)

// ReaffirmSentinel is the wire-level token a function may return instead of
// a mapping, meaning "carry this run's loaded checkpoint forward
// unchanged". It exists only at the boundary; internally updates are the
// tagged Update union.
const ReaffirmSentinel = "SAME"

// Update is either a reaffirmation of the loaded checkpoint or a
// replacement mapping.
type Update struct {
	reaffirm bool
	values   map[string]string
}

func Reaffirm() Update {
	return Update{reaffirm: true}
}

func Replace(values map[string]string) Update {
	cloned := make(map[string]string, len(values))
	for key, value := range values {
		cloned[key] = value
	}
	return Update{values: cloned}
}

func (u Update) IsReaffirm() bool {
	return u.reaffirm
}

func (u Update) Values() map[string]string {
	return u.values
}

// ParseUpdate maps a function's dynamic checkpoint result onto the Update
// union. Offset keys become column names of a single-row table, so keys
// must be strings; anything else is a contract violation.
func ParseUpdate(value any) (Update, error) {
	switch v := value.(type) {
	case string:
		if v == ReaffirmSentinel {
			return Reaffirm(), nil
		}
		return Update{}, fmt.Errorf("offset update string must be %q (got %q)", ReaffirmSentinel, v)
	case map[string]string:
		return Replace(v), nil
	case map[string]any:
		values := make(map[string]string, len(v))
		for key, item := range v {
			values[key] = fmt.Sprintf("%v", item)
		}
		return Replace(values), nil
	case map[any]any:
		values := make(map[string]string, len(v))
		for key, item := range v {
			name, ok := key.(string)
			if !ok {
				return Update{}, fmt.Errorf("offset keys must be strings, got %T key %v", key, key)
			}
			values[name] = fmt.Sprintf("%v", item)
		}
		return Replace(values), nil
	default:
		return Update{}, fmt.Errorf("offset update must be %q or a string-keyed mapping, got %T", ReaffirmSentinel, value)
	}
}
