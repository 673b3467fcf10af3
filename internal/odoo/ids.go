package odoo

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CheckIDs coerces a record id or a list of ids into []int.
// Accepts ints, whole floats (as decoded from JSON) and numeric strings.
func CheckIDs(v any) ([]int, error) {
	switch ids := v.(type) {
	case nil:
		return nil, &ValidationError{Field: "ids", Reason: "required"}
	case []int:
		return append([]int(nil), ids...), nil
	case []any:
		out := make([]int, 0, len(ids))
		for i, item := range ids {
			id, err := toID(item)
			if err != nil {
				return nil, &ValidationError{Field: fmt.Sprintf("ids[%d]", i), Reason: err.Error()}
			}
			out = append(out, id)
		}
		return out, nil
	case []string:
		out := make([]int, 0, len(ids))
		for i, item := range ids {
			id, err := toID(item)
			if err != nil {
				return nil, &ValidationError{Field: fmt.Sprintf("ids[%d]", i), Reason: err.Error()}
			}
			out = append(out, id)
		}
		return out, nil
	default:
		id, err := toID(v)
		if err != nil {
			return nil, &ValidationError{Field: "ids", Reason: err.Error()}
		}
		return []int{id}, nil
	}
}

func toID(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int(n), nil
	case json.Number:
		return toID(string(n))
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}
