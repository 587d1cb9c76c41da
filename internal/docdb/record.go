package docdb

import (
	"github.com/maruel/ksid"
)

// IDField is the reserved record field holding the system-assigned identifier.
const IDField = "_id"

// Record is one stored document: an open mapping of field names to values
// plus the identifier under IDField. Values are whatever encoding/json
// produces for the stored file (string, float64, bool, nil, []any,
// map[string]any).
type Record map[string]any

// ID returns the record's identifier, or "" if it has none.
func (r Record) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// Clone returns a deep copy of the record. Nested maps and slices are
// copied; other values are assumed immutable, which holds for everything
// encoding/json decodes.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// merge overlays partial onto a copy of the record. Partial wins on key
// conflict; the identifier is preserved regardless of what partial carries.
func (r Record) merge(partial map[string]any) Record {
	out := r.Clone()
	id := r.ID()
	for k, v := range partial {
		out[k] = cloneValue(v)
	}
	if id != "" {
		out[IDField] = id
	}
	return out
}

// newID generates a fresh record identifier. IDs are time-sortable and
// unique within a process.
func newID() string {
	return ksid.NewID().String()
}
