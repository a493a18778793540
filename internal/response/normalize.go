// Package response reduces the envelope shapes used by different protocol
// versions to one row collection.
//
// Shapes handled, in order of precedence:
//
//	{"value": [...]}            4.x collection
//	{"d": {"results": [...]}}   2.x/3.x collection
//	{"d": [...]}                1.x collection
//	{"d": {...}}                1.x-3.x single entity, returned as the object
//
// The declared protocol version is never consulted: services have been seen
// answering in a shape that does not match the version they advertise.
package response

// Envelope keys
const (
	KeyValue   = "value"
	KeyLegacy  = "d"
	KeyResults = "results"
)

// Normalize extracts the row collection from a decoded payload.
// A nil payload yields an empty collection; unrecognized shapes are
// returned unchanged.
func Normalize(payload any) any {
	if payload == nil {
		return []any{}
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return payload
	}

	if rows, ok := obj[KeyValue].([]any); ok {
		return rows
	}

	envelope, ok := obj[KeyLegacy]
	if !ok {
		return payload
	}
	switch d := envelope.(type) {
	case map[string]any:
		if rows, ok := d[KeyResults].([]any); ok {
			return rows
		}
		return d
	case []any:
		return d
	default:
		return payload
	}
}

// Rows returns the normalized payload as a slice of rows. An object (a single
// entity or an unrecognized envelope) becomes a one-row slice; scalars yield nil, false.
func Rows(payload any) ([]any, bool) {
	switch v := Normalize(payload).(type) {
	case []any:
		return v, true
	case map[string]any:
		return []any{v}, true
	default:
		return nil, false
	}
}
