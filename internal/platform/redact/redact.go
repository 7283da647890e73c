// Package redact replaces protected field values with a fixed marker before
// they are logged or stored in audit records.
package redact

import "strings"

// Marker replaces redacted values wherever protected health information is
// stripped from logs and audit records.
const Marker = "[REDACTED - PHI]"

// maxDepth bounds recursion so attacker-controlled nested payloads cannot
// drive unbounded descent.
const maxDepth = 3

// depthMarker replaces subtrees below maxDepth.
const depthMarker = "[MAX_DEPTH_REACHED]"

// defaultFields are the field names redacted when no explicit set is given.
var defaultFields = []string{
	"password",
	"medicalRecordNumber",
	"dateOfBirth",
	"patientId",
	"apiKey",
	"token",
}

// Map returns a copy of m with the default protected fields replaced by
// Marker, recursively with a depth bound. Field names match
// case-insensitively as substrings, so "patientId" also catches
// "primaryPatientID".
func Map(m map[string]any) map[string]any {
	return MapFields(m, defaultFields)
}

// MapFields is Map with an explicit protected-field set.
func MapFields(m map[string]any, fields []string) map[string]any {
	if m == nil {
		return nil
	}
	lowered := make([]string, len(fields))
	for i, f := range fields {
		lowered[i] = strings.ToLower(f)
	}
	out := redactValue(m, lowered, 0)
	res, _ := out.(map[string]any)
	return res
}

func redactValue(v any, fields []string, depth int) any {
	if depth > maxDepth {
		return depthMarker
	}

	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if isProtected(k, fields) {
				out[k] = Marker
				continue
			}
			out[k] = redactValue(val, fields, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = redactValue(item, fields, depth+1)
		}
		return out
	default:
		return v
	}
}

func isProtected(key string, fields []string) bool {
	lower := strings.ToLower(key)
	for _, f := range fields {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
