package redact

import "testing"

func TestMap_RedactsProtectedFields(t *testing.T) {
	in := map[string]any{
		"patientId":           "abc-123",
		"medicalRecordNumber": "MRN-1",
		"dateOfBirth":         "1990-01-01",
		"encounterType":       "FOLLOW_UP",
	}

	out := Map(in)

	for _, field := range []string{"patientId", "medicalRecordNumber", "dateOfBirth"} {
		if out[field] != Marker {
			t.Errorf("expected %s to be redacted, got %v", field, out[field])
		}
	}
	if out["encounterType"] != "FOLLOW_UP" {
		t.Errorf("expected encounterType to pass through, got %v", out["encounterType"])
	}
}

func TestMap_CaseInsensitiveSubstringMatch(t *testing.T) {
	in := map[string]any{
		"primaryPatientID": "x",
		"PATIENTID":        "y",
		"userToken":        "z",
	}

	out := Map(in)

	for k := range in {
		if out[k] != Marker {
			t.Errorf("expected %s to be redacted, got %v", k, out[k])
		}
	}
}

func TestMap_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{"patientId": "abc"}

	Map(in)

	if in["patientId"] != "abc" {
		t.Errorf("input map was mutated: %v", in["patientId"])
	}
}

func TestMap_RecursesIntoNestedMapsAndSlices(t *testing.T) {
	in := map[string]any{
		"items": []any{
			map[string]any{"patientId": "a", "kind": "ok"},
		},
	}

	out := Map(in)

	items := out["items"].([]any)
	first := items[0].(map[string]any)
	if first["patientId"] != Marker {
		t.Errorf("expected nested patientId redacted, got %v", first["patientId"])
	}
	if first["kind"] != "ok" {
		t.Errorf("expected nested kind preserved, got %v", first["kind"])
	}
}

func TestMap_DepthBound(t *testing.T) {
	in := map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": map[string]any{
					"d": map[string]any{"deep": "value"},
				},
			},
		},
	}

	out := Map(in)

	a := out["a"].(map[string]any)
	b := a["b"].(map[string]any)
	c := b["c"].(map[string]any)
	if c["d"] != depthMarker {
		t.Errorf("expected subtree past depth bound replaced, got %v", c["d"])
	}
}

func TestMapFields_ExplicitSet(t *testing.T) {
	in := map[string]any{
		"secret":    "x",
		"patientId": "y",
	}

	out := MapFields(in, []string{"secret"})

	if out["secret"] != Marker {
		t.Errorf("expected secret redacted, got %v", out["secret"])
	}
	if out["patientId"] != "y" {
		t.Errorf("expected patientId untouched with explicit set, got %v", out["patientId"])
	}
}

func TestMap_NilInput(t *testing.T) {
	if out := Map(nil); out != nil {
		t.Errorf("expected nil for nil input, got %v", out)
	}
}
