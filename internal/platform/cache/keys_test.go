package cache

import (
	"strings"
	"testing"
)

func TestListKey_OrderIndependent(t *testing.T) {
	a := ListKey(map[string]string{"providerId": "p1", "page": "1", "limit": "50"})
	b := ListKey(map[string]string{"limit": "50", "providerId": "p1", "page": "1"})

	if a != b {
		t.Errorf("same filters produced different keys: %s vs %s", a, b)
	}
}

func TestListKey_DifferentFiltersDiffer(t *testing.T) {
	a := ListKey(map[string]string{"providerId": "p1", "page": "1"})
	b := ListKey(map[string]string{"providerId": "p1", "page": "2"})

	if a == b {
		t.Error("different filters produced the same key")
	}
}

func TestListKey_EmptyValuesIgnored(t *testing.T) {
	a := ListKey(map[string]string{"providerId": "p1", "patientId": ""})
	b := ListKey(map[string]string{"providerId": "p1"})

	if a != b {
		t.Error("empty filter values should not change the key")
	}
}

func TestListKey_BoundedLength(t *testing.T) {
	key := ListKey(map[string]string{"resourcePath": strings.Repeat("x", 10000)})

	if len(key) > len("encounters:list:")+16 {
		t.Errorf("expected hashed key, got length %d", len(key))
	}
}

func TestEncounterKey(t *testing.T) {
	if got := EncounterKey("abc"); got != "encounter:abc" {
		t.Errorf("unexpected key: %s", got)
	}
}

func TestIdempotencyKey(t *testing.T) {
	if got := IdempotencyKey("k1"); got != "idempotency:k1" {
		t.Errorf("unexpected key: %s", got)
	}
}
