package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fixed cache keys and prefixes shared across components.
const (
	ProviderListKey   = "providers:active"
	EncounterPrefix   = "encounter:"
	IdempotencyPrefix = "idempotency:"
	listPrefix        = "encounters:list:"
)

// EncounterKey returns the detail-cache key for an encounter id.
func EncounterKey(id string) string {
	return EncounterPrefix + id
}

// IdempotencyKey returns the cache key for a client-supplied idempotency key.
func IdempotencyKey(key string) string {
	return IdempotencyPrefix + key
}

// ListKey derives a deterministic key from a normalized filter set. Filters
// are sorted by name so two requests with the same filters in any order share
// one entry; the joined form is hashed so unbounded filter values cannot
// produce unbounded key sizes.
func ListKey(filters map[string]string) string {
	parts := make([]string, 0, len(filters))
	for k, v := range filters {
		if v == "" {
			continue
		}
		parts = append(parts, k+":"+v)
	}
	sort.Strings(parts)
	sum := xxhash.Sum64String(strings.Join(parts, "|"))
	return listPrefix + fmt.Sprintf("%016x", sum)
}
