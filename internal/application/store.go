package application

import (
	"sort"
	"strings"

	"github.com/lebbe/premises/internal/domain"
)

// Merge overlays user concepts on a base collection. A user concept with
// a matching id replaces the base concept wholesale; there is no
// field-level merge. Base ordering is preserved, new user concepts are
// appended in their own order.
func Merge(user, base []domain.Concept) []domain.Concept {
	overrides := make(map[string]domain.Concept, len(user))
	for _, c := range user {
		overrides[c.ID] = c
	}

	merged := make([]domain.Concept, 0, len(base)+len(user))
	seen := make(map[string]bool, len(base))
	for _, c := range base {
		if o, ok := overrides[c.ID]; ok {
			merged = append(merged, o)
		} else {
			merged = append(merged, c)
		}
		seen[c.ID] = true
	}
	for _, c := range user {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		merged = append(merged, c)
	}
	return merged
}

// FilterByUniverse keeps concepts whose universe is in the requested set.
// An empty request means no filtering.
func FilterByUniverse(concepts []domain.Concept, universes []string) []domain.Concept {
	if len(universes) == 0 {
		return concepts
	}
	wanted := make(map[string]bool, len(universes))
	for _, u := range universes {
		wanted[u] = true
	}
	out := make([]domain.Concept, 0, len(concepts))
	for _, c := range concepts {
		if wanted[c.UniverseID] {
			out = append(out, c)
		}
	}
	return out
}

// SearchConcepts filters by case-insensitive substring over id and label
// and returns the matches sorted by label, then id.
func SearchConcepts(concepts []domain.Concept, query string) []domain.Concept {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Concept, 0, len(concepts))
	for _, c := range concepts {
		if q == "" || strings.Contains(strings.ToLower(c.ID), q) || strings.Contains(strings.ToLower(c.Label), q) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].ID < out[j].ID
	})
	return out
}
