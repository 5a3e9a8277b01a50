package application

import (
	"fmt"
	"strings"

	"github.com/lebbe/premises/internal/domain"
)

// FindFloatingAbstractions walks the definitional ancestry of the focal
// concepts and reports every reference that is undefined in the store and
// every stored concept of type "concept" that carries neither genus nor
// differentia. A single visited set spans all focal roots, so each
// concept is analyzed at most once per call.
func FindFloatingAbstractions(focal []string, concepts []domain.Concept) []domain.FloatingAbstraction {
	index := domain.IndexByID(concepts)
	visited := make(map[string]bool)
	records := make(map[string]*domain.FloatingAbstraction)
	var order []string

	var walk func(c *domain.Concept)
	walk = func(c *domain.Concept) {
		if visited[c.ID] {
			return
		}
		visited[c.ID] = true

		if c.Type == domain.TypeConcept && !c.HasDefinitionBody() {
			if _, ok := records[c.ID]; !ok {
				records[c.ID] = &domain.FloatingAbstraction{
					ID:           c.ID,
					Label:        c.Label,
					ReferencedBy: []string{},
					Reason:       domain.ReasonIncomplete,
				}
				order = append(order, c.ID)
			}
		}

		for _, tr := range definitionRefs(c) {
			res := domain.Resolve(index, tr.ref)
			if res.Resolved() {
				walk(res.Concept)
				continue
			}
			rec, ok := records[res.ID]
			if !ok {
				rec = &domain.FloatingAbstraction{
					ID:           res.ID,
					Label:        res.Label,
					ReferencedBy: []string{},
					Reason:       domain.ReasonUndefined,
				}
				records[res.ID] = rec
				order = append(order, res.ID)
			}
			if !containsString(rec.ReferencedBy, c.ID) {
				rec.ReferencedBy = append(rec.ReferencedBy, c.ID)
			}
		}
	}

	for _, id := range focal {
		if c, ok := index[id]; ok {
			walk(c)
		}
	}

	out := make([]domain.FloatingAbstraction, 0, len(order))
	for _, id := range order {
		out = append(out, *records[id])
	}
	return out
}

// DefinitionPrompt renders the floating abstractions as a fill-in request
// a user can hand to an external assistant to author the missing
// definitions. Returns "" when there is nothing to fill in.
func DefinitionPrompt(records []domain.FloatingAbstraction) string {
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("The following concepts need genus-differentia definitions.\n")
	b.WriteString("For each one, provide a JSON object of the shape\n")
	b.WriteString(`{"id": "...", "label": "...", "definition": {"text": "...", "genus": {"id": "..."}, "differentia": [{"id": "..."}]}}` + "\n\n")
	for _, r := range records {
		label := r.Label
		if label == "" {
			label = r.ID
		}
		switch r.Reason {
		case domain.ReasonUndefined:
			fmt.Fprintf(&b, "- %s (id %q): not defined anywhere", label, r.ID)
			if len(r.ReferencedBy) > 0 {
				fmt.Fprintf(&b, "; referenced by %s", strings.Join(r.ReferencedBy, ", "))
			}
			b.WriteString("\n")
		case domain.ReasonIncomplete:
			fmt.Fprintf(&b, "- %s (id %q): defined but has neither genus nor differentia\n", label, r.ID)
		}
	}
	return b.String()
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
