package application

import (
	"sort"
	"strings"

	"github.com/lebbe/premises/internal/domain"
)

// cycleWalk carries the traversal state for one DetectCycles call.
// visited persists across focal roots so a fully explored concept is
// never reprocessed; stack and path reset per root.
type cycleWalk struct {
	index   map[string]*domain.Concept
	visited map[string]bool
	stack   map[string]bool
	path    []string
	seen    map[string]bool
	cycles  []domain.Cycle
}

// DetectCycles runs DFS cycle detection over genus and differentia
// references starting from each focal concept. Two cycles covering the
// same unordered id set count as one; the first found wins.
func DetectCycles(focal []string, concepts []domain.Concept) []domain.Cycle {
	w := &cycleWalk{
		index:   domain.IndexByID(concepts),
		visited: make(map[string]bool),
		seen:    make(map[string]bool),
	}
	for _, id := range focal {
		c, ok := w.index[id]
		if !ok || w.visited[id] {
			continue
		}
		w.stack = make(map[string]bool)
		w.path = w.path[:0]
		w.walk(c)
	}
	return w.cycles
}

func (w *cycleWalk) walk(c *domain.Concept) {
	if w.stack[c.ID] {
		w.record(c.ID)
		return
	}
	if w.visited[c.ID] {
		return
	}
	w.visited[c.ID] = true
	w.stack[c.ID] = true
	w.path = append(w.path, c.ID)

	for _, ref := range definitionRefs(c) {
		if res := domain.Resolve(w.index, ref.ref); res.Resolved() {
			w.walk(res.Concept)
		}
	}

	w.stack[c.ID] = false
	w.path = w.path[:len(w.path)-1]
}

func (w *cycleWalk) record(id string) {
	start := 0
	for i, p := range w.path {
		if p == id {
			start = i
			break
		}
	}
	loop := append(append([]string{}, w.path[start:]...), id)

	key := cycleKey(loop)
	if w.seen[key] {
		return
	}
	w.seen[key] = true

	labels := make([]string, len(loop))
	for i, cid := range loop {
		if c, ok := w.index[cid]; ok {
			labels[i] = c.Label
		} else {
			labels[i] = cid
		}
	}
	w.cycles = append(w.cycles, domain.Cycle{Path: loop, Labels: labels})
}

// cycleKey collapses a closed path to its unordered id set, dropping the
// repeated terminal id.
func cycleKey(loop []string) string {
	ids := append([]string{}, loop[:len(loop)-1]...)
	sort.Strings(ids)
	return strings.Join(ids, "\x00")
}

type taggedRef struct {
	ref  domain.ConceptRef
	kind domain.RelationKind
}

// definitionRefs lists a concept's outgoing references, genus first, then
// differentia in stored order.
func definitionRefs(c *domain.Concept) []taggedRef {
	refs := make([]taggedRef, 0, 1+len(c.Definition.Differentia))
	if c.Definition.Genus != nil {
		refs = append(refs, taggedRef{ref: *c.Definition.Genus, kind: domain.RelationGenus})
	}
	for _, d := range c.Definition.Differentia {
		refs = append(refs, taggedRef{ref: d, kind: domain.RelationDifferentia})
	}
	return refs
}
