package application

import (
	"fmt"
	"math"

	"github.com/lebbe/premises/internal/domain"
)

const (
	// focalSpacing separates focal seeds placed side by side before layout.
	focalSpacing = 250.0
	// hintRadius is the circle radius for initial child placement around
	// the discovering parent.
	hintRadius = 200.0
)

type queueItem struct {
	concept *domain.Concept
	depth   int
	x, y    float64
}

// BuildSubgraph expands the definitional ancestry of the focal concepts
// breadth-first, bounded by depth. Only a concept's own genus and
// differentia are followed; reverse references never pull a node in.
// Dangling references become virtual nodes, synthesized at most once per
// missing id, with an edge from every concept that references the id.
func BuildSubgraph(focal []string, concepts []domain.Concept, depth int) domain.Graph {
	if depth < 1 {
		depth = 1
	}
	index := domain.IndexByID(concepts)

	var nodes []domain.GraphNode
	var edges []domain.GraphEdge
	visited := make(map[string]bool)
	virtual := make(map[string]bool)
	edgeSeen := make(map[string]bool)

	addEdge := func(source, target string, kind domain.RelationKind) {
		id := edgeID(source, target, kind)
		if edgeSeen[id] {
			return
		}
		edgeSeen[id] = true
		edges = append(edges, domain.GraphEdge{ID: id, Source: source, Target: target, Relation: kind})
	}

	var queue []queueItem
	for i, id := range focal {
		if c, ok := index[id]; ok {
			queue = append(queue, queueItem{concept: c, depth: 0, x: float64(i) * focalSpacing})
		}
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		c := item.concept
		if visited[c.ID] || item.depth > depth {
			continue
		}
		visited[c.ID] = true
		nodes = append(nodes, domain.GraphNode{
			ID:      c.ID,
			Label:   c.Label,
			X:       item.x,
			Y:       item.y,
			Central: item.depth == 0,
		})
		if item.depth >= depth {
			continue
		}

		refs := definitionRefs(c)
		for i, tr := range refs {
			x, y := circleHint(item.x, item.y, i, len(refs))
			res := domain.Resolve(index, tr.ref)
			if res.Resolved() {
				addEdge(c.ID, res.ID, tr.kind)
				queue = append(queue, queueItem{concept: res.Concept, depth: item.depth + 1, x: x, y: y})
				continue
			}
			if !virtual[res.ID] {
				virtual[res.ID] = true
				kind := domain.VirtualGenus
				if tr.kind == domain.RelationDifferentia {
					kind = domain.VirtualDifferentia
				}
				nodes = append(nodes, domain.GraphNode{
					ID:          res.ID,
					Label:       res.Label,
					X:           x,
					Y:           y,
					Virtual:     true,
					VirtualKind: kind,
				})
			}
			addEdge(c.ID, res.ID, tr.kind)
		}
	}

	return domain.Graph{Nodes: nodes, Edges: edges}
}

// FilterEdges drops edges whose relation kind is toggled off.
func FilterEdges(edges []domain.GraphEdge, showGenus, showDifferentia bool) []domain.GraphEdge {
	if showGenus && showDifferentia {
		return edges
	}
	out := make([]domain.GraphEdge, 0, len(edges))
	for _, e := range edges {
		switch e.Relation {
		case domain.RelationGenus:
			if showGenus {
				out = append(out, e)
			}
		case domain.RelationDifferentia:
			if showDifferentia {
				out = append(out, e)
			}
		}
	}
	return out
}

func edgeID(source, target string, kind domain.RelationKind) string {
	return fmt.Sprintf("%s-%s-%s", source, target, kind)
}

func circleHint(px, py float64, index, siblings int) (float64, float64) {
	if siblings <= 0 {
		siblings = 1
	}
	angle := 2 * math.Pi * float64(index) / float64(siblings)
	return px + hintRadius*math.Cos(angle), py + hintRadius*math.Sin(angle)
}
