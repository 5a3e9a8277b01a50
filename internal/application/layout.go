package application

import (
	"math"

	"github.com/lebbe/premises/internal/domain"
)

// Every node is laid out as a fixed box; positions stored on nodes are
// the top-left corner of that box.
const (
	nodeWidth  = 150.0
	nodeHeight = 80.0
)

// ApplyLayout runs the generic layered layout over the graph and returns
// a new node slice with updated positions. When auto layout is disabled
// the input nodes are returned unchanged, preserving manual positions.
func ApplyLayout(nodes []domain.GraphNode, edges []domain.GraphEdge, opts domain.LayoutOptions) []domain.GraphNode {
	if !opts.EnableAuto {
		return nodes
	}
	ranks := assignRanks(nodes, edges)
	return placeByRank(nodes, edges, opts, ranks)
}

// ApplyHierarchyLayout arranges the graph as a conceptual hierarchy
// around a central concept: the genus chain climbs upward one rank per
// hop, each concept's differentia sit one rank below it, and everything
// else shares the central rank. Rank direction is forced top-to-bottom.
func ApplyHierarchyLayout(nodes []domain.GraphNode, edges []domain.GraphEdge, centralID string, opts domain.LayoutOptions) []domain.GraphNode {
	opts.Direction = domain.DirectionTB
	ranks := hierarchyRanks(nodes, edges, centralID)
	return placeByRank(nodes, edges, opts, ranks)
}

// hierarchyRanks computes explicit ranks for the conceptual hierarchy.
// Differentia placement is deliberately non-recursive: a concept's rank
// governs only its direct differentia, never further descendants.
func hierarchyRanks(nodes []domain.GraphNode, edges []domain.GraphEdge, centralID string) map[string]int {
	genusParent := make(map[string]string)
	for _, e := range edges {
		if e.Relation == domain.RelationGenus {
			genusParent[e.Source] = e.Target
		}
	}

	ranks := map[string]int{centralID: 0}
	id := centralID
	rank := 0
	for {
		parent, ok := genusParent[id]
		if !ok {
			break
		}
		if _, placed := ranks[parent]; placed {
			break
		}
		rank--
		ranks[parent] = rank
		id = parent
	}

	for _, e := range edges {
		if e.Relation != domain.RelationDifferentia {
			continue
		}
		if _, placed := ranks[e.Target]; placed {
			continue
		}
		// Only ranked owners push their differentia down; children of
		// unranked concepts stay on the central rank.
		srcRank, ok := ranks[e.Source]
		if !ok {
			continue
		}
		ranks[e.Target] = srcRank + 1
	}

	for _, n := range nodes {
		if _, placed := ranks[n.ID]; !placed {
			ranks[n.ID] = 0
		}
	}
	return normalizeRanks(ranks)
}

func normalizeRanks(ranks map[string]int) map[string]int {
	min := 0
	for _, r := range ranks {
		if r < min {
			min = r
		}
	}
	if min == 0 {
		return ranks
	}
	for id, r := range ranks {
		ranks[id] = r - min
	}
	return ranks
}

// AssignEdgeHandles picks the box side each edge leaves and enters based
// on the relative position of its endpoints: mostly-horizontal edges use
// left/right sides, mostly-vertical ones top/bottom. Runs after every
// layout pass and after a completed drag.
func AssignEdgeHandles(nodes []domain.GraphNode, edges []domain.GraphEdge) []domain.GraphEdge {
	pos := make(map[string][2]float64, len(nodes))
	for _, n := range nodes {
		pos[n.ID] = [2]float64{n.X, n.Y}
	}

	out := make([]domain.GraphEdge, len(edges))
	copy(out, edges)
	for i := range out {
		src, okS := pos[out[i].Source]
		dst, okT := pos[out[i].Target]
		if !okS || !okT {
			continue
		}
		dx := dst[0] - src[0]
		dy := dst[1] - src[1]
		if math.Abs(dx) > math.Abs(dy) {
			if dx > 0 {
				out[i].SourceHandle = domain.HandleRightSource
				out[i].TargetHandle = domain.HandleLeftTarget
			} else {
				out[i].SourceHandle = domain.HandleLeftSource
				out[i].TargetHandle = domain.HandleRightTarget
			}
		} else {
			if dy > 0 {
				out[i].SourceHandle = domain.HandleBottomSource
				out[i].TargetHandle = domain.HandleTopTarget
			} else {
				out[i].SourceHandle = domain.HandleTopSource
				out[i].TargetHandle = domain.HandleBottomTarget
			}
		}
	}
	return out
}
