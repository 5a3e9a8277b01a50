package application

import (
	"sort"

	"github.com/lebbe/premises/internal/domain"
)

// assignRanks derives layer ranks from the edge set via longest-path:
// a node's rank is one past the deepest of its in-neighbors. Back edges
// found mid-visit are skipped so cyclic definitions still lay out.
func assignRanks(nodes []domain.GraphNode, edges []domain.GraphEdge) map[string]int {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}
	incoming := make(map[string][]string)
	for _, e := range edges {
		if present[e.Source] && present[e.Target] {
			incoming[e.Target] = append(incoming[e.Target], e.Source)
		}
	}

	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(nodes))
	ranks := make(map[string]int, len(nodes))

	var visit func(id string) int
	visit = func(id string) int {
		switch state[id] {
		case onStack:
			return 0
		case done:
			return ranks[id]
		}
		state[id] = onStack
		r := 0
		for _, src := range incoming[id] {
			if state[src] == onStack {
				continue
			}
			if pr := visit(src) + 1; pr > r {
				r = pr
			}
		}
		state[id] = done
		ranks[id] = r
		return r
	}

	for _, n := range nodes {
		visit(n.ID)
	}
	return ranks
}

// placeByRank turns ranks into coordinates: nodes are grouped per rank,
// ordered by a few barycenter sweeps to reduce crossings, then spread
// along the cross axis centered per rank. The rank axis runs along the
// requested direction. Output positions are top-left corners.
func placeByRank(nodes []domain.GraphNode, edges []domain.GraphEdge, opts domain.LayoutOptions, ranks map[string]int) []domain.GraphNode {
	out := make([]domain.GraphNode, len(nodes))
	copy(out, nodes)
	if len(out) == 0 {
		return out
	}

	layers := buildLayers(out, ranks)
	orderLayers(layers, edges)

	horizontal := opts.Direction == domain.DirectionLR || opts.Direction == domain.DirectionRL
	// Edge spacing widens the gap between rank siblings, leaving room
	// for edges routed between them.
	crossSpacing := float64(opts.NodeSpacing) + float64(opts.EdgeSpacing)
	rankSpacing := float64(opts.RankSpacing)

	var rankStep, crossStep float64
	if horizontal {
		rankStep = nodeWidth + rankSpacing
		crossStep = nodeHeight + crossSpacing
	} else {
		rankStep = nodeHeight + rankSpacing
		crossStep = nodeWidth + crossSpacing
	}

	centers := make(map[string][2]float64, len(out))
	for _, layer := range layers {
		along := float64(layer.rank) * rankStep
		if opts.Direction == domain.DirectionBT || opts.Direction == domain.DirectionRL {
			along = -along
		}
		offset := -float64(len(layer.ids)-1) / 2 * crossStep
		for i, id := range layer.ids {
			cross := offset + float64(i)*crossStep
			if horizontal {
				centers[id] = [2]float64{along, cross}
			} else {
				centers[id] = [2]float64{cross, along}
			}
		}
	}

	for i := range out {
		c := centers[out[i].ID]
		out[i].X = c[0] - nodeWidth/2
		out[i].Y = c[1] - nodeHeight/2
	}
	return out
}

type layer struct {
	rank int
	ids  []string
}

func buildLayers(nodes []domain.GraphNode, ranks map[string]int) []*layer {
	byRank := make(map[int]*layer)
	var ordered []*layer
	for _, n := range nodes {
		r := ranks[n.ID]
		l, ok := byRank[r]
		if !ok {
			l = &layer{rank: r}
			byRank[r] = l
			ordered = append(ordered, l)
		}
		l.ids = append(l.ids, n.ID)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].rank < ordered[j].rank })
	return ordered
}

// orderLayers runs alternating downward and upward barycenter sweeps.
// Node order within a rank follows the average position of its
// neighbors in the previously ordered rank; sorts are stable so layers
// without neighbor information keep their discovery order.
func orderLayers(layers []*layer, edges []domain.GraphEdge) {
	neighbors := make(map[string][]string)
	for _, e := range edges {
		neighbors[e.Source] = append(neighbors[e.Source], e.Target)
		neighbors[e.Target] = append(neighbors[e.Target], e.Source)
	}

	const sweeps = 4
	for s := 0; s < sweeps; s++ {
		if s%2 == 0 {
			for i := 1; i < len(layers); i++ {
				sortByBarycenter(layers[i], layers[i-1], neighbors)
			}
		} else {
			for i := len(layers) - 2; i >= 0; i-- {
				sortByBarycenter(layers[i], layers[i+1], neighbors)
			}
		}
	}
}

func sortByBarycenter(target, fixed *layer, neighbors map[string][]string) {
	index := make(map[string]int, len(fixed.ids))
	for i, id := range fixed.ids {
		index[id] = i
	}
	weight := make(map[string]float64, len(target.ids))
	for pos, id := range target.ids {
		sum, count := 0.0, 0
		for _, n := range neighbors[id] {
			if i, ok := index[n]; ok {
				sum += float64(i)
				count++
			}
		}
		if count == 0 {
			weight[id] = float64(pos)
		} else {
			weight[id] = sum / float64(count)
		}
	}
	sort.SliceStable(target.ids, func(i, j int) bool {
		return weight[target.ids[i]] < weight[target.ids[j]]
	})
}
