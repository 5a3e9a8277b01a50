package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lebbe/premises/internal/domain"
)

// ConceptService ties the read-only partition layer, the persisted user
// layer and the graph analyses together. All graph work runs over a
// snapshot assembled per call; nothing here holds live mutable state.
type ConceptService struct {
	repo       domain.ConceptRepository
	partitions domain.PartitionSource
	predefined []string
	log        *zap.Logger
}

func NewConceptService(repo domain.ConceptRepository, partitions domain.PartitionSource, predefined []string, log *zap.Logger) *ConceptService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConceptService{repo: repo, partitions: partitions, predefined: predefined, log: log}
}

// LoadConcepts assembles the merged snapshot for the requested universes.
// Universe list resolution: explicit request, else the persisted
// selection, else every available universe. A partition that fails to
// load is logged and skipped, never fatal.
func (s *ConceptService) LoadConcepts(ctx context.Context, universes []string) ([]domain.Concept, error) {
	user := s.userConcepts(ctx)

	if len(universes) == 0 {
		universes = s.activeUniverses(ctx, user)
	}
	requested := make(map[string]bool, len(universes))
	for _, u := range universes {
		requested[u] = true
	}

	var base []domain.Concept
	for _, id := range s.predefined {
		if !requested[id] {
			continue
		}
		concepts, err := s.partitions.LoadUniverse(ctx, id)
		if err != nil {
			s.log.Warn("universe partition unavailable", zap.String("universe", id), zap.Error(err))
			continue
		}
		base = append(base, concepts...)
	}

	return FilterByUniverse(Merge(user, base), universes), nil
}

// Universes lists the catalog: every predefined universe plus every
// custom universe present in the user layer, with concept counts and the
// active-selection flag.
func (s *ConceptService) Universes(ctx context.Context) ([]domain.UniverseInfo, error) {
	user := s.userConcepts(ctx)
	active := s.activeUniverses(ctx, user)
	selected := make(map[string]bool, len(active))
	for _, id := range active {
		selected[id] = true
	}

	var infos []domain.UniverseInfo
	for _, id := range s.predefined {
		count := 0
		if concepts, err := s.partitions.LoadUniverse(ctx, id); err == nil {
			count = len(concepts)
		} else {
			s.log.Warn("universe partition unavailable", zap.String("universe", id), zap.Error(err))
		}
		infos = append(infos, domain.UniverseInfo{ID: id, Predefined: true, Selected: selected[id], ConceptCount: count})
	}

	counts := make(map[string]int)
	var customOrder []string
	for _, c := range user {
		if _, ok := counts[c.UniverseID]; !ok && !containsString(s.predefined, c.UniverseID) {
			customOrder = append(customOrder, c.UniverseID)
		}
		counts[c.UniverseID]++
	}
	sort.Strings(customOrder)
	for _, id := range customOrder {
		infos = append(infos, domain.UniverseInfo{ID: id, Selected: selected[id], ConceptCount: counts[id]})
	}
	return infos, nil
}

// SelectUniverses persists the active universe selection. An empty
// selection resets to "all universes".
func (s *ConceptService) SelectUniverses(ctx context.Context, universes []string) error {
	cleaned := make([]string, 0, len(universes))
	for _, u := range universes {
		if v := strings.TrimSpace(u); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return s.repo.SaveUniverseSelection(ctx, cleaned)
}

func (s *ConceptService) ListConcepts(ctx context.Context, query string, universes []string) ([]domain.Concept, error) {
	concepts, err := s.LoadConcepts(ctx, universes)
	if err != nil {
		return nil, err
	}
	return SearchConcepts(concepts, query), nil
}

func (s *ConceptService) GetConcept(ctx context.Context, id string) (domain.Concept, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Concept{}, errors.New("concept id is required")
	}
	concepts, err := s.LoadConcepts(ctx, s.allUniverses(ctx))
	if err != nil {
		return domain.Concept{}, err
	}
	for _, c := range concepts {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Concept{}, domain.ErrNotFound
}

// SaveConcept creates or updates a user-layer concept. When previousID
// names an existing concept and differs from the new id, every genus and
// differentia reference to the old id across the user layer is rewritten
// to the new id.
func (s *ConceptService) SaveConcept(ctx context.Context, previousID string, c domain.Concept) (domain.Concept, error) {
	c.ID = strings.TrimSpace(c.ID)
	c.Label = strings.TrimSpace(c.Label)
	if c.ID == "" || c.Label == "" {
		return domain.Concept{}, errors.New("concept id and label are required")
	}
	if strings.TrimSpace(c.Definition.Text) == "" {
		return domain.Concept{}, errors.New("definition text is required")
	}
	if c.Type == "" {
		c.Type = domain.TypeConcept
	}
	if c.Definition.Source == "" {
		c.Definition.Source = domain.DefaultSource
	}
	if c.UniverseID = strings.TrimSpace(c.UniverseID); c.UniverseID == "" {
		c.UniverseID = domain.CustomUniversePrefix + "user"
	}
	c.Definition.Differentia = dropEmptyRefs(c.Definition.Differentia)
	if c.Definition.Genus != nil && strings.TrimSpace(c.Definition.Genus.ID) == "" {
		c.Definition.Genus = nil
	}

	user, err := s.repo.UserConcepts(ctx)
	if err != nil {
		return domain.Concept{}, err
	}

	previousID = strings.TrimSpace(previousID)
	if previousID != "" && previousID != c.ID {
		rewriteReferences(user, previousID, c.ID)
	}

	// One pass over the layer: the new record takes the position of the
	// first record holding either id, every other record holding either
	// id is dropped. Keeps ids unique when a rename lands on an
	// existing concept.
	next := make([]domain.Concept, 0, len(user)+1)
	inserted := false
	for _, existing := range user {
		if existing.ID == c.ID || (previousID != "" && existing.ID == previousID) {
			if !inserted {
				next = append(next, c)
				inserted = true
			}
			continue
		}
		next = append(next, existing)
	}
	if !inserted {
		next = append(next, c)
	}

	if err := s.repo.SaveUserConcepts(ctx, next); err != nil {
		return domain.Concept{}, err
	}
	return c, nil
}

// ClearConcepts removes the entire user layer in one operation.
// Predefined universes are untouched.
func (s *ConceptService) ClearConcepts(ctx context.Context) error {
	return s.repo.ClearUserConcepts(ctx)
}

// BuildGraph derives the displayed subgraph for a view state: bounded
// BFS from the focal concepts, edge-kind filtering, layout and edge
// handle assignment. With hierarchy set, the conceptual-hierarchy layout
// is used with the first focal concept as the central one.
func (s *ConceptService) BuildGraph(ctx context.Context, state domain.ViewState, hierarchy, autoLayout bool) (domain.Graph, error) {
	if len(state.Focal) == 0 {
		return domain.Graph{}, errors.New("at least one focal concept is required")
	}
	if state.Depth < 1 {
		state.Depth = DefaultDepth
	}

	concepts, err := s.LoadConcepts(ctx, state.Universes)
	if err != nil {
		return domain.Graph{}, err
	}

	graph := BuildSubgraph(state.Focal, concepts, state.Depth)
	if len(graph.Nodes) == 0 {
		return domain.Graph{}, errors.New("no focal concept found in the selected universes")
	}
	graph.Edges = FilterEdges(graph.Edges, state.ShowGenus, state.ShowDifferentia)

	opts := domain.LayoutOptions{
		Direction:   state.Direction,
		NodeSpacing: state.NodeSpacing,
		RankSpacing: state.RankSpacing,
		EnableAuto:  autoLayout,
	}
	if hierarchy {
		graph.Nodes = ApplyHierarchyLayout(graph.Nodes, graph.Edges, state.Focal[0], opts)
	} else {
		graph.Nodes = ApplyLayout(graph.Nodes, graph.Edges, opts)
	}
	graph.Edges = AssignEdgeHandles(graph.Nodes, graph.Edges)
	return graph, nil
}

// LayoutGraph re-lays out an already materialized graph, for callers that
// hold node positions of their own (e.g. after manual rearranging).
func (s *ConceptService) LayoutGraph(graph domain.Graph, opts domain.LayoutOptions, hierarchy bool, centralID string) domain.Graph {
	if hierarchy {
		if centralID == "" && len(graph.Nodes) > 0 {
			centralID = graph.Nodes[0].ID
		}
		graph.Nodes = ApplyHierarchyLayout(graph.Nodes, graph.Edges, centralID, opts)
	} else {
		graph.Nodes = ApplyLayout(graph.Nodes, graph.Edges, opts)
	}
	graph.Edges = AssignEdgeHandles(graph.Nodes, graph.Edges)
	return graph
}

func (s *ConceptService) Cycles(ctx context.Context, focal, universes []string) ([]domain.Cycle, error) {
	if len(focal) == 0 {
		return nil, errors.New("at least one focal concept is required")
	}
	concepts, err := s.LoadConcepts(ctx, universes)
	if err != nil {
		return nil, err
	}
	return DetectCycles(focal, concepts), nil
}

// FloatingAbstractions reports undefined and incomplete concepts
// reachable from the focal set, along with a fill-in prompt for the
// missing definitions.
func (s *ConceptService) FloatingAbstractions(ctx context.Context, focal, universes []string) ([]domain.FloatingAbstraction, string, error) {
	if len(focal) == 0 {
		return nil, "", errors.New("at least one focal concept is required")
	}
	concepts, err := s.LoadConcepts(ctx, universes)
	if err != nil {
		return nil, "", err
	}
	records := FindFloatingAbstractions(focal, concepts)
	return records, DefinitionPrompt(records), nil
}

// AnalyzeImport dry-runs an import payload against the current snapshot.
func (s *ConceptService) AnalyzeImport(ctx context.Context, data []byte) domain.ImportAnalysis {
	existing, err := s.LoadConcepts(ctx, s.allUniverses(ctx))
	if err != nil {
		return domain.ImportAnalysis{Error: err.Error()}
	}
	return AnalyzeImport(data, existing)
}

// RunImport validates the payload, merges it into the user layer and
// persists the result. The returned analysis mirrors AnalyzeImport.
func (s *ConceptService) RunImport(ctx context.Context, data []byte) domain.ImportAnalysis {
	analysis := s.AnalyzeImport(ctx, data)
	if analysis.Error != "" {
		return analysis
	}

	imported, err := ParseConcepts(data)
	if err != nil {
		return domain.ImportAnalysis{Error: err.Error()}
	}
	user, err := s.repo.UserConcepts(ctx)
	if err != nil {
		return domain.ImportAnalysis{Error: err.Error()}
	}
	merged := ApplyImport(imported, user)
	if err := s.repo.SaveUserConcepts(ctx, merged); err != nil {
		return domain.ImportAnalysis{Error: err.Error()}
	}
	return analysis
}

func (s *ConceptService) Export(ctx context.Context, universes []string) (domain.ExportDocument, error) {
	if len(universes) == 0 {
		universes = s.allUniverses(ctx)
	}
	concepts, err := s.LoadConcepts(ctx, universes)
	if err != nil {
		return domain.ExportDocument{}, err
	}
	return BuildExport(concepts, universes, time.Now()), nil
}

// userConcepts reads the persisted user layer, degrading to empty on a
// storage failure.
func (s *ConceptService) userConcepts(ctx context.Context) []domain.Concept {
	user, err := s.repo.UserConcepts(ctx)
	if err != nil {
		s.log.Warn("user concepts unavailable", zap.Error(err))
		return nil
	}
	return user
}

// activeUniverses resolves the persisted selection, falling back to all
// available universes when nothing is selected.
func (s *ConceptService) activeUniverses(ctx context.Context, user []domain.Concept) []string {
	selection, err := s.repo.UniverseSelection(ctx)
	if err != nil {
		s.log.Warn("universe selection unavailable", zap.Error(err))
	}
	if len(selection) > 0 {
		return selection
	}
	return availableUniverses(s.predefined, user)
}

func (s *ConceptService) allUniverses(ctx context.Context) []string {
	return availableUniverses(s.predefined, s.userConcepts(ctx))
}

func availableUniverses(predefined []string, user []domain.Concept) []string {
	all := append([]string{}, predefined...)
	seen := make(map[string]bool, len(all))
	for _, id := range all {
		seen[id] = true
	}
	var custom []string
	for _, c := range user {
		if !seen[c.UniverseID] {
			seen[c.UniverseID] = true
			custom = append(custom, c.UniverseID)
		}
	}
	sort.Strings(custom)
	return append(all, custom...)
}

func rewriteReferences(concepts []domain.Concept, oldID, newID string) {
	for i := range concepts {
		def := &concepts[i].Definition
		if def.Genus != nil && def.Genus.ID == oldID {
			def.Genus.ID = newID
		}
		for j := range def.Differentia {
			if def.Differentia[j].ID == oldID {
				def.Differentia[j].ID = newID
			}
		}
	}
}

func dropEmptyRefs(refs []domain.ConceptRef) []domain.ConceptRef {
	out := refs[:0]
	for _, r := range refs {
		if strings.TrimSpace(r.ID) != "" {
			out = append(out, r)
		}
	}
	return out
}
