package application

import (
	"context"
	"fmt"
	"testing"

	"github.com/lebbe/premises/internal/domain"
)

type memoryRepo struct {
	concepts  []domain.Concept
	selection []string
}

func (m *memoryRepo) UserConcepts(ctx context.Context) ([]domain.Concept, error) {
	return append([]domain.Concept{}, m.concepts...), nil
}

func (m *memoryRepo) SaveUserConcepts(ctx context.Context, concepts []domain.Concept) error {
	m.concepts = append([]domain.Concept{}, concepts...)
	return nil
}

func (m *memoryRepo) ClearUserConcepts(ctx context.Context) error {
	m.concepts = nil
	return nil
}

func (m *memoryRepo) UniverseSelection(ctx context.Context) ([]string, error) {
	return append([]string{}, m.selection...), nil
}

func (m *memoryRepo) SaveUniverseSelection(ctx context.Context, universes []string) error {
	m.selection = append([]string{}, universes...)
	return nil
}

type memoryPartitions struct {
	universes map[string][]domain.Concept
}

func (m *memoryPartitions) LoadUniverse(ctx context.Context, universeID string) ([]domain.Concept, error) {
	concepts, ok := m.universes[universeID]
	if !ok {
		return nil, fmt.Errorf("unknown universe %q", universeID)
	}
	return concepts, nil
}

func newTestService(repo *memoryRepo, partitions *memoryPartitions) *ConceptService {
	predefined := make([]string, 0, len(partitions.universes))
	for id := range partitions.universes {
		predefined = append(predefined, id)
	}
	return NewConceptService(repo, partitions, predefined, nil)
}

func predefinedConcept(id, label, universe string) domain.Concept {
	c := concept(id, label, "")
	c.UniverseID = universe
	return c
}

func TestLoadConceptsMergesUserOverBase(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{
		concepts: []domain.Concept{
			predefinedConcept("dog", "Dog (mine)", "Ayn Rand"),
			predefinedConcept("mouse", "Mouse", "custom-user"),
		},
	}
	partitions := &memoryPartitions{universes: map[string][]domain.Concept{
		"Ayn Rand": {
			predefinedConcept("dog", "Dog", "Ayn Rand"),
			predefinedConcept("cat", "Cat", "Ayn Rand"),
		},
	}}
	svc := newTestService(repo, partitions)

	concepts, err := svc.LoadConcepts(ctx, nil)
	if err != nil {
		t.Fatalf("load concepts: %v", err)
	}
	byID := make(map[string]domain.Concept)
	for _, c := range concepts {
		byID[c.ID] = c
	}
	if byID["dog"].Label != "Dog (mine)" {
		t.Fatalf("user layer must override the predefined concept, got %+v", byID["dog"])
	}
	if _, ok := byID["cat"]; !ok {
		t.Fatalf("predefined concepts must survive the merge")
	}
	if _, ok := byID["mouse"]; !ok {
		t.Fatalf("custom-universe user concepts must survive the merge")
	}
}

func TestLoadConceptsHonorsPersistedSelection(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{selection: []string{"Beta"}}
	partitions := &memoryPartitions{universes: map[string][]domain.Concept{
		"Alpha": {predefinedConcept("a", "A", "Alpha")},
		"Beta":  {predefinedConcept("b", "B", "Beta")},
	}}
	svc := newTestService(repo, partitions)

	concepts, err := svc.LoadConcepts(ctx, nil)
	if err != nil {
		t.Fatalf("load concepts: %v", err)
	}
	if len(concepts) != 1 || concepts[0].ID != "b" {
		t.Fatalf("only the selected universe loads, got %+v", concepts)
	}

	concepts, err = svc.LoadConcepts(ctx, []string{"Alpha"})
	if err != nil {
		t.Fatalf("load concepts with explicit request: %v", err)
	}
	if len(concepts) != 1 || concepts[0].ID != "a" {
		t.Fatalf("an explicit request overrides the persisted selection, got %+v", concepts)
	}
}

func TestSaveConceptValidatesAndDefaults(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{}
	svc := newTestService(repo, &memoryPartitions{})

	if _, err := svc.SaveConcept(ctx, "", domain.Concept{ID: "x"}); err == nil {
		t.Fatalf("a concept without a label must be rejected")
	}
	if _, err := svc.SaveConcept(ctx, "", domain.Concept{ID: "x", Label: "X"}); err == nil {
		t.Fatalf("a concept without definition text must be rejected")
	}

	saved, err := svc.SaveConcept(ctx, "", domain.Concept{
		ID:    "x",
		Label: "X",
		Definition: domain.Definition{
			Text:        "some text",
			Genus:       &domain.ConceptRef{ID: "  "},
			Differentia: []domain.ConceptRef{{ID: ""}, {ID: "y"}},
		},
	})
	if err != nil {
		t.Fatalf("save concept: %v", err)
	}
	if saved.Type != domain.TypeConcept {
		t.Fatalf("type defaults to concept, got %q", saved.Type)
	}
	if saved.UniverseID != "custom-user" {
		t.Fatalf("universe defaults to custom-user, got %q", saved.UniverseID)
	}
	if saved.Definition.Source != domain.DefaultSource {
		t.Fatalf("source defaults to %q, got %q", domain.DefaultSource, saved.Definition.Source)
	}
	if saved.Definition.Genus != nil {
		t.Fatalf("a blank genus ref collapses to nil, got %+v", saved.Definition.Genus)
	}
	if len(saved.Definition.Differentia) != 1 || saved.Definition.Differentia[0].ID != "y" {
		t.Fatalf("empty differentia refs are dropped, got %+v", saved.Definition.Differentia)
	}
}

func TestSaveConceptRenameRewritesReferences(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{
		concepts: []domain.Concept{
			concept("old-dog", "Dog", "canine"),
			concept("puppy", "Puppy", "old-dog", "old-dog"),
		},
	}
	svc := newTestService(repo, &memoryPartitions{})

	renamed := concept("dog", "Dog", "canine")
	if _, err := svc.SaveConcept(ctx, "old-dog", renamed); err != nil {
		t.Fatalf("save renamed concept: %v", err)
	}

	byID := make(map[string]domain.Concept)
	for _, c := range repo.concepts {
		byID[c.ID] = c
	}
	if _, ok := byID["old-dog"]; ok {
		t.Fatalf("the old id must be gone after a rename")
	}
	puppy := byID["puppy"]
	if puppy.Definition.Genus == nil || puppy.Definition.Genus.ID != "dog" {
		t.Fatalf("genus references must follow the rename, got %+v", puppy.Definition.Genus)
	}
	if puppy.Definition.Differentia[0].ID != "dog" {
		t.Fatalf("differentia references must follow the rename, got %+v", puppy.Definition.Differentia)
	}
}

func TestSaveConceptRenameOntoExistingID(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{
		concepts: []domain.Concept{
			concept("dog", "Dog (old)", "canine"),
			concept("old-dog", "Dog", "canine"),
		},
	}
	svc := newTestService(repo, &memoryPartitions{})

	renamed := concept("dog", "Dog (renamed)", "canine")
	if _, err := svc.SaveConcept(ctx, "old-dog", renamed); err != nil {
		t.Fatalf("save renamed concept: %v", err)
	}

	if len(repo.concepts) != 1 {
		t.Fatalf("renaming onto an existing id must leave one record, got %+v", repo.concepts)
	}
	got := repo.concepts[0]
	if got.ID != "dog" || got.Label != "Dog (renamed)" {
		t.Fatalf("the renamed concept must win, got %+v", got)
	}
}

func TestGetConcept(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{concepts: []domain.Concept{concept("dog", "Dog", "")}}
	svc := newTestService(repo, &memoryPartitions{})

	c, err := svc.GetConcept(ctx, "dog")
	if err != nil {
		t.Fatalf("get concept: %v", err)
	}
	if c.Label != "Dog" {
		t.Fatalf("unexpected concept %+v", c)
	}

	if _, err := svc.GetConcept(ctx, "missing"); err != domain.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuildGraphRequiresFocal(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&memoryRepo{}, &memoryPartitions{})

	if _, err := svc.BuildGraph(ctx, domain.ViewState{}, false, true); err == nil {
		t.Fatalf("an empty focal set must be rejected")
	}

	state := domain.ViewState{Focal: []string{"missing"}, Depth: 2, ShowGenus: true, ShowDifferentia: true}
	if _, err := svc.BuildGraph(ctx, state, false, true); err == nil {
		t.Fatalf("a focal concept absent from the snapshot must be an error")
	}
}

func TestBuildGraphEndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{concepts: []domain.Concept{
		concept("dog", "Dog", "canine", "domesticated"),
		concept("canine", "Canine", "animal"),
		concept("animal", "Animal", ""),
	}}
	svc := newTestService(repo, &memoryPartitions{})

	state := domain.ViewState{
		Focal:           []string{"dog"},
		Depth:           2,
		Direction:       domain.DirectionLR,
		NodeSpacing:     DefaultNodeSpacing,
		RankSpacing:     DefaultRankSpacing,
		ShowGenus:       true,
		ShowDifferentia: true,
	}
	graph, err := svc.BuildGraph(ctx, state, false, true)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	if len(graph.Nodes) != 4 {
		t.Fatalf("expected dog, canine, animal and the virtual domesticated node, got %d", len(graph.Nodes))
	}
	for _, e := range graph.Edges {
		if e.SourceHandle == "" || e.TargetHandle == "" {
			t.Fatalf("edges leave BuildGraph with handles assigned, got %+v", e)
		}
	}

	state.ShowDifferentia = false
	graph, err = svc.BuildGraph(ctx, state, false, true)
	if err != nil {
		t.Fatalf("build graph without differentia: %v", err)
	}
	for _, e := range graph.Edges {
		if e.Relation == domain.RelationDifferentia {
			t.Fatalf("differentia edges must be filtered out, got %+v", e)
		}
	}
}

func TestRunImportPersistsMergedLayer(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRepo{concepts: []domain.Concept{concept("dog", "Dog", "")}}
	svc := newTestService(repo, &memoryPartitions{})

	payload := []byte(`[
		{"id": "dog", "universeId": "custom-user", "label": "Dog v2", "definition": {"text": "t"}},
		{"id": "cat", "universeId": "custom-user", "label": "Cat", "definition": {"text": "t"}}
	]`)

	analysis := svc.RunImport(ctx, payload)
	if analysis.Error != "" {
		t.Fatalf("import failed: %s", analysis.Error)
	}
	if analysis.OverwrittenConcepts != 1 || analysis.NewConcepts != 1 {
		t.Fatalf("unexpected analysis %+v", analysis)
	}

	byID := make(map[string]domain.Concept)
	for _, c := range repo.concepts {
		byID[c.ID] = c
	}
	if byID["dog"].Label != "Dog v2" {
		t.Fatalf("imported concept must overwrite the stored one, got %+v", byID["dog"])
	}
	if _, ok := byID["cat"]; !ok {
		t.Fatalf("new imported concepts must be persisted")
	}
}
