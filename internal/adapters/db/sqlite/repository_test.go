package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lebbe/premises/internal/domain"
)

func openTestRepo(t *testing.T) *ConceptRepository {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "premises_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return NewConceptRepository(db, nil)
}

func TestUserConceptsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	concepts := []domain.Concept{
		{
			ID:         "dog",
			UniverseID: "custom-user",
			Type:       domain.TypeConcept,
			Label:      "Dog",
			Definition: domain.Definition{
				Text:  "A domesticated canine",
				Genus: &domain.ConceptRef{ID: "canine", Label: "Canine"},
				Differentia: []domain.ConceptRef{
					{ID: "domesticated", Label: "Domesticated"},
				},
				Source: domain.DefaultSource,
			},
			PerceptualRoots: []string{"barking", "tail wagging"},
		},
		{
			ID:         "existence",
			UniverseID: "custom-user",
			Type:       domain.TypeAxiomatic,
			Label:      "Existence",
			Definition: domain.Definition{
				Text:   "That which exists",
				Source: domain.DefaultSource,
			},
		},
	}

	if err := repo.SaveUserConcepts(ctx, concepts); err != nil {
		t.Fatalf("save user concepts: %v", err)
	}

	loaded, err := repo.UserConcepts(ctx)
	if err != nil {
		t.Fatalf("load user concepts: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 concepts, got %d", len(loaded))
	}

	dog := loaded[0]
	if dog.ID != "dog" {
		t.Fatalf("expected dog first, got %q", dog.ID)
	}
	if dog.Definition.Genus == nil || dog.Definition.Genus.ID != "canine" {
		t.Fatalf("genus did not survive round trip: %+v", dog.Definition.Genus)
	}
	if len(dog.Definition.Differentia) != 1 || dog.Definition.Differentia[0].ID != "domesticated" {
		t.Fatalf("differentia did not survive round trip: %+v", dog.Definition.Differentia)
	}
	if len(dog.PerceptualRoots) != 2 || dog.PerceptualRoots[1] != "tail wagging" {
		t.Fatalf("perceptual roots did not survive round trip: %+v", dog.PerceptualRoots)
	}

	axiom := loaded[1]
	if axiom.Type != domain.TypeAxiomatic {
		t.Fatalf("expected axiomatic concept, got %q", axiom.Type)
	}
	if axiom.Definition.Genus != nil {
		t.Fatalf("axiomatic concept should keep a nil genus")
	}
}

func TestSaveUserConceptsReplacesLayer(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	first := []domain.Concept{
		{ID: "a", UniverseID: "custom-user", Type: domain.TypeConcept, Label: "A"},
		{ID: "b", UniverseID: "custom-user", Type: domain.TypeConcept, Label: "B"},
	}
	if err := repo.SaveUserConcepts(ctx, first); err != nil {
		t.Fatalf("save first layer: %v", err)
	}

	second := []domain.Concept{
		{ID: "c", UniverseID: "custom-user", Type: domain.TypeConcept, Label: "C"},
	}
	if err := repo.SaveUserConcepts(ctx, second); err != nil {
		t.Fatalf("save second layer: %v", err)
	}

	loaded, err := repo.UserConcepts(ctx)
	if err != nil {
		t.Fatalf("load user concepts: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "c" {
		t.Fatalf("expected the layer to be replaced, got %+v", loaded)
	}
}

func TestClearUserConcepts(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	concepts := []domain.Concept{
		{ID: "a", UniverseID: "custom-user", Type: domain.TypeConcept, Label: "A"},
	}
	if err := repo.SaveUserConcepts(ctx, concepts); err != nil {
		t.Fatalf("save user concepts: %v", err)
	}

	if err := repo.ClearUserConcepts(ctx); err != nil {
		t.Fatalf("clear user concepts: %v", err)
	}

	loaded, err := repo.UserConcepts(ctx)
	if err != nil {
		t.Fatalf("load user concepts: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty store after clear, got %d concepts", len(loaded))
	}
}

func TestUserConceptsDiscardsMalformedRows(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	good := []domain.Concept{
		{ID: "a", UniverseID: "custom-user", Type: domain.TypeConcept, Label: "A"},
	}
	if err := repo.SaveUserConcepts(ctx, good); err != nil {
		t.Fatalf("save user concepts: %v", err)
	}

	broken := UserConceptModel{
		ID:         "broken",
		UniverseID: "custom-user",
		Type:       domain.TypeConcept,
		Label:      "Broken",
		Definition: "{not json",
	}
	if err := repo.db.Create(&broken).Error; err != nil {
		t.Fatalf("insert malformed row: %v", err)
	}

	loaded, err := repo.UserConcepts(ctx)
	if err != nil {
		t.Fatalf("load user concepts: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "a" {
		t.Fatalf("expected the malformed row to be discarded, got %+v", loaded)
	}
}

func TestUniverseSelectionKeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	selection, err := repo.UniverseSelection(ctx)
	if err != nil {
		t.Fatalf("read empty selection: %v", err)
	}
	if len(selection) != 0 {
		t.Fatalf("expected no selection on a fresh database, got %+v", selection)
	}

	want := []string{"Ayn Rand", "custom-user", "LLM layer genus 1"}
	if err := repo.SaveUniverseSelection(ctx, want); err != nil {
		t.Fatalf("save selection: %v", err)
	}

	selection, err = repo.UniverseSelection(ctx)
	if err != nil {
		t.Fatalf("read selection: %v", err)
	}
	if len(selection) != len(want) {
		t.Fatalf("expected %d universes, got %d", len(want), len(selection))
	}
	for i := range want {
		if selection[i] != want[i] {
			t.Fatalf("selection order lost at %d: got %q want %q", i, selection[i], want[i])
		}
	}

	if err := repo.SaveUniverseSelection(ctx, []string{"custom-user"}); err != nil {
		t.Fatalf("replace selection: %v", err)
	}
	selection, err = repo.UniverseSelection(ctx)
	if err != nil {
		t.Fatalf("read replaced selection: %v", err)
	}
	if len(selection) != 1 || selection[0] != "custom-user" {
		t.Fatalf("expected the selection to be replaced, got %+v", selection)
	}
}
