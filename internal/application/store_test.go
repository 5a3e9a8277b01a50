package application

import (
	"testing"

	"github.com/lebbe/premises/internal/domain"
)

func TestMergeUserOverridesBase(t *testing.T) {
	base := []domain.Concept{
		concept("dog", "Dog", "canine"),
		concept("cat", "Cat", "feline"),
	}
	override := concept("dog", "Dog (edited)", "canine")
	user := []domain.Concept{
		override,
		concept("mouse", "Mouse", "rodent"),
	}

	merged := Merge(user, base)
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged concepts, got %d", len(merged))
	}
	if merged[0].Label != "Dog (edited)" {
		t.Fatalf("user concept must replace the base concept in place, got %+v", merged[0])
	}
	if merged[1].ID != "cat" {
		t.Fatalf("base order must be preserved, got %+v", merged[1])
	}
	if merged[2].ID != "mouse" {
		t.Fatalf("new user concepts append after the base, got %+v", merged[2])
	}
}

func TestFilterByUniverse(t *testing.T) {
	a := concept("a", "A", "")
	a.UniverseID = "Ayn Rand"
	b := concept("b", "B", "")
	b.UniverseID = "custom-user"
	concepts := []domain.Concept{a, b}

	all := FilterByUniverse(concepts, nil)
	if len(all) != 2 {
		t.Fatalf("empty request means no filtering, got %d", len(all))
	}

	only := FilterByUniverse(concepts, []string{"custom-user"})
	if len(only) != 1 || only[0].ID != "b" {
		t.Fatalf("expected only custom-user concepts, got %+v", only)
	}
}

func TestSearchConcepts(t *testing.T) {
	concepts := []domain.Concept{
		concept("dog", "Dog", ""),
		concept("hot-dog", "Hot Dog", ""),
		concept("cat", "Cat", ""),
	}

	got := SearchConcepts(concepts, "DOG")
	if len(got) != 2 {
		t.Fatalf("expected case-insensitive substring match, got %+v", got)
	}
	if got[0].ID != "dog" || got[1].ID != "hot-dog" {
		t.Fatalf("results must be sorted by label then id, got %+v", got)
	}

	everything := SearchConcepts(concepts, "  ")
	if len(everything) != 3 {
		t.Fatalf("blank query matches everything, got %d", len(everything))
	}
}
