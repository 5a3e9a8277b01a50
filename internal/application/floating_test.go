package application

import (
	"strings"
	"testing"

	"github.com/lebbe/premises/internal/domain"
)

func TestFindFloatingAbstractionsUndefined(t *testing.T) {
	concepts := []domain.Concept{
		concept("dog", "Dog", "canine", "domesticated"),
		concept("cat", "Cat", "canine"),
	}

	records := FindFloatingAbstractions([]string{"dog", "cat"}, concepts)
	if len(records) != 2 {
		t.Fatalf("expected 2 floating abstractions, got %d: %+v", len(records), records)
	}

	byID := make(map[string]domain.FloatingAbstraction)
	for _, r := range records {
		byID[r.ID] = r
	}

	canine, ok := byID["canine"]
	if !ok {
		t.Fatalf("expected canine to be reported")
	}
	if canine.Reason != domain.ReasonUndefined {
		t.Fatalf("expected canine to be undefined, got %q", canine.Reason)
	}
	if len(canine.ReferencedBy) != 2 {
		t.Fatalf("expected canine referenced by both concepts, got %v", canine.ReferencedBy)
	}

	dom, ok := byID["domesticated"]
	if !ok {
		t.Fatalf("expected domesticated to be reported")
	}
	if len(dom.ReferencedBy) != 1 || dom.ReferencedBy[0] != "dog" {
		t.Fatalf("expected domesticated referenced by dog only, got %v", dom.ReferencedBy)
	}
}

func TestFindFloatingAbstractionsIncomplete(t *testing.T) {
	empty := concept("stuff", "Stuff", "")
	concepts := []domain.Concept{
		concept("dog", "Dog", "stuff"),
		empty,
	}

	records := FindFloatingAbstractions([]string{"dog"}, concepts)
	if len(records) != 1 {
		t.Fatalf("expected 1 floating abstraction, got %d: %+v", len(records), records)
	}
	r := records[0]
	if r.ID != "stuff" || r.Reason != domain.ReasonIncomplete {
		t.Fatalf("expected stuff to be incomplete, got %+v", r)
	}
	if r.ReferencedBy == nil || len(r.ReferencedBy) != 0 {
		t.Fatalf("incomplete records carry an empty non-nil ReferencedBy, got %v", r.ReferencedBy)
	}
}

func TestFindFloatingAbstractionsSkipsAxiomatic(t *testing.T) {
	existence := concept("existence", "Existence", "")
	existence.Type = domain.TypeAxiomatic
	concepts := []domain.Concept{
		concept("dog", "Dog", "existence"),
		existence,
	}

	records := FindFloatingAbstractions([]string{"dog"}, concepts)
	if len(records) != 0 {
		t.Fatalf("axiomatic concepts are never floating, got %+v", records)
	}
}

func TestFindFloatingAbstractionsDeduplicatesReferencers(t *testing.T) {
	concepts := []domain.Concept{
		concept("dog", "Dog", "missing", "missing"),
	}

	records := FindFloatingAbstractions([]string{"dog"}, concepts)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if len(records[0].ReferencedBy) != 1 {
		t.Fatalf("expected a single deduplicated referencer, got %v", records[0].ReferencedBy)
	}
}

func TestDefinitionPrompt(t *testing.T) {
	if got := DefinitionPrompt(nil); got != "" {
		t.Fatalf("expected empty prompt for no records, got %q", got)
	}

	records := []domain.FloatingAbstraction{
		{ID: "canine", Label: "Canine", ReferencedBy: []string{"dog"}, Reason: domain.ReasonUndefined},
		{ID: "stuff", Label: "Stuff", ReferencedBy: []string{}, Reason: domain.ReasonIncomplete},
	}
	prompt := DefinitionPrompt(records)
	if !strings.Contains(prompt, "canine") || !strings.Contains(prompt, "referenced by dog") {
		t.Fatalf("prompt missing undefined entry: %q", prompt)
	}
	if !strings.Contains(prompt, "neither genus nor differentia") {
		t.Fatalf("prompt missing incomplete entry: %q", prompt)
	}
}
