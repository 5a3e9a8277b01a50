package partition

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lebbe/premises/internal/config"
)

func TestLoadUniverse(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	body := `[
		{"id": "dog", "universeId": "Animals", "label": "Dog",
		 "definition": {"text": "A domesticated canine", "genus": "canine"}}
	]`
	if err := os.WriteFile(filepath.Join(dir, "animals.json"), []byte(body), 0o600); err != nil {
		t.Fatalf("write partition: %v", err)
	}

	src := NewSource(dir, []config.Universe{{ID: "Animals", File: "animals.json"}}, nil)

	concepts, err := src.LoadUniverse(ctx, "Animals")
	if err != nil {
		t.Fatalf("load universe: %v", err)
	}
	if len(concepts) != 1 || concepts[0].ID != "dog" {
		t.Fatalf("unexpected concepts %+v", concepts)
	}
	if concepts[0].Definition.Genus == nil || concepts[0].Definition.Genus.ID != "canine" {
		t.Fatalf("legacy genus string must upgrade on load, got %+v", concepts[0].Definition.Genus)
	}

	if _, err := src.LoadUniverse(ctx, "Unknown"); err == nil {
		t.Fatalf("an unknown universe must be an error")
	}
	if _, err := src.LoadUniverse(ctx, "Animals"); err != nil {
		t.Fatalf("repeat load: %v", err)
	}
}

func TestLoadUniverseBadFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	src := NewSource(dir, []config.Universe{
		{ID: "Missing", File: "missing.json"},
		{ID: "Broken", File: "broken.json"},
	}, nil)

	if _, err := src.LoadUniverse(ctx, "Missing"); err == nil {
		t.Fatalf("a missing partition file must be an error")
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write broken partition: %v", err)
	}
	if _, err := src.LoadUniverse(ctx, "Broken"); err == nil {
		t.Fatalf("a malformed partition file must be an error")
	}
}
