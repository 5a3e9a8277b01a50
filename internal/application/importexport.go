package application

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lebbe/premises/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// refValue decodes a ConceptRef from either the current {id,label} object
// shape or the legacy bare-string shape. The upgrade happens only here;
// past this boundary the object shape is canonical.
type refValue domain.ConceptRef

func (r *refValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		r.ID = strings.TrimSpace(id)
		r.Label = ""
		return nil
	}
	var obj struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = strings.TrimSpace(obj.ID)
	r.Label = strings.TrimSpace(obj.Label)
	return nil
}

type definitionRecord struct {
	Text        string     `json:"text" validate:"required"`
	Genus       *refValue  `json:"genus"`
	Differentia []refValue `json:"differentia"`
	Source      string     `json:"source"`
}

type conceptRecord struct {
	ID              string           `json:"id" validate:"required"`
	UniverseID      string           `json:"universeId" validate:"required"`
	Type            string           `json:"type"`
	Label           string           `json:"label" validate:"required"`
	Definition      definitionRecord `json:"definition" validate:"required"`
	PerceptualRoots []string         `json:"perceptualRoots"`
}

// ParseConcepts decodes and validates an untrusted concept payload:
// either a bare JSON array of concept records or a wrapper object with a
// "concepts" array (the export document shape). Unknown fields are
// ignored; a missing required field fails the whole parse.
func ParseConcepts(data []byte) ([]domain.Concept, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	var records []conceptRecord
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("parse concepts: %w", err)
		}
	} else {
		var envelope struct {
			Concepts []conceptRecord `json:"concepts"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("parse concepts: %w", err)
		}
		if envelope.Concepts == nil {
			return nil, fmt.Errorf("payload has no concepts array")
		}
		records = envelope.Concepts
	}

	out := make([]domain.Concept, 0, len(records))
	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("concept %d (%s): %s", i, rec.ID, validationMessage(err))
		}
		out = append(out, recordToConcept(rec))
	}
	return out, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "missing required field(s): " + strings.Join(fields, ", ")
}

func recordToConcept(rec conceptRecord) domain.Concept {
	c := domain.Concept{
		ID:              strings.TrimSpace(rec.ID),
		UniverseID:      strings.TrimSpace(rec.UniverseID),
		Type:            rec.Type,
		Label:           rec.Label,
		PerceptualRoots: rec.PerceptualRoots,
	}
	if c.Type == "" {
		c.Type = domain.TypeConcept
	}
	c.Definition = domain.Definition{
		Text:   rec.Definition.Text,
		Source: rec.Definition.Source,
	}
	if c.Definition.Source == "" {
		c.Definition.Source = domain.DefaultSource
	}
	if rec.Definition.Genus != nil && rec.Definition.Genus.ID != "" {
		g := domain.ConceptRef(*rec.Definition.Genus)
		c.Definition.Genus = &g
	}
	for _, d := range rec.Definition.Differentia {
		if d.ID == "" {
			continue
		}
		c.Definition.Differentia = append(c.Definition.Differentia, domain.ConceptRef(d))
	}
	return c
}

// AnalyzeImport dry-runs an import against the existing collection.
// Shape failures come back in the Error field, never as a Go error.
func AnalyzeImport(data []byte, existing []domain.Concept) domain.ImportAnalysis {
	concepts, err := ParseConcepts(data)
	if err != nil {
		return domain.ImportAnalysis{Error: err.Error()}
	}

	existingIDs := make(map[string]bool, len(existing))
	existingUniverses := make(map[string]bool)
	for _, c := range existing {
		existingIDs[c.ID] = true
		existingUniverses[c.UniverseID] = true
	}

	result := domain.ImportAnalysis{Success: true, TotalConcepts: len(concepts)}
	seenUniverses := make(map[string]bool)
	for _, c := range concepts {
		if existingIDs[c.ID] {
			result.OverwrittenConcepts++
			result.OverwrittenIDs = append(result.OverwrittenIDs, c.ID)
		} else {
			result.NewConcepts++
		}
		if !existingUniverses[c.UniverseID] && !seenUniverses[c.UniverseID] {
			seenUniverses[c.UniverseID] = true
			result.NewUniverses++
		}
	}
	return result
}

// ApplyImport merges imported concepts over the existing collection,
// imported winning on id conflict, and returns the union sorted by
// (universeId, id).
func ApplyImport(imported, existing []domain.Concept) []domain.Concept {
	merged := Merge(imported, existing)
	sortConcepts(merged)
	return merged
}

// BuildExport assembles the export document for the selected universes.
// An empty selection exports everything.
func BuildExport(all []domain.Concept, universes []string, now time.Time) domain.ExportDocument {
	concepts := append([]domain.Concept{}, FilterByUniverse(all, universes)...)
	sortConcepts(concepts)

	seen := make(map[string]bool)
	var names []string
	for _, c := range concepts {
		if !seen[c.UniverseID] {
			seen[c.UniverseID] = true
			names = append(names, c.UniverseID)
		}
	}
	sort.Strings(names)

	return domain.ExportDocument{
		ExportDate:    now.UTC().Format(time.RFC3339),
		TotalConcepts: len(concepts),
		Universes:     names,
		Concepts:      concepts,
	}
}

func sortConcepts(concepts []domain.Concept) {
	sort.Slice(concepts, func(i, j int) bool {
		if concepts[i].UniverseID != concepts[j].UniverseID {
			return concepts[i].UniverseID < concepts[j].UniverseID
		}
		return concepts[i].ID < concepts[j].ID
	})
}
