package domain

// Resolution is the outcome of chasing a ConceptRef against the store:
// either the stored concept, or the dangling id with its best label.
type Resolution struct {
	Concept *Concept
	ID      string
	Label   string
}

func (r Resolution) Resolved() bool { return r.Concept != nil }

// Resolve looks a reference up in an id index. Every traversal in the
// system goes through this so missing concepts are treated uniformly.
func Resolve(index map[string]*Concept, ref ConceptRef) Resolution {
	if c, ok := index[ref.ID]; ok {
		return Resolution{Concept: c, ID: c.ID, Label: c.Label}
	}
	label := ref.Label
	if label == "" {
		label = ref.ID
	}
	return Resolution{ID: ref.ID, Label: label}
}

// IndexByID builds the lookup map used by Resolve. Pointers refer into
// the given slice, so callers must hand in a snapshot they will not
// mutate during traversal.
func IndexByID(concepts []Concept) map[string]*Concept {
	index := make(map[string]*Concept, len(concepts))
	for i := range concepts {
		index[concepts[i].ID] = &concepts[i]
	}
	return index
}
