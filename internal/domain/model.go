package domain

// RelationKind tags an edge with the definitional relation it encodes.
// The set is closed; adapters must reject anything else.
type RelationKind string

const (
	RelationGenus       RelationKind = "parent-genus"
	RelationDifferentia RelationKind = "parent-differentia"
)

// VirtualKind classifies placeholder nodes standing in for referenced
// concepts that are absent from the store.
type VirtualKind string

const (
	VirtualGenus       VirtualKind = "virtual genus"
	VirtualDifferentia VirtualKind = "virtual differentia"
)

const (
	TypeConcept   = "concept"
	TypeAxiomatic = "axiomatic concept"
)

// DefaultSource is recorded on definitions with no provenance note.
const DefaultSource = "User created"

// CustomUniversePrefix distinguishes user-defined universes from the
// predefined catalog.
const CustomUniversePrefix = "custom-"

// ConceptRef points at another concept by id. The id may dangle; that is
// an expected state, not an error.
type ConceptRef struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Definition is a genus-differentia definition. A nil Genus marks an
// axiomatic concept with no broader category.
type Definition struct {
	Text        string       `json:"text"`
	Genus       *ConceptRef  `json:"genus"`
	Differentia []ConceptRef `json:"differentia"`
	Source      string       `json:"source,omitempty"`
}

type Concept struct {
	ID              string     `json:"id"`
	UniverseID      string     `json:"universeId"`
	Type            string     `json:"type"`
	Label           string     `json:"label"`
	Definition      Definition `json:"definition"`
	PerceptualRoots []string   `json:"perceptualRoots,omitempty"`
}

// HasDefinitionBody reports whether the concept carries a genus or at
// least one differentia.
func (c Concept) HasDefinitionBody() bool {
	return c.Definition.Genus != nil || len(c.Definition.Differentia) > 0
}

// GraphNode is a materialized display node. X,Y hold the top-left corner
// of a fixed 150x80 footprint.
type GraphNode struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	X           float64     `json:"x"`
	Y           float64     `json:"y"`
	Virtual     bool        `json:"virtual,omitempty"`
	VirtualKind VirtualKind `json:"virtualKind,omitempty"`
	Central     bool        `json:"central,omitempty"`
}

// GraphEdge points from the defining concept to the concept its
// definition references. ID is the dedup key source-target-relation.
type GraphEdge struct {
	ID           string       `json:"id"`
	Source       string       `json:"source"`
	Target       string       `json:"target"`
	Relation     RelationKind `json:"relation"`
	SourceHandle HandleSide   `json:"sourceHandle,omitempty"`
	TargetHandle HandleSide   `json:"targetHandle,omitempty"`
}

// HandleSide names the box side an edge attaches to.
type HandleSide string

const (
	HandleTopSource    HandleSide = "top-source"
	HandleBottomSource HandleSide = "bottom-source"
	HandleLeftSource   HandleSide = "left-source"
	HandleRightSource  HandleSide = "right-source"
	HandleTopTarget    HandleSide = "top-target"
	HandleBottomTarget HandleSide = "bottom-target"
	HandleLeftTarget   HandleSide = "left-target"
	HandleRightTarget  HandleSide = "right-target"
)

// Graph bundles the output of subgraph construction and layout.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Cycle is a closed loop through genus/differentia references. Path holds
// concept ids with the first id repeated as the last; Labels runs parallel.
type Cycle struct {
	Path   []string `json:"path"`
	Labels []string `json:"labels"`
}

type FloatingReason string

const (
	ReasonUndefined  FloatingReason = "undefined"
	ReasonIncomplete FloatingReason = "incomplete"
)

// FloatingAbstraction flags a referenced concept that is missing from the
// store (undefined) or stored without genus and differentia (incomplete).
type FloatingAbstraction struct {
	ID           string         `json:"id"`
	Label        string         `json:"label,omitempty"`
	ReferencedBy []string       `json:"referencedBy"`
	Reason       FloatingReason `json:"reason"`
}

type LayoutDirection string

const (
	DirectionTB LayoutDirection = "TB"
	DirectionBT LayoutDirection = "BT"
	DirectionLR LayoutDirection = "LR"
	DirectionRL LayoutDirection = "RL"
)

type LayoutOptions struct {
	Direction   LayoutDirection `json:"direction"`
	NodeSpacing int             `json:"nodeSpacing"`
	RankSpacing int             `json:"rankSpacing"`
	EdgeSpacing int             `json:"edgeSpacing"`
	EnableAuto  bool            `json:"enableAuto"`
}

// ViewState is the navigable state of a study session: focal concepts,
// traversal depth, layout options, edge toggles, universe selection.
type ViewState struct {
	Focal           []string        `json:"focal"`
	Depth           int             `json:"depth"`
	Direction       LayoutDirection `json:"direction"`
	NodeSpacing     int             `json:"nodeSpacing"`
	RankSpacing     int             `json:"rankSpacing"`
	ShowGenus       bool            `json:"showGenus"`
	ShowDifferentia bool            `json:"showDifferentia"`
	Universes       []string        `json:"universes"`
}

// ImportAnalysis is the dry-run result of an import. A data-shape failure
// is reported through Error, never as a Go error past the adapter.
type ImportAnalysis struct {
	Success             bool     `json:"success"`
	TotalConcepts       int      `json:"totalConcepts"`
	NewConcepts         int      `json:"newConcepts"`
	OverwrittenConcepts int      `json:"overwrittenConcepts"`
	NewUniverses        int      `json:"newUniverses"`
	OverwrittenIDs      []string `json:"overwrittenConceptIds,omitempty"`
	Error               string   `json:"error,omitempty"`
}

type ExportDocument struct {
	ExportDate    string    `json:"exportDate"`
	TotalConcepts int       `json:"totalConcepts"`
	Universes     []string  `json:"universes"`
	Concepts      []Concept `json:"concepts"`
}

// UniverseInfo describes one catalog entry for listings.
type UniverseInfo struct {
	ID           string `json:"id"`
	Predefined   bool   `json:"predefined"`
	Selected     bool   `json:"selected"`
	ConceptCount int    `json:"conceptCount"`
}
