package sqlite

import "time"

// UserConceptModel is one row of the persisted user layer. The definition
// and perceptual roots are stored as JSON text; columns carry only what
// queries filter on.
type UserConceptModel struct {
	ID              string `gorm:"primaryKey"`
	UniverseID      string `gorm:"not null;index"`
	Type            string `gorm:"not null"`
	Label           string `gorm:"not null"`
	Definition      string `gorm:"not null"`
	PerceptualRoots string
	UpdatedAt       time.Time
}

func (UserConceptModel) TableName() string { return "user_concepts" }

type UniverseSelectionModel struct {
	UniverseID string `gorm:"primaryKey"`
	Position   int    `gorm:"not null"`
}

func (UniverseSelectionModel) TableName() string { return "universe_selection" }

// StoreMetaModel holds envelope metadata: the schema version of each
// persisted envelope and the last-modified stamp of the user layer.
type StoreMetaModel struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

func (StoreMetaModel) TableName() string { return "store_meta" }
