package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/lebbe/premises/internal/domain"
)

// envelopeVersion is the current schema version of both persisted
// envelopes. A stored version that differs is logged as a warning and
// the data is still read; rows that no longer decode are dropped.
const envelopeVersion = 1

const (
	metaConceptsVersion  = "user_concepts_version"
	metaConceptsModified = "user_concepts_modified"
	metaSelectionVersion = "universe_selection_version"
)

type ConceptRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

func NewConceptRepository(db *gorm.DB, log *zap.Logger) *ConceptRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConceptRepository{db: db, log: log}
}

func (r *ConceptRepository) UserConcepts(ctx context.Context) ([]domain.Concept, error) {
	r.checkEnvelopeVersion(ctx, metaConceptsVersion)

	rows := make([]UserConceptModel, 0)
	if err := r.db.WithContext(ctx).Order("universe_id, id").Find(&rows).Error; err != nil {
		return nil, err
	}

	concepts := make([]domain.Concept, 0, len(rows))
	for _, m := range rows {
		c, err := modelToConcept(m)
		if err != nil {
			r.log.Warn("discarding malformed user concept", zap.String("id", m.ID), zap.Error(err))
			continue
		}
		concepts = append(concepts, c)
	}
	return concepts, nil
}

// SaveUserConcepts replaces the whole user layer in one transaction, the
// persisted equivalent of writing a fresh envelope.
func (r *ConceptRepository) SaveUserConcepts(ctx context.Context, concepts []domain.Concept) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&UserConceptModel{}).Error; err != nil {
			return err
		}
		for _, c := range concepts {
			m, err := conceptToModel(c)
			if err != nil {
				return err
			}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		return writeEnvelopeMeta(tx, metaConceptsVersion, metaConceptsModified)
	})
}

func (r *ConceptRepository) ClearUserConcepts(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&UserConceptModel{}).Error; err != nil {
			return err
		}
		return writeEnvelopeMeta(tx, metaConceptsVersion, metaConceptsModified)
	})
}

func (r *ConceptRepository) UniverseSelection(ctx context.Context) ([]string, error) {
	r.checkEnvelopeVersion(ctx, metaSelectionVersion)

	rows := make([]UniverseSelectionModel, 0)
	if err := r.db.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, err
	}
	universes := make([]string, 0, len(rows))
	for _, m := range rows {
		universes = append(universes, m.UniverseID)
	}
	return universes, nil
}

func (r *ConceptRepository) SaveUniverseSelection(ctx context.Context, universes []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&UniverseSelectionModel{}).Error; err != nil {
			return err
		}
		for i, id := range universes {
			m := UniverseSelectionModel{UniverseID: id, Position: i}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		return writeEnvelopeMeta(tx, metaSelectionVersion, "")
	})
}

// checkEnvelopeVersion warns on a version mismatch but never fails the
// read; a missing meta row means a fresh database.
func (r *ConceptRepository) checkEnvelopeVersion(ctx context.Context, key string) {
	var meta StoreMetaModel
	err := r.db.WithContext(ctx).First(&meta, "key = ?", key).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("envelope meta unavailable", zap.String("key", key), zap.Error(err))
		}
		return
	}
	if v, err := strconv.Atoi(meta.Value); err != nil || v != envelopeVersion {
		r.log.Warn("envelope version mismatch",
			zap.String("key", key),
			zap.String("stored", meta.Value),
			zap.Int("expected", envelopeVersion))
	}
}

func writeEnvelopeMeta(tx *gorm.DB, versionKey, modifiedKey string) error {
	if err := upsertMeta(tx, versionKey, strconv.Itoa(envelopeVersion)); err != nil {
		return err
	}
	if modifiedKey == "" {
		return nil
	}
	return upsertMeta(tx, modifiedKey, time.Now().UTC().Format(time.RFC3339))
}

func upsertMeta(tx *gorm.DB, key, value string) error {
	m := StoreMetaModel{Key: key, Value: value}
	return tx.Save(&m).Error
}

func conceptToModel(c domain.Concept) (UserConceptModel, error) {
	definition, err := json.Marshal(c.Definition)
	if err != nil {
		return UserConceptModel{}, err
	}
	roots := ""
	if len(c.PerceptualRoots) > 0 {
		raw, err := json.Marshal(c.PerceptualRoots)
		if err != nil {
			return UserConceptModel{}, err
		}
		roots = string(raw)
	}
	return UserConceptModel{
		ID:              c.ID,
		UniverseID:      c.UniverseID,
		Type:            c.Type,
		Label:           c.Label,
		Definition:      string(definition),
		PerceptualRoots: roots,
	}, nil
}

func modelToConcept(m UserConceptModel) (domain.Concept, error) {
	c := domain.Concept{
		ID:         m.ID,
		UniverseID: m.UniverseID,
		Type:       m.Type,
		Label:      m.Label,
	}
	if err := json.Unmarshal([]byte(m.Definition), &c.Definition); err != nil {
		return domain.Concept{}, err
	}
	if m.PerceptualRoots != "" {
		if err := json.Unmarshal([]byte(m.PerceptualRoots), &c.PerceptualRoots); err != nil {
			return domain.Concept{}, err
		}
	}
	return c, nil
}
