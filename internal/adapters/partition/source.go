// Package partition loads the read-only base layer of the concept store:
// one JSON file of concept records per predefined universe.
package partition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lebbe/premises/internal/application"
	"github.com/lebbe/premises/internal/config"
	"github.com/lebbe/premises/internal/domain"
)

type Source struct {
	dir   string
	files map[string]string
	log   *zap.Logger
}

func NewSource(dir string, universes []config.Universe, log *zap.Logger) *Source {
	if log == nil {
		log = zap.NewNop()
	}
	files := make(map[string]string, len(universes))
	for _, u := range universes {
		files[u.ID] = u.File
	}
	return &Source{dir: dir, files: files, log: log}
}

// LoadUniverse reads and validates one partition file. Records that fail
// schema validation poison only their own file; the caller decides
// whether to skip the universe.
func (s *Source) LoadUniverse(ctx context.Context, universeID string) ([]domain.Concept, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, ok := s.files[universeID]
	if !ok {
		return nil, fmt.Errorf("unknown universe %q", universeID)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, file))
	if err != nil {
		return nil, fmt.Errorf("read partition %s: %w", file, err)
	}

	concepts, err := application.ParseConcepts(data)
	if err != nil {
		return nil, fmt.Errorf("partition %s: %w", file, err)
	}
	s.log.Debug("partition loaded", zap.String("universe", universeID), zap.Int("concepts", len(concepts)))
	return concepts, nil
}
