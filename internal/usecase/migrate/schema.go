package migrate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmigrate/internal/domain/mapping"
	"github.com/kailas-cloud/vecmigrate/internal/domain/migration"
	"github.com/kailas-cloud/vecmigrate/internal/domain/schema"
)

const fallbackWarning = "The key field is not filterable or not sortable. " +
	"A maximum of %d records can be backed up and restored."

// SchemaPlan is the outcome of a schema transfer.
type SchemaPlan struct {
	Target         schema.Index
	KeyField       schema.Field
	NonRetrievable []string
	ExportFields   []string
	Mode           migration.Mode
}

// TransferSchema reads the source definition, derives the target definition and creates or
// updates the target index. Nothing is written when the source has no key field or the
// mapping does not fit the schema.
func (s *Service) TransferSchema(ctx context.Context) (SchemaPlan, error) {
	src, err := s.source.GetIndex(ctx)
	if err != nil {
		return SchemaPlan{}, fmt.Errorf("read source schema: %w", err)
	}

	key, err := src.KeyField()
	if err != nil {
		return SchemaPlan{}, err
	}

	hidden := src.NonRetrievable()
	if len(hidden) > 0 {
		s.logger.Warn("The following fields are not marked as retrievable and cannot be backed up and restored: "+
			strings.Join(hidden, ", "),
			zap.Strings("fields", hidden),
		)
	}

	target := src.Clone()
	target.Name = s.target.Name()
	if changed := target.ApplyVectorDimensions(s.mapping); len(changed) > 0 {
		s.logger.Info("Vector dimensions overridden from mapping", zap.Strings("fields", changed))
	}
	if err := target.CheckMapping(s.mapping); err != nil {
		return SchemaPlan{}, fmt.Errorf("vector mapping: %w", err)
	}
	if s.vectorSearch != nil {
		target.VectorSearch = s.vectorSearch
	}

	mode := migration.ModeCursor
	if !key.SupportsCursor() {
		mode = migration.ModeBounded
		s.logger.Warn(fmt.Sprintf(fallbackWarning, s.maxRecords),
			zap.String("key_field", key.Name),
			zap.Int("max_records", s.maxRecords),
		)
	}

	if err := s.target.CreateOrUpdateIndex(ctx, target); err != nil {
		return SchemaPlan{}, fmt.Errorf("create target index: %w", err)
	}
	s.logger.Info("Target index created or updated",
		zap.String("index", target.Name),
		zap.Int("fields", len(target.Fields)),
		zap.String("key_field", key.Name),
		zap.String("mode", string(mode)),
	)

	return SchemaPlan{
		Target:         target,
		KeyField:       key,
		NonRetrievable: hidden,
		ExportFields:   exportFields(&src, s.mapping),
		Mode:           mode,
	}, nil
}

// exportFields lists the source fields worth reading: every retrievable field except the
// vectors the mapping recomputes, unless one of them also feeds another entry.
func exportFields(src *schema.Index, m mapping.Mapping) []string {
	recomputed := make(map[string]bool, len(m))
	for _, t := range m.Targets() {
		recomputed[t] = true
	}
	for _, e := range m {
		delete(recomputed, e.Source)
	}
	var out []string
	for _, name := range src.Retrievable() {
		if !recomputed[name] {
			out = append(out, name)
		}
	}
	return out
}
