// Package skill turns custom-skill records into embedding vectors.
package skill

import (
	"context"

	"go.uber.org/zap"

	domskill "github.com/kailas-cloud/vecmigrate/internal/domain/skill"
	"github.com/kailas-cloud/vecmigrate/internal/metrics"
)

// Service handles embedding trigger requests. It holds no per-request state.
type Service struct {
	embedder Embedder
	logger   *zap.Logger
}

// New creates a trigger service.
func New(embedder Embedder, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, logger: logger}
}

// Process handles every record of req in order. Text records produce a vector, or an
// error entry when embedding fails. Image records are not vectorized yet and produce no
// output. Records of any other shape are dropped.
func (s *Service) Process(ctx context.Context, req domskill.Request) domskill.Response {
	out := make([]domskill.OutputRecord, 0, len(req.Values))
	for _, rec := range req.Values {
		content := domskill.Classify(rec.Data)
		outcome, record, ok := s.handle(ctx, rec.RecordID, content)
		metrics.TriggerRecordsTotal.WithLabelValues(content.Kind().String(), string(outcome)).Inc()
		if ok {
			out = append(out, record)
		}
	}
	return domskill.Response{Values: out}
}

func (s *Service) handle(
	ctx context.Context, id string, content domskill.Content,
) (domskill.Outcome, domskill.OutputRecord, bool) {
	log := s.logger.With(zap.String("record_id", id), zap.String("kind", content.Kind().String()))

	switch content.Kind() {
	case domskill.KindText:
		res, err := s.embedder.Embed(ctx, content.Text())
		if err != nil {
			log.Error("Embedding failed", zap.Error(err))
			return domskill.OutcomeFailed, domskill.OutputRecord{
				RecordID: id,
				Errors:   []domskill.Message{{Message: err.Error()}},
			}, true
		}
		log.Debug("Record embedded", zap.Int("dimensions", len(res.Embedding)))
		return domskill.OutcomeEmbedded, domskill.OutputRecord{
			RecordID: id,
			Data:     &domskill.OutputData{Vector: res.Embedding},
		}, true

	case domskill.KindImageURL:
		log.Info("Image URL record received, image vectorization is not supported",
			zap.String("url", content.ImageURL()))
		return domskill.OutcomeUnsupported, domskill.OutputRecord{}, false

	case domskill.KindImageBinary:
		log.Info("Image binary record received, image vectorization is not supported",
			zap.Int("bytes", len(content.ImageBinary())))
		return domskill.OutcomeUnsupported, domskill.OutputRecord{}, false

	default:
		log.Warn("Dropping record with unrecognized data", zap.String("reason", content.Reason()))
		return domskill.OutcomeInvalid, domskill.OutputRecord{}, false
	}
}
