package chi

import (
	"context"

	domskill "github.com/kailas-cloud/vecmigrate/internal/domain/skill"
	healthuc "github.com/kailas-cloud/vecmigrate/internal/usecase/health"
)

// SkillProcessor turns a custom-skill request into its response.
type SkillProcessor interface {
	Process(ctx context.Context, req domskill.Request) domskill.Response
}

// HealthReporter aggregates dependency health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}
