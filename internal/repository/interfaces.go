package repository

import (
	"context"

	"github.com/alexanderramin/stageflow/internal/domain"
)

// TemplateGraphData is the raw material for one dependency graph load:
// the stage catalogue and depends-on edges of a single template version.
type TemplateGraphData struct {
	Version string
	Stages  []domain.StageTemplate
	Edges   []domain.StageDependencyTemplate
}

type StageTemplateRepo interface {
	CreateStage(ctx context.Context, t *domain.StageTemplate) error
	CreateEdge(ctx context.Context, e *domain.StageDependencyTemplate) error
	LoadVersion(ctx context.Context, version string) (*TemplateGraphData, error)
	ListVersions(ctx context.Context) ([]string, error)
}

type ProjectStageRepo interface {
	Create(ctx context.Context, s *domain.ProjectStage) error
	GetByCode(ctx context.Context, projectID, stageCode string) (*domain.ProjectStage, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.ProjectStage, error)
	// Update writes the row guarded by its optimistic row version and
	// increments it; a stale version fails with ErrConcurrencyConflict.
	Update(ctx context.Context, s *domain.ProjectStage) error
}

type PlanVersionRepo interface {
	Create(ctx context.Context, v *domain.PlanVersion) error
	GetByID(ctx context.Context, id string) (*domain.PlanVersion, error)
	GetDraft(ctx context.Context, projectID, ownerUserID string) (*domain.PlanVersion, error)
	GetActive(ctx context.Context, projectID string) (*domain.PlanVersion, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.PlanVersion, error)
	NextVersionNo(ctx context.Context, projectID string) (int, error)
	Update(ctx context.Context, v *domain.PlanVersion) error
}

type StagePlanRepo interface {
	Create(ctx context.Context, p *domain.StagePlan) error
	ListByVersion(ctx context.Context, planVersionID string) ([]*domain.StagePlan, error)
	DeleteByVersion(ctx context.Context, planVersionID string) error
}

type HolidayRepo interface {
	Upsert(ctx context.Context, h *domain.Holiday) error
	List(ctx context.Context) ([]domain.Holiday, error)
}

type ScheduleSettingsRepo interface {
	Get(ctx context.Context, projectID string) (*domain.ProjectScheduleSettings, error)
	Upsert(ctx context.Context, s *domain.ProjectScheduleSettings) error
}

// StageShiftLogRepo is append-only: shift rows are never updated or
// deleted.
type StageShiftLogRepo interface {
	Append(ctx context.Context, l *domain.StageShiftLog) error
	ListByProject(ctx context.Context, projectID string) ([]*domain.StageShiftLog, error)
	ListByStage(ctx context.Context, projectID, stageCode string) ([]*domain.StageShiftLog, error)
}

type StageChangeRequestRepo interface {
	Create(ctx context.Context, r *domain.StageChangeRequest) error
	GetByID(ctx context.Context, id string) (*domain.StageChangeRequest, error)
	GetPending(ctx context.Context, projectID, stageCode string) (*domain.StageChangeRequest, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.StageChangeRequest, error)
	Update(ctx context.Context, r *domain.StageChangeRequest) error
}

// StageChangeLogRepo is append-only.
type StageChangeLogRepo interface {
	Append(ctx context.Context, l *domain.StageChangeLog) error
	ListByProject(ctx context.Context, projectID string) ([]*domain.StageChangeLog, error)
	ListByStage(ctx context.Context, projectID, stageCode string) ([]*domain.StageChangeLog, error)
}

type SnapshotRepo interface {
	Create(ctx context.Context, s *domain.ProjectPlanSnapshot, rows []domain.ProjectPlanSnapshotRow) error
	GetByID(ctx context.Context, id string) (*domain.ProjectPlanSnapshot, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.ProjectPlanSnapshot, error)
	ListRows(ctx context.Context, snapshotID string) ([]domain.ProjectPlanSnapshotRow, error)
}
