package service

import (
	"context"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
)

// RealignRequest triggers downstream forecast recomputation after one
// stage's effective date moved.
type RealignRequest struct {
	ProjectID string
	StageCode string
	Cause     domain.ShiftCause
	ActorID   string
	// Now overrides the clock for deterministic tests.
	Now *time.Time
}

// RealignResult reports what a realignment run changed.
type RealignResult struct {
	// Shifts holds one appended log row per stage whose forecast due
	// actually moved. Empty on an idempotent rerun.
	Shifts []*domain.StageShiftLog
	// Recomputed is the size of the downstream-reachable set examined.
	Recomputed int
}

type RealignmentService interface {
	Realign(ctx context.Context, req RealignRequest) (*RealignResult, error)
}

// ChangeRequestInput describes a requested manual edit to one stage.
type ChangeRequestInput struct {
	ProjectID            string
	StageCode            string
	RequestedStatus      *domain.StageStatus
	RequestedActualStart *time.Time
	RequestedCompletedOn *time.Time
	Reason               string
	ActorID              string
	Now                  *time.Time
}

type StageChangeService interface {
	Submit(ctx context.Context, in ChangeRequestInput) (*domain.StageChangeRequest, error)
	Approve(ctx context.Context, requestID, actorID, note string) (*RealignResult, error)
	Reject(ctx context.Context, requestID, actorID, note string) error
	Supersede(ctx context.Context, requestID, actorID, note string) error
	// DirectApply bypasses the request/approval pair for privileged
	// edits; the change is applied and realigned immediately.
	DirectApply(ctx context.Context, in ChangeRequestInput) (*RealignResult, error)
	// UpdateActuals is the privileged date-only edit path.
	UpdateActuals(ctx context.Context, in ChangeRequestInput) (*RealignResult, error)
	// Backfill records a user-initiated correction of a legacy completed
	// stage missing its completion date.
	Backfill(ctx context.Context, projectID, stageCode string, completedOn time.Time, actorID string) (*RealignResult, error)
}

// CreateDraftInput opens a new draft plan version for one project.
type CreateDraftInput struct {
	ProjectID       string
	OwnerUserID     string
	AnchorDate      time.Time
	AnchorStageCode string
	SkipWeekends    bool
	TransitionRule  domain.TransitionRule
	PncApplicable   bool
	Now             *time.Time
}

type PlanVersionService interface {
	CreateDraft(ctx context.Context, in CreateDraftInput) (*domain.PlanVersion, error)
	RecomputeDraft(ctx context.Context, planVersionID string) ([]*domain.StagePlan, error)
	Submit(ctx context.Context, planVersionID, actorID string) error
	// Approve activates the version, snapshots its stage plans, and
	// re-baselines the project's stage dates.
	Approve(ctx context.Context, planVersionID, actorID string) (*domain.ProjectPlanSnapshot, error)
	Reject(ctx context.Context, planVersionID, actorID, note string) error
	// Reopen returns a rejected version to editable draft state.
	Reopen(ctx context.Context, planVersionID, actorID string) error
}

// InitProjectInput creates a project's stage rows against a pinned
// template version and runs the initial forecast.
type InitProjectInput struct {
	ProjectID       string
	TemplateVersion string
	AnchorStart     time.Time
	AnchorStageCode string
	IncludeWeekends bool
	SkipHolidays    bool
	StartPolicy     domain.StartPolicy
	TransitionRule  domain.TransitionRule
	ActorID         string
	Now             *time.Time
}

type ProjectScheduleService interface {
	InitProject(ctx context.Context, in InitProjectInput) ([]*domain.ProjectStage, error)
	Settings(ctx context.Context, projectID string) (*domain.ProjectScheduleSettings, error)
	UpdateSettings(ctx context.Context, s *domain.ProjectScheduleSettings) error
	AddHoliday(ctx context.Context, date time.Time, name string) error
	Holidays(ctx context.Context) ([]domain.Holiday, error)
}
