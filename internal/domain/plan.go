package domain

import "time"

// PlanVersion is one proposed or approved full schedule for a project.
// Versions only move forward: draft -> submitted -> approved | rejected.
type PlanVersion struct {
	ID        string
	ProjectID string
	VersionNo int
	Status    PlanVersionStatus

	AnchorDate      time.Time
	AnchorStageCode string
	SkipWeekends    bool
	TransitionRule  TransitionRule
	PncApplicable   bool

	OwnerUserID   string
	IsActive      bool
	SubmittedAt   *time.Time
	ApprovedAt    *time.Time
	ApprovedBy    string
	RejectedAt    *time.Time
	RejectedBy    string
	RejectionNote string

	RowVersion int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StagePlan is the scheduler's output for one stage of a plan version.
type StagePlan struct {
	ID            string
	PlanVersionID string
	StageCode     string
	PlannedStart  *time.Time
	PlannedDue    *time.Time
}

// ProjectPlanSnapshot is a point-in-time capture of a project's stage
// plan rows, taken when a plan version is approved.
type ProjectPlanSnapshot struct {
	ID            string
	ProjectID     string
	PlanVersionID string
	VersionNo     int
	TakenBy       string
	TakenAt       time.Time
}

// ProjectPlanSnapshotRow is one captured stage plan row.
type ProjectPlanSnapshotRow struct {
	ID           string
	SnapshotID   string
	StageCode    string
	PlannedStart *time.Time
	PlannedDue   *time.Time
}
