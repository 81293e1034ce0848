package domain

import "time"

// StageShiftLog is one append-only record of a forecast date moving
// during a realignment run. Rows are never updated or deleted.
type StageShiftLog struct {
	ID              string
	ProjectID       string
	StageCode       string
	OldForecastDue  *time.Time
	NewForecastDue  *time.Time
	DeltaDays       int
	CauseStageCode  string
	CauseType       ShiftCause
	CreatedOn       time.Time
	CreatedByUserID string
}

// StageChangeRequest is a pending manual edit to a stage's status or
// dates, awaiting a decision. At most one pending request may exist per
// (project, stage); the store enforces this.
type StageChangeRequest struct {
	ID             string
	ProjectID      string
	StageCode      string
	DecisionStatus DecisionStatus

	RequestedStatus      *StageStatus
	RequestedActualStart *time.Time
	RequestedCompletedOn *time.Time
	Reason               string

	RequestedBy  string
	RequestedAt  time.Time
	DecidedBy    string
	DecidedAt    *time.Time
	DecisionNote string
}

// StageChangeLog is the append-only audit trail of every workflow
// action, capturing status and actual dates as before/after pairs.
type StageChangeLog struct {
	ID        string
	ProjectID string
	StageCode string
	RequestID string
	Action    ChangeAction

	FromStatus      *StageStatus
	ToStatus        *StageStatus
	FromActualStart *time.Time
	ToActualStart   *time.Time
	FromCompletedOn *time.Time
	ToCompletedOn   *time.Time

	Note      string
	ActorID   string
	CreatedAt time.Time
}
