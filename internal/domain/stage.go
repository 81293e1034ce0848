package domain

import "time"

// StageTemplate is one catalogue entry of a versioned process template.
// Template rows are immutable per version; a change ships as a new version.
type StageTemplate struct {
	Version       string
	Code          string
	Name          string
	Sequence      int
	Optional      bool
	ParallelGroup string
	// DurationDays is the default working-day duration; nil marks the
	// stage open-ended.
	DurationDays *int
}

// StageDependencyTemplate is a directed depends-on edge between two stage
// codes of the same template version.
type StageDependencyTemplate struct {
	Version            string
	FromStageCode      string
	DependsOnStageCode string
}

// ProjectStage is the per-project instance of a template stage, carrying
// planned, forecast, and actual dates.
type ProjectStage struct {
	ID        string
	ProjectID string
	StageCode string
	Status    StageStatus

	PlannedStart  *time.Time
	PlannedDue    *time.Time
	ForecastStart *time.Time
	ForecastDue   *time.Time
	ActualStart   *time.Time
	CompletedOn   *time.Time

	IsAutoCompleted       bool
	AutoCompletedFromCode string
	RequiresBackfill      bool

	// RowVersion is the optimistic concurrency token; every successful
	// update increments it.
	RowVersion int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveDue returns the date downstream scheduling hangs off: the
// actual completion when recorded, else the current forecast due, else
// the forecast start for open-ended stages.
func (s *ProjectStage) EffectiveDue() *time.Time {
	if s.CompletedOn != nil {
		return s.CompletedOn
	}
	if s.ForecastDue != nil {
		return s.ForecastDue
	}
	return s.ForecastStart
}

// CompletionConsistent reports whether a completed stage carries the
// dates the schema promises: CompletedOn set, or the row explicitly
// flagged for backfill.
func (s *ProjectStage) CompletionConsistent() bool {
	if s.Status != StageCompleted {
		return true
	}
	return s.CompletedOn != nil || s.RequiresBackfill
}
