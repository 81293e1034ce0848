package domain

import "time"

// Holiday is one process-wide calendar exception.
type Holiday struct {
	Date time.Time
	Name string
}

// ProjectScheduleSettings is the per-project calendar configuration
// consumed by the working calendar and the forecast scheduler.
type ProjectScheduleSettings struct {
	ProjectID       string
	TemplateVersion string
	IncludeWeekends bool
	SkipHolidays    bool
	StartPolicy     StartPolicy
	TransitionRule  TransitionRule
	AnchorStart     time.Time
	AnchorStageCode string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
