package testutil

import (
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/google/uuid"
)

// Date builds a UTC midnight date, the canonical form for all schedule
// dates.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Days returns a pointer to a working-day duration.
func Days(n int) *int {
	return &n
}

// StageTemplate options
type TemplateOption func(*domain.StageTemplate)

func WithDuration(days int) TemplateOption {
	return func(t *domain.StageTemplate) {
		t.DurationDays = &days
	}
}

func WithOpenEnded() TemplateOption {
	return func(t *domain.StageTemplate) {
		t.DurationDays = nil
	}
}

func WithParallelGroup(group string) TemplateOption {
	return func(t *domain.StageTemplate) {
		t.ParallelGroup = group
	}
}

func WithOptional() TemplateOption {
	return func(t *domain.StageTemplate) {
		t.Optional = true
	}
}

func NewTestStageTemplate(version, code string, sequence int, opts ...TemplateOption) *domain.StageTemplate {
	t := &domain.StageTemplate{
		Version:  version,
		Code:     code,
		Name:     "Stage " + code,
		Sequence: sequence,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func NewTestEdge(version, from, dependsOn string) *domain.StageDependencyTemplate {
	return &domain.StageDependencyTemplate{
		Version:            version,
		FromStageCode:      from,
		DependsOnStageCode: dependsOn,
	}
}

// ProjectStage options
type StageOption func(*domain.ProjectStage)

func WithStageStatus(s domain.StageStatus) StageOption {
	return func(ps *domain.ProjectStage) {
		ps.Status = s
	}
}

func WithForecast(start, due time.Time) StageOption {
	return func(ps *domain.ProjectStage) {
		ps.ForecastStart = &start
		ps.ForecastDue = &due
	}
}

func WithForecastStart(start time.Time) StageOption {
	return func(ps *domain.ProjectStage) {
		ps.ForecastStart = &start
	}
}

func WithPlanned(start, due time.Time) StageOption {
	return func(ps *domain.ProjectStage) {
		ps.PlannedStart = &start
		ps.PlannedDue = &due
	}
}

func WithActualStart(d time.Time) StageOption {
	return func(ps *domain.ProjectStage) {
		ps.ActualStart = &d
	}
}

func WithCompletedOn(d time.Time) StageOption {
	return func(ps *domain.ProjectStage) {
		ps.Status = domain.StageCompleted
		ps.CompletedOn = &d
	}
}

func WithRequiresBackfill() StageOption {
	return func(ps *domain.ProjectStage) {
		ps.Status = domain.StageCompleted
		ps.CompletedOn = nil
		ps.RequiresBackfill = true
	}
}

func NewTestProjectStage(projectID, code string, opts ...StageOption) *domain.ProjectStage {
	now := time.Now().UTC()
	ps := &domain.ProjectStage{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		StageCode: code,
		Status:    domain.StageNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(ps)
	}
	return ps
}

// ProjectScheduleSettings options
type SettingsOption func(*domain.ProjectScheduleSettings)

func WithIncludeWeekends() SettingsOption {
	return func(s *domain.ProjectScheduleSettings) {
		s.IncludeWeekends = true
	}
}

func WithSkipHolidays() SettingsOption {
	return func(s *domain.ProjectScheduleSettings) {
		s.SkipHolidays = true
	}
}

func WithTransitionRule(r domain.TransitionRule) SettingsOption {
	return func(s *domain.ProjectScheduleSettings) {
		s.TransitionRule = r
	}
}

func WithStartPolicy(p domain.StartPolicy) SettingsOption {
	return func(s *domain.ProjectScheduleSettings) {
		s.StartPolicy = p
	}
}

func NewTestSettings(projectID, templateVersion string, anchor time.Time, anchorStage string, opts ...SettingsOption) *domain.ProjectScheduleSettings {
	now := time.Now().UTC()
	s := &domain.ProjectScheduleSettings{
		ProjectID:       projectID,
		TemplateVersion: templateVersion,
		StartPolicy:     domain.StartSameDay,
		TransitionRule:  domain.TransitionNextWorkingDay,
		AnchorStart:     anchor,
		AnchorStageCode: anchorStage,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlanVersion options
type PlanOption func(*domain.PlanVersion)

func WithPlanStatus(s domain.PlanVersionStatus) PlanOption {
	return func(p *domain.PlanVersion) {
		p.Status = s
	}
}

func WithPlanOwner(owner string) PlanOption {
	return func(p *domain.PlanVersion) {
		p.OwnerUserID = owner
	}
}

func NewTestPlanVersion(projectID string, versionNo int, anchor time.Time, anchorStage string, opts ...PlanOption) *domain.PlanVersion {
	now := time.Now().UTC()
	p := &domain.PlanVersion{
		ID:              uuid.New().String(),
		ProjectID:       projectID,
		VersionNo:       versionNo,
		Status:          domain.PlanDraft,
		AnchorDate:      anchor,
		AnchorStageCode: anchorStage,
		SkipWeekends:    true,
		TransitionRule:  domain.TransitionNextWorkingDay,
		OwnerUserID:     "owner-1",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
