package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/calendar"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/forecast"
	"github.com/alexanderramin/stageflow/internal/graph"
	"github.com/alexanderramin/stageflow/internal/repository"
)

// planningContext bundles everything a forecast or realignment run
// needs: the pinned template graph, the project calendar, the duration
// table, and the schedule settings. Loaded once per computation inside
// the owning transaction.
type planningContext struct {
	Settings  *domain.ProjectScheduleSettings
	Graph     *graph.Graph
	Calendar  *calendar.Calendar
	Durations map[string]int
}

// loadPlanningContext reads the planning inputs for one project using
// tx-scoped repositories.
func loadPlanningContext(ctx context.Context, tx db.DBTX, projectID string) (*planningContext, error) {
	settingsRepo := repository.NewSQLiteScheduleSettingsRepo(tx)
	settings, err := settingsRepo.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading schedule settings: %w", err)
	}
	return loadPlanningContextWith(ctx, tx, settings)
}

// loadPlanningContextWith builds a planning context from explicit
// settings, e.g. a plan version's own calendar flags.
func loadPlanningContextWith(ctx context.Context, tx db.DBTX, settings *domain.ProjectScheduleSettings) (*planningContext, error) {
	var holidays []domain.Holiday
	if settings.SkipHolidays {
		list, err := repository.NewSQLiteHolidayRepo(tx).List(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading holidays: %w", err)
		}
		holidays = list
	}

	cal, err := calendar.New(calendar.Config{
		IncludeWeekends: settings.IncludeWeekends,
		SkipHolidays:    settings.SkipHolidays,
		Holidays:        holidays,
	})
	if err != nil {
		return nil, err
	}

	data, err := repository.NewSQLiteStageTemplateRepo(tx).LoadVersion(ctx, settings.TemplateVersion)
	if err != nil {
		return nil, fmt.Errorf("loading template %s: %w", settings.TemplateVersion, err)
	}
	g, err := graph.Load(data.Version, data.Stages, data.Edges)
	if err != nil {
		return nil, err
	}

	durations := make(map[string]int)
	for _, s := range data.Stages {
		if s.DurationDays != nil {
			durations[s.Code] = *s.DurationDays
		}
	}

	return &planningContext{
		Settings:  settings,
		Graph:     g,
		Calendar:  cal,
		Durations: durations,
	}, nil
}

// forecastInput assembles the scheduler input from a planning context.
func (pc *planningContext) forecastInput(anchorDate time.Time, anchorStage string, rule domain.TransitionRule) forecast.Input {
	return forecast.Input{
		Graph:          pc.Graph,
		AnchorDate:     anchorDate,
		AnchorStage:    anchorStage,
		Durations:      pc.Durations,
		Calendar:       pc.Calendar,
		TransitionRule: rule,
		StartPolicy:    pc.Settings.StartPolicy,
	}
}

// storedWindows maps the currently persisted forecast windows of a
// project's stages, falling back to planned dates when a forecast was
// never computed.
func storedWindows(stages []*domain.ProjectStage) map[string]forecast.Window {
	windows := make(map[string]forecast.Window, len(stages))
	for _, s := range stages {
		start := s.ForecastStart
		if start == nil {
			start = s.PlannedStart
		}
		due := s.ForecastDue
		if due == nil {
			due = s.PlannedDue
		}
		if start == nil && due == nil {
			continue
		}
		w := forecast.Window{}
		if start != nil {
			w.Start = calendar.Normalize(*start)
		}
		if due != nil {
			d := calendar.Normalize(*due)
			w.Due = &d
		}
		windows[s.StageCode] = w
	}
	return windows
}

// sameDate reports whether two nullable dates refer to the same day.
func sameDate(a, b *time.Time) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return calendar.Normalize(*a).Equal(calendar.Normalize(*b))
}

// deltaDays returns the whole-day distance from old to new, zero when
// either side is missing.
func deltaDays(oldDue, newDue *time.Time) int {
	if oldDue == nil || newDue == nil {
		return 0
	}
	return int(calendar.Normalize(*newDue).Sub(calendar.Normalize(*oldDue)).Hours() / 24)
}
