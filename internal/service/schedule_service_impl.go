package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/calendar"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/forecast"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/google/uuid"
)

type projectScheduleService struct {
	uow      db.UnitOfWork
	observer UseCaseObserver
}

// NewProjectScheduleService creates project onboarding and calendar
// administration.
func NewProjectScheduleService(uow db.UnitOfWork, observer UseCaseObserver) ProjectScheduleService {
	return &projectScheduleService{
		uow:      uow,
		observer: observerOrNoop(observer),
	}
}

func (s *projectScheduleService) InitProject(ctx context.Context, in InitProjectInput) ([]*domain.ProjectStage, error) {
	started := time.Now()
	now := started.UTC()
	if in.Now != nil {
		now = in.Now.UTC()
	}

	var stages []*domain.ProjectStage
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		settingsRepo := repository.NewSQLiteScheduleSettingsRepo(tx)
		if _, err := settingsRepo.Get(ctx, in.ProjectID); err == nil {
			return fmt.Errorf("project %s already initialized: %w",
				in.ProjectID, domain.ErrIllegalTransition)
		}

		settings := &domain.ProjectScheduleSettings{
			ProjectID:       in.ProjectID,
			TemplateVersion: in.TemplateVersion,
			IncludeWeekends: in.IncludeWeekends,
			SkipHolidays:    in.SkipHolidays,
			StartPolicy:     in.StartPolicy,
			TransitionRule:  in.TransitionRule,
			AnchorStart:     calendar.Normalize(in.AnchorStart),
			AnchorStageCode: in.AnchorStageCode,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := settingsRepo.Upsert(ctx, settings); err != nil {
			return err
		}

		pc, err := loadPlanningContextWith(ctx, tx, settings)
		if err != nil {
			return err
		}
		windows, err := forecast.Compute(pc.forecastInput(settings.AnchorStart, settings.AnchorStageCode, settings.TransitionRule))
		if err != nil {
			return err
		}

		stageRepo := repository.NewSQLiteProjectStageRepo(tx)
		for _, code := range pc.Graph.TopologicalOrder() {
			w := windows[code]
			start := w.Start
			stage := &domain.ProjectStage{
				ID:            uuid.New().String(),
				ProjectID:     in.ProjectID,
				StageCode:     code,
				Status:        domain.StageNotStarted,
				PlannedStart:  &start,
				PlannedDue:    w.Due,
				ForecastStart: &start,
				ForecastDue:   w.Due,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := stageRepo.Create(ctx, stage); err != nil {
				return err
			}
			stages = append(stages, stage)
		}
		return nil
	})

	observe(ctx, s.observer, "project_init", map[string]any{
		"project_id":       in.ProjectID,
		"template_version": in.TemplateVersion,
	}, started, err)
	if err != nil {
		return nil, err
	}
	return stages, nil
}

func (s *projectScheduleService) Settings(ctx context.Context, projectID string) (*domain.ProjectScheduleSettings, error) {
	started := time.Now()

	var settings *domain.ProjectScheduleSettings
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		settings, err = repository.NewSQLiteScheduleSettingsRepo(tx).Get(ctx, projectID)
		return err
	})

	observe(ctx, s.observer, "schedule_settings_get", map[string]any{
		"project_id": projectID,
	}, started, err)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *projectScheduleService) UpdateSettings(ctx context.Context, settings *domain.ProjectScheduleSettings) error {
	started := time.Now()
	now := started.UTC()

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := repository.NewSQLiteScheduleSettingsRepo(tx)
		current, err := repo.Get(ctx, settings.ProjectID)
		if err != nil {
			return err
		}
		// The template pin is immutable after init; a template change is
		// a new project, not a settings edit.
		if settings.TemplateVersion != current.TemplateVersion {
			return fmt.Errorf("template version is pinned at init (%s): %w",
				current.TemplateVersion, domain.ErrIllegalTransition)
		}
		settings.CreatedAt = current.CreatedAt
		settings.UpdatedAt = now
		return repo.Upsert(ctx, settings)
	})

	observe(ctx, s.observer, "schedule_settings_update", map[string]any{
		"project_id": settings.ProjectID,
	}, started, err)
	return err
}

func (s *projectScheduleService) AddHoliday(ctx context.Context, date time.Time, name string) error {
	started := time.Now()

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteHolidayRepo(tx).Upsert(ctx, &domain.Holiday{
			Date: calendar.Normalize(date),
			Name: name,
		})
	})

	observe(ctx, s.observer, "holiday_add", map[string]any{
		"date": calendar.Normalize(date).Format("2006-01-02"),
	}, started, err)
	return err
}

func (s *projectScheduleService) Holidays(ctx context.Context) ([]domain.Holiday, error) {
	started := time.Now()

	var holidays []domain.Holiday
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		holidays, err = repository.NewSQLiteHolidayRepo(tx).List(ctx)
		return err
	})

	observe(ctx, s.observer, "holiday_list", nil, started, err)
	if err != nil {
		return nil, err
	}
	return holidays, nil
}
