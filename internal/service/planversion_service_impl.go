package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/calendar"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/forecast"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/google/uuid"
)

type planVersionService struct {
	uow      db.UnitOfWork
	observer UseCaseObserver
}

// NewPlanVersionService creates the draft/submit/approve plan lifecycle.
func NewPlanVersionService(uow db.UnitOfWork, observer UseCaseObserver) PlanVersionService {
	return &planVersionService{
		uow:      uow,
		observer: observerOrNoop(observer),
	}
}

func (s *planVersionService) CreateDraft(ctx context.Context, in CreateDraftInput) (*domain.PlanVersion, error) {
	started := time.Now()
	now := started.UTC()
	if in.Now != nil {
		now = in.Now.UTC()
	}

	var plan *domain.PlanVersion
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		planRepo := repository.NewSQLitePlanVersionRepo(tx)
		versionNo, err := planRepo.NextVersionNo(ctx, in.ProjectID)
		if err != nil {
			return err
		}

		plan = &domain.PlanVersion{
			ID:              uuid.New().String(),
			ProjectID:       in.ProjectID,
			VersionNo:       versionNo,
			Status:          domain.PlanDraft,
			AnchorDate:      calendar.Normalize(in.AnchorDate),
			AnchorStageCode: in.AnchorStageCode,
			SkipWeekends:    in.SkipWeekends,
			TransitionRule:  in.TransitionRule,
			PncApplicable:   in.PncApplicable,
			OwnerUserID:     in.OwnerUserID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := planRepo.Create(ctx, plan); err != nil {
			return err
		}

		plans, err := computeStagePlans(ctx, tx, plan)
		if err != nil {
			return err
		}
		stagePlanRepo := repository.NewSQLiteStagePlanRepo(tx)
		for _, p := range plans {
			if err := stagePlanRepo.Create(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})

	observe(ctx, s.observer, "plan_create_draft", map[string]any{
		"project_id": in.ProjectID,
		"owner":      in.OwnerUserID,
	}, started, err)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *planVersionService) RecomputeDraft(ctx context.Context, planVersionID string) ([]*domain.StagePlan, error) {
	started := time.Now()
	now := started.UTC()

	var plans []*domain.StagePlan
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		planRepo := repository.NewSQLitePlanVersionRepo(tx)
		plan, err := planRepo.GetByID(ctx, planVersionID)
		if err != nil {
			return err
		}
		if plan.Status != domain.PlanDraft {
			return fmt.Errorf("plan %s is %s, only drafts recompute: %w",
				planVersionID, plan.Status, domain.ErrIllegalTransition)
		}

		plans, err = computeStagePlans(ctx, tx, plan)
		if err != nil {
			return err
		}

		stagePlanRepo := repository.NewSQLiteStagePlanRepo(tx)
		if err := stagePlanRepo.DeleteByVersion(ctx, planVersionID); err != nil {
			return err
		}
		for _, p := range plans {
			if err := stagePlanRepo.Create(ctx, p); err != nil {
				return err
			}
		}

		plan.UpdatedAt = now
		return planRepo.Update(ctx, plan)
	})

	observe(ctx, s.observer, "plan_recompute_draft", map[string]any{
		"plan_version_id": planVersionID,
	}, started, err)
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *planVersionService) Submit(ctx context.Context, planVersionID, actorID string) error {
	started := time.Now()
	now := started.UTC()

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		planRepo := repository.NewSQLitePlanVersionRepo(tx)
		plan, err := planRepo.GetByID(ctx, planVersionID)
		if err != nil {
			return err
		}
		if plan.Status != domain.PlanDraft {
			return fmt.Errorf("plan %s is %s, not draft: %w",
				planVersionID, plan.Status, domain.ErrIllegalTransition)
		}
		if plan.OwnerUserID != actorID {
			return fmt.Errorf("plan %s belongs to %s, only the owner submits: %w",
				planVersionID, plan.OwnerUserID, domain.ErrIllegalTransition)
		}

		plan.Status = domain.PlanSubmitted
		plan.SubmittedAt = &now
		plan.UpdatedAt = now
		return planRepo.Update(ctx, plan)
	})

	observe(ctx, s.observer, "plan_submit", map[string]any{
		"plan_version_id": planVersionID,
	}, started, err)
	return err
}

func (s *planVersionService) Approve(ctx context.Context, planVersionID, actorID string) (*domain.ProjectPlanSnapshot, error) {
	started := time.Now()
	now := started.UTC()

	var snapshot *domain.ProjectPlanSnapshot
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		planRepo := repository.NewSQLitePlanVersionRepo(tx)
		plan, err := planRepo.GetByID(ctx, planVersionID)
		if err != nil {
			return err
		}
		if plan.Status != domain.PlanSubmitted {
			return fmt.Errorf("plan %s is %s, not submitted: %w",
				planVersionID, plan.Status, domain.ErrIllegalTransition)
		}

		// Exactly one active plan per project: demote the previous one
		// before promoting this version.
		if prev, err := planRepo.GetActive(ctx, plan.ProjectID); err == nil {
			prev.IsActive = false
			prev.UpdatedAt = now
			if err := planRepo.Update(ctx, prev); err != nil {
				return err
			}
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		plan.Status = domain.PlanApproved
		plan.IsActive = true
		plan.ApprovedAt = &now
		plan.ApprovedBy = actorID
		plan.UpdatedAt = now
		if err := planRepo.Update(ctx, plan); err != nil {
			return err
		}

		stagePlans, err := repository.NewSQLiteStagePlanRepo(tx).ListByVersion(ctx, planVersionID)
		if err != nil {
			return err
		}

		snapshot = &domain.ProjectPlanSnapshot{
			ID:            uuid.New().String(),
			ProjectID:     plan.ProjectID,
			PlanVersionID: plan.ID,
			VersionNo:     plan.VersionNo,
			TakenBy:       actorID,
			TakenAt:       now,
		}
		rows := make([]domain.ProjectPlanSnapshotRow, 0, len(stagePlans))
		for _, p := range stagePlans {
			rows = append(rows, domain.ProjectPlanSnapshotRow{
				ID:           uuid.New().String(),
				SnapshotID:   snapshot.ID,
				StageCode:    p.StageCode,
				PlannedStart: p.PlannedStart,
				PlannedDue:   p.PlannedDue,
			})
		}
		if err := repository.NewSQLiteSnapshotRepo(tx).Create(ctx, snapshot, rows); err != nil {
			return err
		}

		return rebaselineStages(ctx, tx, plan, stagePlans, now)
	})

	observe(ctx, s.observer, "plan_approve", map[string]any{
		"plan_version_id": planVersionID,
	}, started, err)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *planVersionService) Reject(ctx context.Context, planVersionID, actorID, note string) error {
	started := time.Now()
	now := started.UTC()

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		planRepo := repository.NewSQLitePlanVersionRepo(tx)
		plan, err := planRepo.GetByID(ctx, planVersionID)
		if err != nil {
			return err
		}
		if plan.Status != domain.PlanSubmitted {
			return fmt.Errorf("plan %s is %s, not submitted: %w",
				planVersionID, plan.Status, domain.ErrIllegalTransition)
		}

		plan.Status = domain.PlanRejected
		plan.RejectedAt = &now
		plan.RejectedBy = actorID
		plan.RejectionNote = note
		plan.UpdatedAt = now
		return planRepo.Update(ctx, plan)
	})

	observe(ctx, s.observer, "plan_reject", map[string]any{
		"plan_version_id": planVersionID,
	}, started, err)
	return err
}

func (s *planVersionService) Reopen(ctx context.Context, planVersionID, actorID string) error {
	started := time.Now()
	now := started.UTC()

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		planRepo := repository.NewSQLitePlanVersionRepo(tx)
		plan, err := planRepo.GetByID(ctx, planVersionID)
		if err != nil {
			return err
		}
		if plan.Status != domain.PlanRejected {
			return fmt.Errorf("plan %s is %s, only rejected plans reopen: %w",
				planVersionID, plan.Status, domain.ErrIllegalTransition)
		}
		if plan.OwnerUserID != actorID {
			return fmt.Errorf("plan %s belongs to %s, only the owner reopens: %w",
				planVersionID, plan.OwnerUserID, domain.ErrIllegalTransition)
		}

		plan.Status = domain.PlanDraft
		plan.RejectedAt = nil
		plan.RejectedBy = ""
		plan.RejectionNote = ""
		plan.UpdatedAt = now
		return planRepo.Update(ctx, plan)
	})

	observe(ctx, s.observer, "plan_reopen", map[string]any{
		"plan_version_id": planVersionID,
	}, started, err)
	return err
}

// computeStagePlans runs the scheduler under the draft's own calendar
// flags, not the project's live settings, so what-if drafts can explore
// alternative calendars.
func computeStagePlans(ctx context.Context, tx db.DBTX, plan *domain.PlanVersion) ([]*domain.StagePlan, error) {
	settings, err := repository.NewSQLiteScheduleSettingsRepo(tx).Get(ctx, plan.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("loading schedule settings: %w", err)
	}
	draft := *settings
	draft.IncludeWeekends = !plan.SkipWeekends
	draft.TransitionRule = plan.TransitionRule

	pc, err := loadPlanningContextWith(ctx, tx, &draft)
	if err != nil {
		return nil, err
	}

	windows, err := forecast.Compute(pc.forecastInput(plan.AnchorDate, plan.AnchorStageCode, plan.TransitionRule))
	if err != nil {
		return nil, err
	}

	codes := pc.Graph.TopologicalOrder()
	plans := make([]*domain.StagePlan, 0, len(codes))
	for _, code := range codes {
		w := windows[code]
		start := w.Start
		plans = append(plans, &domain.StagePlan{
			ID:            uuid.New().String(),
			PlanVersionID: plan.ID,
			StageCode:     code,
			PlannedStart:  &start,
			PlannedDue:    w.Due,
		})
	}
	return plans, nil
}

// rebaselineStages copies the approved plan's dates onto the project's
// stage rows. Stages already completed keep their actuals untouched;
// forecasts reset to the new baseline.
func rebaselineStages(ctx context.Context, tx db.DBTX, plan *domain.PlanVersion, stagePlans []*domain.StagePlan, now time.Time) error {
	byCode := make(map[string]*domain.StagePlan, len(stagePlans))
	for _, p := range stagePlans {
		byCode[p.StageCode] = p
	}

	stageRepo := repository.NewSQLiteProjectStageRepo(tx)
	stages, err := stageRepo.ListByProject(ctx, plan.ProjectID)
	if err != nil {
		return err
	}
	for _, st := range stages {
		p, ok := byCode[st.StageCode]
		if !ok {
			continue
		}
		st.PlannedStart = p.PlannedStart
		st.PlannedDue = p.PlannedDue
		if st.Status != domain.StageCompleted {
			st.ForecastStart = p.PlannedStart
			st.ForecastDue = p.PlannedDue
		}
		st.UpdatedAt = now
		if err := stageRepo.Update(ctx, st); err != nil {
			return err
		}
	}

	settingsRepo := repository.NewSQLiteScheduleSettingsRepo(tx)
	settings, err := settingsRepo.Get(ctx, plan.ProjectID)
	if err != nil {
		return err
	}
	settings.AnchorStart = plan.AnchorDate
	settings.AnchorStageCode = plan.AnchorStageCode
	settings.TransitionRule = plan.TransitionRule
	settings.IncludeWeekends = !plan.SkipWeekends
	settings.UpdatedAt = now
	return settingsRepo.Upsert(ctx, settings)
}
