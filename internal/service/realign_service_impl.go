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

type realignmentService struct {
	uow      db.UnitOfWork
	observer UseCaseObserver
	notifier Notifier
}

// NewRealignmentService creates the realignment engine. The notifier is
// invoked after commit; pass nil for no dispatch.
func NewRealignmentService(uow db.UnitOfWork, observer UseCaseObserver, notifier Notifier) RealignmentService {
	return &realignmentService{
		uow:      uow,
		observer: observerOrNoop(observer),
		notifier: notifierOrNoop(notifier),
	}
}

func (s *realignmentService) Realign(ctx context.Context, req RealignRequest) (*RealignResult, error) {
	started := time.Now()

	var result *RealignResult
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r, err := realignWithin(ctx, tx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	observe(ctx, s.observer, "realign", map[string]any{
		"project_id": req.ProjectID,
		"stage_code": req.StageCode,
		"cause":      string(req.Cause),
	}, started, err)
	if err != nil {
		return nil, err
	}

	notifyShifts(ctx, s.notifier, result.Shifts)
	return result, nil
}

// notifyShifts dispatches one event per shifted stage, out of
// transaction, fire-and-forget.
func notifyShifts(ctx context.Context, n Notifier, shifts []*domain.StageShiftLog) {
	for _, shift := range shifts {
		n.NotifyScheduleEvent(ctx, ScheduleEvent{
			ProjectID:  shift.ProjectID,
			StageCode:  shift.StageCode,
			ChangeKind: string(shift.CauseType),
			DeltaDays:  shift.DeltaDays,
		})
	}
}

// realignWithin runs the whole cascade inside the caller's transaction
// so approval flows can realign atomically with the applied change.
func realignWithin(ctx context.Context, tx db.DBTX, req RealignRequest) (*RealignResult, error) {
	now := time.Now().UTC()
	if req.Now != nil {
		now = req.Now.UTC()
	}
	if req.Cause == "" {
		req.Cause = domain.CauseActualDateChange
	}

	pc, err := loadPlanningContext(ctx, tx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	stageRepo := repository.NewSQLiteProjectStageRepo(tx)
	stages, err := stageRepo.ListByProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]*domain.ProjectStage, len(stages))
	for _, st := range stages {
		byCode[st.StageCode] = st
	}

	changed, ok := byCode[req.StageCode]
	if !ok {
		return nil, fmt.Errorf("stage %s in project %s: %w", req.StageCode, req.ProjectID, domain.ErrNotFound)
	}

	changed, cause, autoLog, err := resolveEffective(changed, req.Cause, now, req.ActorID)
	if err != nil {
		return nil, err
	}

	effective := changed.EffectiveDue()
	if effective == nil {
		return nil, fmt.Errorf("stage %s has no effective date to propagate: %w",
			req.StageCode, domain.ErrConfiguration)
	}

	windows, err := forecast.ComputeSeeded(forecast.SeededInput{
		Input:        pc.forecastInput(pc.Settings.AnchorStart, pc.Settings.AnchorStageCode, pc.Settings.TransitionRule),
		ChangedStage: req.StageCode,
		EffectiveDue: *effective,
		Existing:     storedWindows(stages),
	})
	if err != nil {
		return nil, err
	}

	if autoLog != nil {
		if err := stageRepo.Update(ctx, changed); err != nil {
			return nil, err
		}
		if err := repository.NewSQLiteStageChangeLogRepo(tx).Append(ctx, autoLog); err != nil {
			return nil, err
		}
	}

	shiftRepo := repository.NewSQLiteStageShiftLogRepo(tx)
	result := &RealignResult{Recomputed: len(windows)}

	for _, code := range pc.Graph.DownstreamReachable(req.StageCode) {
		w, ok := windows[code]
		if !ok {
			continue
		}
		st, ok := byCode[code]
		if !ok {
			continue
		}

		newStart := w.Start
		newDue := w.Due
		dueMoved := !sameDate(st.ForecastDue, newDue)
		startMoved := !sameDate(st.ForecastStart, &newStart)
		if !dueMoved && !startMoved {
			continue
		}

		oldDue := st.ForecastDue
		st.ForecastStart = &newStart
		st.ForecastDue = newDue
		st.UpdatedAt = now
		if err := stageRepo.Update(ctx, st); err != nil {
			return nil, err
		}

		if !dueMoved {
			continue
		}
		shift := &domain.StageShiftLog{
			ID:              uuid.New().String(),
			ProjectID:       req.ProjectID,
			StageCode:       code,
			OldForecastDue:  oldDue,
			NewForecastDue:  newDue,
			DeltaDays:       deltaDays(oldDue, newDue),
			CauseStageCode:  req.StageCode,
			CauseType:       cause,
			CreatedOn:       now,
			CreatedByUserID: req.ActorID,
		}
		if err := shiftRepo.Append(ctx, shift); err != nil {
			return nil, err
		}
		result.Shifts = append(result.Shifts, shift)
	}

	return result, nil
}

// resolveEffective enforces the completion invariant and performs the
// system-initiated backfill for legacy rows flagged RequiresBackfill.
// Returns the (possibly corrected) stage, the effective cause, and a
// change log row to append when an auto backfill happened.
func resolveEffective(changed *domain.ProjectStage, cause domain.ShiftCause, now time.Time, actorID string) (*domain.ProjectStage, domain.ShiftCause, *domain.StageChangeLog, error) {
	if changed.Status != domain.StageCompleted || changed.CompletedOn != nil {
		return changed, cause, nil, nil
	}
	if !changed.RequiresBackfill {
		return nil, cause, nil, fmt.Errorf(
			"stage %s completed without completion date and no backfill flag: %w",
			changed.StageCode, domain.ErrInvariantViolation)
	}

	// Legacy row: synthesize the completion date from the last known
	// schedule and record the correction as system-initiated.
	synth := changed.ForecastDue
	if synth == nil {
		synth = changed.PlannedDue
	}
	if synth == nil {
		return nil, cause, nil, fmt.Errorf(
			"stage %s has no date to backfill from: %w", changed.StageCode, domain.ErrConfiguration)
	}
	d := calendar.Normalize(*synth)
	fromDone := changed.CompletedOn
	completed := domain.StageCompleted
	changed.CompletedOn = &d
	changed.RequiresBackfill = false
	changed.UpdatedAt = now

	log := &domain.StageChangeLog{
		ID:              uuid.New().String(),
		ProjectID:       changed.ProjectID,
		StageCode:       changed.StageCode,
		Action:          domain.ActionAutoBackfill,
		FromStatus:      &completed,
		ToStatus:        &completed,
		FromCompletedOn: fromDone,
		ToCompletedOn:   changed.CompletedOn,
		Note:            "completion date synthesized from last forecast",
		ActorID:         actorID,
		CreatedAt:       now,
	}
	return changed, domain.CauseAutoBackfill, log, nil
}
