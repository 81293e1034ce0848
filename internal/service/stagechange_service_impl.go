package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/calendar"
	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/google/uuid"
)

type stageChangeService struct {
	uow      db.UnitOfWork
	observer UseCaseObserver
	notifier Notifier
}

// NewStageChangeService creates the request/approval workflow gating
// manual stage edits.
func NewStageChangeService(uow db.UnitOfWork, observer UseCaseObserver, notifier Notifier) StageChangeService {
	return &stageChangeService{
		uow:      uow,
		observer: observerOrNoop(observer),
		notifier: notifierOrNoop(notifier),
	}
}

func (s *stageChangeService) Submit(ctx context.Context, in ChangeRequestInput) (*domain.StageChangeRequest, error) {
	started := time.Now()
	now := started.UTC()
	if in.Now != nil {
		now = in.Now.UTC()
	}

	req := &domain.StageChangeRequest{
		ID:                   uuid.New().String(),
		ProjectID:            in.ProjectID,
		StageCode:            in.StageCode,
		DecisionStatus:       domain.DecisionPending,
		RequestedStatus:      in.RequestedStatus,
		RequestedActualStart: in.RequestedActualStart,
		RequestedCompletedOn: in.RequestedCompletedOn,
		Reason:               in.Reason,
		RequestedBy:          in.ActorID,
		RequestedAt:          now,
	}

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		stage, err := repository.NewSQLiteProjectStageRepo(tx).GetByCode(ctx, in.ProjectID, in.StageCode)
		if err != nil {
			return err
		}
		if err := repository.NewSQLiteStageChangeRequestRepo(tx).Create(ctx, req); err != nil {
			return err
		}
		return repository.NewSQLiteStageChangeLogRepo(tx).Append(ctx, &domain.StageChangeLog{
			ID:              uuid.New().String(),
			ProjectID:       in.ProjectID,
			StageCode:       in.StageCode,
			RequestID:       req.ID,
			Action:          domain.ActionRequested,
			FromStatus:      &stage.Status,
			ToStatus:        in.RequestedStatus,
			FromActualStart: stage.ActualStart,
			ToActualStart:   in.RequestedActualStart,
			FromCompletedOn: stage.CompletedOn,
			ToCompletedOn:   in.RequestedCompletedOn,
			Note:            in.Reason,
			ActorID:         in.ActorID,
			CreatedAt:       now,
		})
	})

	observe(ctx, s.observer, "stage_change_submit", map[string]any{
		"project_id": in.ProjectID,
		"stage_code": in.StageCode,
	}, started, err)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *stageChangeService) Approve(ctx context.Context, requestID, actorID, note string) (*RealignResult, error) {
	started := time.Now()
	now := started.UTC()

	var result *RealignResult
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		reqRepo := repository.NewSQLiteStageChangeRequestRepo(tx)
		req, err := reqRepo.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.DecisionStatus != domain.DecisionPending {
			return fmt.Errorf("request %s is %s, not pending: %w",
				requestID, req.DecisionStatus, domain.ErrIllegalTransition)
		}

		req.DecisionStatus = domain.DecisionApproved
		req.DecidedBy = actorID
		req.DecidedAt = &now
		req.DecisionNote = note
		if err := reqRepo.Update(ctx, req); err != nil {
			return err
		}

		logRepo := repository.NewSQLiteStageChangeLogRepo(tx)
		if err := logRepo.Append(ctx, &domain.StageChangeLog{
			ID:        uuid.New().String(),
			ProjectID: req.ProjectID,
			StageCode: req.StageCode,
			RequestID: req.ID,
			Action:    domain.ActionApproved,
			Note:      note,
			ActorID:   actorID,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		r, err := applyAndRealign(ctx, tx, applyInput{
			ProjectID:   req.ProjectID,
			StageCode:   req.StageCode,
			Status:      req.RequestedStatus,
			ActualStart: req.RequestedActualStart,
			CompletedOn: req.RequestedCompletedOn,
			RequestID:   req.ID,
			Action:      domain.ActionApplied,
			Cause:       domain.CauseActualDateChange,
			ActorID:     actorID,
			Now:         now,
		})
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	observe(ctx, s.observer, "stage_change_approve", map[string]any{
		"request_id": requestID,
	}, started, err)
	if err != nil {
		return nil, err
	}

	notifyShifts(ctx, s.notifier, result.Shifts)
	return result, nil
}

func (s *stageChangeService) Reject(ctx context.Context, requestID, actorID, note string) error {
	return s.decide(ctx, requestID, actorID, note, domain.DecisionRejected, domain.ActionRejected, "stage_change_reject")
}

func (s *stageChangeService) Supersede(ctx context.Context, requestID, actorID, note string) error {
	return s.decide(ctx, requestID, actorID, note, domain.DecisionSuperseded, domain.ActionSuperseded, "stage_change_supersede")
}

func (s *stageChangeService) decide(ctx context.Context, requestID, actorID, note string, decision domain.DecisionStatus, action domain.ChangeAction, useCase string) error {
	started := time.Now()
	now := started.UTC()

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		reqRepo := repository.NewSQLiteStageChangeRequestRepo(tx)
		req, err := reqRepo.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.DecisionStatus != domain.DecisionPending {
			return fmt.Errorf("request %s is %s, not pending: %w",
				requestID, req.DecisionStatus, domain.ErrIllegalTransition)
		}

		req.DecisionStatus = decision
		req.DecidedBy = actorID
		req.DecidedAt = &now
		req.DecisionNote = note
		if err := reqRepo.Update(ctx, req); err != nil {
			return err
		}

		return repository.NewSQLiteStageChangeLogRepo(tx).Append(ctx, &domain.StageChangeLog{
			ID:        uuid.New().String(),
			ProjectID: req.ProjectID,
			StageCode: req.StageCode,
			RequestID: req.ID,
			Action:    action,
			Note:      note,
			ActorID:   actorID,
			CreatedAt: now,
		})
	})

	observe(ctx, s.observer, useCase, map[string]any{"request_id": requestID}, started, err)
	return err
}

func (s *stageChangeService) DirectApply(ctx context.Context, in ChangeRequestInput) (*RealignResult, error) {
	return s.privilegedApply(ctx, in, domain.ActionDirectApply, domain.CauseManualOverride, "stage_change_direct_apply")
}

func (s *stageChangeService) UpdateActuals(ctx context.Context, in ChangeRequestInput) (*RealignResult, error) {
	// Date-only path: a requested status is ignored by contract.
	in.RequestedStatus = nil
	return s.privilegedApply(ctx, in, domain.ActionActualsUpdated, domain.CauseActualDateChange, "stage_change_update_actuals")
}

func (s *stageChangeService) privilegedApply(ctx context.Context, in ChangeRequestInput, action domain.ChangeAction, cause domain.ShiftCause, useCase string) (*RealignResult, error) {
	started := time.Now()
	now := started.UTC()
	if in.Now != nil {
		now = in.Now.UTC()
	}

	var result *RealignResult
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r, err := applyAndRealign(ctx, tx, applyInput{
			ProjectID:   in.ProjectID,
			StageCode:   in.StageCode,
			Status:      in.RequestedStatus,
			ActualStart: in.RequestedActualStart,
			CompletedOn: in.RequestedCompletedOn,
			Action:      action,
			Cause:       cause,
			Note:        in.Reason,
			ActorID:     in.ActorID,
			Now:         now,
		})
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	observe(ctx, s.observer, useCase, map[string]any{
		"project_id": in.ProjectID,
		"stage_code": in.StageCode,
	}, started, err)
	if err != nil {
		return nil, err
	}

	notifyShifts(ctx, s.notifier, result.Shifts)
	return result, nil
}

func (s *stageChangeService) Backfill(ctx context.Context, projectID, stageCode string, completedOn time.Time, actorID string) (*RealignResult, error) {
	started := time.Now()
	now := started.UTC()
	done := calendar.Normalize(completedOn)

	var result *RealignResult
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		stageRepo := repository.NewSQLiteProjectStageRepo(tx)
		stage, err := stageRepo.GetByCode(ctx, projectID, stageCode)
		if err != nil {
			return err
		}
		if stage.Status != domain.StageCompleted {
			return fmt.Errorf("backfill requires a completed stage, %s is %s: %w",
				stageCode, stage.Status, domain.ErrIllegalTransition)
		}

		fromDone := stage.CompletedOn
		stage.CompletedOn = &done
		stage.RequiresBackfill = false
		stage.UpdatedAt = now
		if err := stageRepo.Update(ctx, stage); err != nil {
			return err
		}

		completed := domain.StageCompleted
		if err := repository.NewSQLiteStageChangeLogRepo(tx).Append(ctx, &domain.StageChangeLog{
			ID:              uuid.New().String(),
			ProjectID:       projectID,
			StageCode:       stageCode,
			Action:          domain.ActionBackfill,
			FromStatus:      &completed,
			ToStatus:        &completed,
			FromCompletedOn: fromDone,
			ToCompletedOn:   stage.CompletedOn,
			ActorID:         actorID,
			CreatedAt:       now,
		}); err != nil {
			return err
		}

		r, err := realignWithin(ctx, tx, RealignRequest{
			ProjectID: projectID,
			StageCode: stageCode,
			Cause:     domain.CauseBackfill,
			ActorID:   actorID,
			Now:       &now,
		})
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	observe(ctx, s.observer, "stage_change_backfill", map[string]any{
		"project_id": projectID,
		"stage_code": stageCode,
	}, started, err)
	if err != nil {
		return nil, err
	}

	notifyShifts(ctx, s.notifier, result.Shifts)
	return result, nil
}

// applyInput is one privileged or approved stage mutation.
type applyInput struct {
	ProjectID   string
	StageCode   string
	Status      *domain.StageStatus
	ActualStart *time.Time
	CompletedOn *time.Time
	RequestID   string
	Action      domain.ChangeAction
	Cause       domain.ShiftCause
	Note        string
	ActorID     string
	Now         time.Time
}

// applyAndRealign mutates the stage, appends the audit row, and runs
// the downstream cascade, all inside the caller's transaction.
func applyAndRealign(ctx context.Context, tx db.DBTX, in applyInput) (*RealignResult, error) {
	stageRepo := repository.NewSQLiteProjectStageRepo(tx)
	stage, err := stageRepo.GetByCode(ctx, in.ProjectID, in.StageCode)
	if err != nil {
		return nil, err
	}

	fromStatus := stage.Status
	fromStart := stage.ActualStart
	fromDone := stage.CompletedOn

	if in.Status != nil {
		stage.Status = *in.Status
	}
	if in.ActualStart != nil {
		d := calendar.Normalize(*in.ActualStart)
		stage.ActualStart = &d
	}
	if in.CompletedOn != nil {
		d := calendar.Normalize(*in.CompletedOn)
		stage.CompletedOn = &d
	}
	if !stage.CompletionConsistent() {
		return nil, fmt.Errorf("stage %s would be completed without a completion date: %w",
			in.StageCode, domain.ErrInvariantViolation)
	}

	stage.UpdatedAt = in.Now
	if err := stageRepo.Update(ctx, stage); err != nil {
		return nil, err
	}

	if err := repository.NewSQLiteStageChangeLogRepo(tx).Append(ctx, &domain.StageChangeLog{
		ID:              uuid.New().String(),
		ProjectID:       in.ProjectID,
		StageCode:       in.StageCode,
		RequestID:       in.RequestID,
		Action:          in.Action,
		FromStatus:      &fromStatus,
		ToStatus:        &stage.Status,
		FromActualStart: fromStart,
		ToActualStart:   stage.ActualStart,
		FromCompletedOn: fromDone,
		ToCompletedOn:   stage.CompletedOn,
		Note:            in.Note,
		ActorID:         in.ActorID,
		CreatedAt:       in.Now,
	}); err != nil {
		return nil, err
	}

	return realignWithin(ctx, tx, RealignRequest{
		ProjectID: in.ProjectID,
		StageCode: in.StageCode,
		Cause:     in.Cause,
		ActorID:   in.ActorID,
		Now:       &in.Now,
	})
}
