package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/alexanderramin/stageflow/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingRequest(projectID, stageCode string) *domain.StageChangeRequest {
	completed := domain.StageCompleted
	done := testutil.Date(2024, time.February, 1)
	return &domain.StageChangeRequest{
		ID:                   uuid.New().String(),
		ProjectID:            projectID,
		StageCode:            stageCode,
		DecisionStatus:       domain.DecisionPending,
		RequestedStatus:      &completed,
		RequestedCompletedOn: &done,
		Reason:               "work finished early",
		RequestedBy:          "user-1",
		RequestedAt:          time.Now().UTC().Truncate(time.Second),
	}
}

func TestChangeRequestRepo_CreateAndGet(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteStageChangeRequestRepo(database)
	ctx := context.Background()

	req := newPendingRequest("p1", "FOUNDATION")
	require.NoError(t, repo.Create(ctx, req))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionPending, got.DecisionStatus)
	require.NotNil(t, got.RequestedStatus)
	assert.Equal(t, domain.StageCompleted, *got.RequestedStatus)
	require.NotNil(t, got.RequestedCompletedOn)
	assert.Equal(t, testutil.Date(2024, time.February, 1), *got.RequestedCompletedOn)
	assert.Nil(t, got.RequestedActualStart)
	assert.Nil(t, got.DecidedAt)
}

func TestChangeRequestRepo_OnePendingPerStage(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteStageChangeRequestRepo(database)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newPendingRequest("p1", "FOUNDATION")))

	err := repo.Create(ctx, newPendingRequest("p1", "FOUNDATION"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIllegalTransition))

	// Other stages and projects are unaffected.
	require.NoError(t, repo.Create(ctx, newPendingRequest("p1", "FRAMING")))
	require.NoError(t, repo.Create(ctx, newPendingRequest("p2", "FOUNDATION")))
}

func TestChangeRequestRepo_DecidedFreesPendingSlot(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteStageChangeRequestRepo(database)
	ctx := context.Background()

	req := newPendingRequest("p1", "FOUNDATION")
	require.NoError(t, repo.Create(ctx, req))

	now := time.Now().UTC().Truncate(time.Second)
	req.DecisionStatus = domain.DecisionRejected
	req.DecidedBy = "approver-1"
	req.DecidedAt = &now
	req.DecisionNote = "needs evidence"
	require.NoError(t, repo.Update(ctx, req))

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionRejected, got.DecisionStatus)
	assert.Equal(t, "needs evidence", got.DecisionNote)

	_, err = repo.GetPending(ctx, "p1", "FOUNDATION")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, repo.Create(ctx, newPendingRequest("p1", "FOUNDATION")),
		"a decided request no longer blocks new submissions")
}

func TestShiftLogRepo_AppendAndList(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteStageShiftLogRepo(database)
	ctx := context.Background()

	oldDue := testutil.Date(2024, time.January, 11)
	newDue := testutil.Date(2024, time.January, 15)
	shift := &domain.StageShiftLog{
		ID:              uuid.New().String(),
		ProjectID:       "p1",
		StageCode:       "FRAMING",
		OldForecastDue:  &oldDue,
		NewForecastDue:  &newDue,
		DeltaDays:       4,
		CauseStageCode:  "FOUNDATION",
		CauseType:       domain.CauseActualDateChange,
		CreatedOn:       time.Now().UTC().Truncate(time.Second),
		CreatedByUserID: "user-1",
	}
	require.NoError(t, repo.Append(ctx, shift))

	logs, err := repo.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 4, logs[0].DeltaDays)
	assert.Equal(t, "FOUNDATION", logs[0].CauseStageCode)
	assert.Equal(t, domain.CauseActualDateChange, logs[0].CauseType)
	require.NotNil(t, logs[0].OldForecastDue)
	assert.Equal(t, oldDue, *logs[0].OldForecastDue)

	byStage, err := repo.ListByStage(ctx, "p1", "FRAMING")
	require.NoError(t, err)
	assert.Len(t, byStage, 1)

	empty, err := repo.ListByStage(ctx, "p1", "FOUNDATION")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestChangeLogRepo_AppendAndList(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteStageChangeLogRepo(database)
	ctx := context.Background()

	from := domain.StageInProgress
	to := domain.StageCompleted
	done := testutil.Date(2024, time.February, 1)
	entry := &domain.StageChangeLog{
		ID:            uuid.New().String(),
		ProjectID:     "p1",
		StageCode:     "FOUNDATION",
		RequestID:     "req-1",
		Action:        domain.ActionApplied,
		FromStatus:    &from,
		ToStatus:      &to,
		ToCompletedOn: &done,
		Note:          "approved by site manager",
		ActorID:       "approver-1",
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Append(ctx, entry))

	logs, err := repo.ListByStage(ctx, "p1", "FOUNDATION")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionApplied, logs[0].Action)
	require.NotNil(t, logs[0].FromStatus)
	assert.Equal(t, domain.StageInProgress, *logs[0].FromStatus)
	require.NotNil(t, logs[0].ToStatus)
	assert.Equal(t, domain.StageCompleted, *logs[0].ToStatus)
	assert.Nil(t, logs[0].FromCompletedOn)
	require.NotNil(t, logs[0].ToCompletedOn)
	assert.Equal(t, done, *logs[0].ToCompletedOn)
}

func TestChangeLogRepo_RejectsUnknownAction(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteStageChangeLogRepo(database)

	entry := &domain.StageChangeLog{
		ID:        uuid.New().String(),
		ProjectID: "p1",
		StageCode: "FOUNDATION",
		Action:    "guessed",
		ActorID:   "user-1",
		CreatedAt: time.Now().UTC(),
	}
	err := repo.Append(context.Background(), entry)
	require.Error(t, err, "the action set is closed")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
