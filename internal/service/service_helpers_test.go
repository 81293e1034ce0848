package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/alexanderramin/stageflow/internal/service"
	"github.com/alexanderramin/stageflow/internal/testutil"
	"github.com/stretchr/testify/require"
)

// serviceFixture wires an in-memory database, a unit of work, and a
// seeded linear template A(5) -> B(3) -> C(2) under version "v1".
type serviceFixture struct {
	t        *testing.T
	database *sql.DB
	uow      db.UnitOfWork
	ctx      context.Context
}

func serviceTestSetup(t *testing.T) *serviceFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	f := &serviceFixture{
		t:        t,
		database: database,
		uow:      testutil.NewTestUoW(database),
		ctx:      context.Background(),
	}

	templates := repository.NewSQLiteStageTemplateRepo(database)
	require.NoError(t, templates.CreateStage(f.ctx, testutil.NewTestStageTemplate("v1", "A", 1, testutil.WithDuration(5))))
	require.NoError(t, templates.CreateStage(f.ctx, testutil.NewTestStageTemplate("v1", "B", 2, testutil.WithDuration(3))))
	require.NoError(t, templates.CreateStage(f.ctx, testutil.NewTestStageTemplate("v1", "C", 3, testutil.WithDuration(2))))
	require.NoError(t, templates.CreateEdge(f.ctx, testutil.NewTestEdge("v1", "B", "A")))
	require.NoError(t, templates.CreateEdge(f.ctx, testutil.NewTestEdge("v1", "C", "B")))
	return f
}

// initProject onboards projectID against template v1 anchored at
// 2024-01-01 on stage A and returns the created stage rows.
func (f *serviceFixture) initProject(projectID string, includeWeekends bool) []*domain.ProjectStage {
	f.t.Helper()
	svc := service.NewProjectScheduleService(f.uow, nil)
	stages, err := svc.InitProject(f.ctx, service.InitProjectInput{
		ProjectID:       projectID,
		TemplateVersion: "v1",
		AnchorStart:     testutil.Date(2024, time.January, 1),
		AnchorStageCode: "A",
		IncludeWeekends: includeWeekends,
		StartPolicy:     domain.StartSameDay,
		TransitionRule:  domain.TransitionNextWorkingDay,
		ActorID:         "admin-1",
	})
	require.NoError(f.t, err)
	return stages
}

func (f *serviceFixture) stage(projectID, code string) *domain.ProjectStage {
	f.t.Helper()
	s, err := repository.NewSQLiteProjectStageRepo(f.database).GetByCode(f.ctx, projectID, code)
	require.NoError(f.t, err)
	return s
}

// completeStage marks a stage completed through the repository, below
// the service layer, to stage preconditions for realignment tests.
func (f *serviceFixture) completeStage(projectID, code string, on time.Time) {
	f.t.Helper()
	repo := repository.NewSQLiteProjectStageRepo(f.database)
	s, err := repo.GetByCode(f.ctx, projectID, code)
	require.NoError(f.t, err)
	s.Status = domain.StageCompleted
	s.CompletedOn = &on
	s.UpdatedAt = time.Now().UTC()
	require.NoError(f.t, repo.Update(f.ctx, s))
}

func (f *serviceFixture) shiftLogs(projectID string) []*domain.StageShiftLog {
	f.t.Helper()
	logs, err := repository.NewSQLiteStageShiftLogRepo(f.database).ListByProject(f.ctx, projectID)
	require.NoError(f.t, err)
	return logs
}

func (f *serviceFixture) changeLogs(projectID string) []*domain.StageChangeLog {
	f.t.Helper()
	logs, err := repository.NewSQLiteStageChangeLogRepo(f.database).ListByProject(f.ctx, projectID)
	require.NoError(f.t, err)
	return logs
}

// captureNotifier records dispatched schedule events.
type captureNotifier struct {
	events []service.ScheduleEvent
}

func (n *captureNotifier) NotifyScheduleEvent(_ context.Context, e service.ScheduleEvent) {
	n.events = append(n.events, e)
}
