package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/graph"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/alexanderramin/stageflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func templateTestSetup(t *testing.T) (*repository.SQLiteStageTemplateRepo, context.Context) {
	t.Helper()
	database := testutil.NewTestDB(t)
	return repository.NewSQLiteStageTemplateRepo(database), context.Background()
}

func seedLinearTemplate(t *testing.T, repo *repository.SQLiteStageTemplateRepo, ctx context.Context, version string) {
	t.Helper()
	require.NoError(t, repo.CreateStage(ctx, testutil.NewTestStageTemplate(version, "A", 1, testutil.WithDuration(5))))
	require.NoError(t, repo.CreateStage(ctx, testutil.NewTestStageTemplate(version, "B", 2, testutil.WithDuration(3))))
	require.NoError(t, repo.CreateStage(ctx, testutil.NewTestStageTemplate(version, "C", 3, testutil.WithOpenEnded())))
	require.NoError(t, repo.CreateEdge(ctx, testutil.NewTestEdge(version, "B", "A")))
	require.NoError(t, repo.CreateEdge(ctx, testutil.NewTestEdge(version, "C", "B")))
}

func TestTemplateRepo_LoadVersion(t *testing.T) {
	repo, ctx := templateTestSetup(t)
	seedLinearTemplate(t, repo, ctx, "v1")

	data, err := repo.LoadVersion(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, data.Stages, 3)
	require.Len(t, data.Edges, 2)

	assert.Equal(t, "A", data.Stages[0].Code, "ordered by sequence")
	require.NotNil(t, data.Stages[0].DurationDays)
	assert.Equal(t, 5, *data.Stages[0].DurationDays)
	assert.Nil(t, data.Stages[2].DurationDays, "open-ended stage round-trips as nil")
}

func TestTemplateRepo_LoadVersionFeedsGraph(t *testing.T) {
	repo, ctx := templateTestSetup(t)
	seedLinearTemplate(t, repo, ctx, "v1")

	data, err := repo.LoadVersion(ctx, "v1")
	require.NoError(t, err)

	g, err := graph.Load(data.Version, data.Stages, data.Edges)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, g.TopologicalOrder())
}

func TestTemplateRepo_LoadUnknownVersion(t *testing.T) {
	repo, ctx := templateTestSetup(t)

	_, err := repo.LoadVersion(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestTemplateRepo_VersionsAreIsolated(t *testing.T) {
	repo, ctx := templateTestSetup(t)
	seedLinearTemplate(t, repo, ctx, "v1")

	// v2 redefines A with a longer duration; v1 is untouched.
	require.NoError(t, repo.CreateStage(ctx, testutil.NewTestStageTemplate("v2", "A", 1, testutil.WithDuration(10))))

	v1, err := repo.LoadVersion(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 5, *v1.Stages[0].DurationDays)

	v2, err := repo.LoadVersion(ctx, "v2")
	require.NoError(t, err)
	require.Len(t, v2.Stages, 1)
	assert.Equal(t, 10, *v2.Stages[0].DurationDays)
}

func TestTemplateRepo_DuplicateStageRejected(t *testing.T) {
	repo, ctx := templateTestSetup(t)

	require.NoError(t, repo.CreateStage(ctx, testutil.NewTestStageTemplate("v1", "A", 1)))
	err := repo.CreateStage(ctx, testutil.NewTestStageTemplate("v1", "A", 2))
	require.Error(t, err, "template rows are immutable per version")
}

func TestTemplateRepo_ListVersions(t *testing.T) {
	repo, ctx := templateTestSetup(t)
	seedLinearTemplate(t, repo, ctx, "v2")
	seedLinearTemplate(t, repo, ctx, "v1")

	versions, err := repo.ListVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, versions)
}
