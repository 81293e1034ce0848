package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/stageflow/internal/calendar"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/repository"
	"github.com/alexanderramin/stageflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolidayRepo_UpsertAndList(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteHolidayRepo(database)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &domain.Holiday{Date: testutil.Date(2024, time.December, 25), Name: "Christmas"}))
	require.NoError(t, repo.Upsert(ctx, &domain.Holiday{Date: testutil.Date(2024, time.January, 1), Name: "New Year"}))

	holidays, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, holidays, 2)
	assert.Equal(t, "New Year", holidays[0].Name, "ordered by date")
	assert.Equal(t, testutil.Date(2024, time.December, 25), holidays[1].Date)
}

func TestHolidayRepo_UpsertReplacesName(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteHolidayRepo(database)
	ctx := context.Background()

	day := testutil.Date(2024, time.May, 1)
	require.NoError(t, repo.Upsert(ctx, &domain.Holiday{Date: day, Name: "May Day"}))
	require.NoError(t, repo.Upsert(ctx, &domain.Holiday{Date: day, Name: "Labour Day"}))

	holidays, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, holidays, 1)
	assert.Equal(t, "Labour Day", holidays[0].Name)
}

func TestHolidayRepo_EmptyListIsLoaded(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteHolidayRepo(database)

	holidays, err := repo.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, holidays, "empty set must be distinguishable from never-loaded")

	// The loaded-but-empty set satisfies the calendar's requirement.
	_, err = calendar.New(calendar.Config{SkipHolidays: true, Holidays: holidays})
	require.NoError(t, err)
}

func TestScheduleSettingsRepo_RoundTrip(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteScheduleSettingsRepo(database)
	ctx := context.Background()

	settings := testutil.NewTestSettings("p1", "v1", testutil.Date(2024, time.January, 1), "A",
		testutil.WithSkipHolidays(),
		testutil.WithStartPolicy(domain.StartNextDay),
	)
	require.NoError(t, repo.Upsert(ctx, settings))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.TemplateVersion)
	assert.False(t, got.IncludeWeekends)
	assert.True(t, got.SkipHolidays)
	assert.Equal(t, domain.StartNextDay, got.StartPolicy)
	assert.Equal(t, domain.TransitionNextWorkingDay, got.TransitionRule)
	assert.Equal(t, testutil.Date(2024, time.January, 1), got.AnchorStart)
	assert.Equal(t, "A", got.AnchorStageCode)
}

func TestScheduleSettingsRepo_GetNotFound(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteScheduleSettingsRepo(database)

	_, err := repo.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestScheduleSettingsRepo_UpsertUpdates(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteScheduleSettingsRepo(database)
	ctx := context.Background()

	settings := testutil.NewTestSettings("p1", "v1", testutil.Date(2024, time.January, 1), "A")
	require.NoError(t, repo.Upsert(ctx, settings))

	settings.AnchorStart = testutil.Date(2024, time.March, 1)
	settings.TransitionRule = domain.TransitionSameDay
	require.NoError(t, repo.Upsert(ctx, settings))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, testutil.Date(2024, time.March, 1), got.AnchorStart)
	assert.Equal(t, domain.TransitionSameDay, got.TransitionRule)
}
