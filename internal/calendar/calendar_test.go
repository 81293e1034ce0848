package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func workdayCalendar(t *testing.T) *Calendar {
	t.Helper()
	c, err := New(Config{})
	require.NoError(t, err)
	return c
}

func TestNormalize(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	in := time.Date(2024, time.March, 15, 18, 45, 12, 999, loc)
	got := Normalize(in)

	assert.Equal(t, date(2024, time.March, 15), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestNew_HolidaySetRequired(t *testing.T) {
	_, err := New(Config{SkipHolidays: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	// A loaded-but-empty set is valid.
	_, err = New(Config{SkipHolidays: true, Holidays: []domain.Holiday{}})
	require.NoError(t, err)
}

func TestIsWorkingDay(t *testing.T) {
	cal := workdayCalendar(t)

	assert.True(t, cal.IsWorkingDay(date(2024, time.January, 1)), "Monday")
	assert.True(t, cal.IsWorkingDay(date(2024, time.January, 5)), "Friday")
	assert.False(t, cal.IsWorkingDay(date(2024, time.January, 6)), "Saturday")
	assert.False(t, cal.IsWorkingDay(date(2024, time.January, 7)), "Sunday")
}

func TestIsWorkingDay_IncludeWeekends(t *testing.T) {
	cal, err := New(Config{IncludeWeekends: true})
	require.NoError(t, err)

	assert.True(t, cal.IsWorkingDay(date(2024, time.January, 6)), "Saturday counts")
	assert.True(t, cal.IsWorkingDay(date(2024, time.January, 7)), "Sunday counts")
}

func TestIsWorkingDay_Holidays(t *testing.T) {
	cal, err := New(Config{
		SkipHolidays: true,
		Holidays:     []domain.Holiday{{Date: date(2024, time.January, 1), Name: "New Year"}},
	})
	require.NoError(t, err)

	assert.False(t, cal.IsWorkingDay(date(2024, time.January, 1)))
	assert.True(t, cal.IsWorkingDay(date(2024, time.January, 2)))
}

func TestNextWorkingDay(t *testing.T) {
	cal := workdayCalendar(t)

	// A working day maps to itself.
	assert.Equal(t, date(2024, time.January, 3), cal.NextWorkingDay(date(2024, time.January, 3)))
	// Saturday rolls to Monday.
	assert.Equal(t, date(2024, time.January, 8), cal.NextWorkingDay(date(2024, time.January, 6)))
	// Sunday rolls to Monday.
	assert.Equal(t, date(2024, time.January, 8), cal.NextWorkingDay(date(2024, time.January, 7)))
}

func TestNextWorkingDay_HolidayRun(t *testing.T) {
	cal, err := New(Config{
		SkipHolidays: true,
		Holidays: []domain.Holiday{
			{Date: date(2024, time.December, 25)},
			{Date: date(2024, time.December, 26)},
		},
	})
	require.NoError(t, err)

	// Wed 25 and Thu 26 are holidays, so the next working day is Fri 27.
	assert.Equal(t, date(2024, time.December, 27), cal.NextWorkingDay(date(2024, time.December, 25)))
}

func TestAddWorkingDays(t *testing.T) {
	cal := workdayCalendar(t)

	// Monday 2024-01-01 + 5 working days: the start day is not counted,
	// the weekend is skipped, landing on Monday 2024-01-08.
	got := cal.AddWorkingDays(date(2024, time.January, 1), 5)
	assert.Equal(t, date(2024, time.January, 8), got)
}

func TestAddWorkingDays_Zero(t *testing.T) {
	cal := workdayCalendar(t)
	assert.Equal(t, date(2024, time.January, 6), cal.AddWorkingDays(date(2024, time.January, 6), 0))
}

func TestAddWorkingDays_Negative(t *testing.T) {
	cal := workdayCalendar(t)

	// Monday 2024-01-08 - 5 working days walks back across the weekend.
	got := cal.AddWorkingDays(date(2024, time.January, 8), -5)
	assert.Equal(t, date(2024, time.January, 1), got)
}

func TestAddWorkingDays_IncludeWeekends(t *testing.T) {
	cal, err := New(Config{IncludeWeekends: true})
	require.NoError(t, err)

	got := cal.AddWorkingDays(date(2024, time.January, 1), 5)
	assert.Equal(t, date(2024, time.January, 6), got, "plain calendar arithmetic when weekends count")
}

func TestAddWorkingDays_SkipsHolidays(t *testing.T) {
	cal, err := New(Config{
		SkipHolidays: true,
		Holidays:     []domain.Holiday{{Date: date(2024, time.January, 3)}},
	})
	require.NoError(t, err)

	// Mon 1 + 3 working days: Tue 2, (Wed 3 holiday), Thu 4, Fri 5.
	got := cal.AddWorkingDays(date(2024, time.January, 1), 3)
	assert.Equal(t, date(2024, time.January, 5), got)
}
