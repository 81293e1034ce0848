package forecast

import (
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/stageflow/internal/calendar"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeSeeded_CascadesFromLateCompletion(t *testing.T) {
	g, durations := linearABC(t)

	// A completed late: its hand-off date is Friday 2024-01-12 instead of
	// the forecast Monday 2024-01-08.
	windows, err := ComputeSeeded(SeededInput{
		Input: Input{
			Graph:          g,
			AnchorDate:     date(2024, time.January, 1),
			AnchorStage:    "A",
			Durations:      durations,
			Calendar:       mustCalendar(t, calendar.Config{}),
			TransitionRule: domain.TransitionNextWorkingDay,
			StartPolicy:    domain.StartSameDay,
		},
		ChangedStage: "A",
		EffectiveDue: date(2024, time.January, 12),
	})
	require.NoError(t, err)

	// Only the downstream stages are recomputed.
	require.Len(t, windows, 2)
	assert.NotContains(t, windows, "A")

	assert.Equal(t, date(2024, time.January, 12), windows["B"].Start)
	require.NotNil(t, windows["B"].Due)
	assert.Equal(t, date(2024, time.January, 17), *windows["B"].Due)

	assert.Equal(t, date(2024, time.January, 17), windows["C"].Start)
	require.NotNil(t, windows["C"].Due)
	assert.Equal(t, date(2024, time.January, 19), *windows["C"].Due)
}

func TestComputeSeeded_MatchesComputeWhenNothingMoved(t *testing.T) {
	g, durations := linearABC(t)
	in := Input{
		Graph:          g,
		AnchorDate:     date(2024, time.January, 1),
		AnchorStage:    "A",
		Durations:      durations,
		Calendar:       mustCalendar(t, calendar.Config{}),
		TransitionRule: domain.TransitionNextWorkingDay,
		StartPolicy:    domain.StartSameDay,
	}

	full, err := Compute(in)
	require.NoError(t, err)

	// Seeding with A's unchanged forecast due must reproduce the stored
	// windows exactly; the downstream realign pass then writes nothing.
	seeded, err := ComputeSeeded(SeededInput{
		Input:        in,
		ChangedStage: "A",
		EffectiveDue: *full["A"].Due,
		Existing:     full,
	})
	require.NoError(t, err)

	for _, code := range []string{"B", "C"} {
		assert.Equal(t, full[code], seeded[code], "stage %s", code)
	}
}

func TestComputeSeeded_OutOfScopePredecessorUsesStoredWindow(t *testing.T) {
	// Diamond with an independent feeder: B depends on A, D depends on
	// both B and Z. Z is not downstream of A, so its stored window
	// constrains D.
	zDue := date(2024, time.January, 30)
	g := mustGraph(t,
		[]domain.StageTemplate{stageT("A", 1), stageT("Z", 2), stageT("B", 3), stageT("D", 4)},
		[]domain.StageDependencyTemplate{edgeT("B", "A"), edgeT("D", "B"), edgeT("D", "Z")},
	)

	windows, err := ComputeSeeded(SeededInput{
		Input: Input{
			Graph:          g,
			AnchorDate:     date(2024, time.January, 1),
			AnchorStage:    "A",
			Durations:      map[string]int{"A": 5, "Z": 20, "B": 3, "D": 2},
			Calendar:       mustCalendar(t, calendar.Config{}),
			TransitionRule: domain.TransitionNextWorkingDay,
			StartPolicy:    domain.StartSameDay,
		},
		ChangedStage: "A",
		EffectiveDue: date(2024, time.January, 12),
		Existing: map[string]Window{
			"Z": {Start: date(2024, time.January, 1), Due: &zDue},
		},
	})
	require.NoError(t, err)

	assert.NotContains(t, windows, "Z", "independent feeder is not recomputed")
	assert.Equal(t, zDue, windows["D"].Start, "slow stored feeder still gates D")
}

func TestComputeSeeded_UnknownChangedStage(t *testing.T) {
	g, durations := linearABC(t)

	_, err := ComputeSeeded(SeededInput{
		Input: Input{
			Graph:          g,
			AnchorDate:     date(2024, time.January, 1),
			AnchorStage:    "A",
			Durations:      durations,
			Calendar:       mustCalendar(t, calendar.Config{}),
			TransitionRule: domain.TransitionNextWorkingDay,
		},
		ChangedStage: "GHOST",
		EffectiveDue: date(2024, time.January, 12),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestComputeSeeded_TerminalStage(t *testing.T) {
	g, durations := linearABC(t)

	// C has no successors: nothing to recompute.
	windows, err := ComputeSeeded(SeededInput{
		Input: Input{
			Graph:          g,
			AnchorDate:     date(2024, time.January, 1),
			AnchorStage:    "A",
			Durations:      durations,
			Calendar:       mustCalendar(t, calendar.Config{}),
			TransitionRule: domain.TransitionNextWorkingDay,
		},
		ChangedStage: "C",
		EffectiveDue: date(2024, time.February, 1),
	})
	require.NoError(t, err)
	assert.Empty(t, windows)
}
