package forecast

import (
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/calendar"
	"github.com/alexanderramin/stageflow/internal/domain"
	"github.com/alexanderramin/stageflow/internal/graph"
)

// Window is one stage's computed schedule. Due is nil for stages with
// no defined duration (open-ended); downstream stages then fall back to
// Start as the hand-off basis.
type Window struct {
	Start time.Time
	Due   *time.Time
}

// Basis returns the date a successor hangs off: Due when defined,
// otherwise Start.
func (w Window) Basis() time.Time {
	if w.Due != nil {
		return *w.Due
	}
	return w.Start
}

// Input carries everything Compute needs. All fields are value objects
// loaded by the caller; Compute itself performs no I/O and consults no
// clock, so identical inputs always produce identical output.
type Input struct {
	Graph       *graph.Graph
	AnchorDate  time.Time
	AnchorStage string
	// Durations maps stage code to working-day duration. A missing key
	// means the stage is open-ended.
	Durations      map[string]int
	Calendar       *calendar.Calendar
	TransitionRule domain.TransitionRule
	StartPolicy    domain.StartPolicy
}

// Compute walks the graph in topological order and derives a Window for
// every stage. The anchor stage (and any root) starts at the anchor
// date, adjusted forward to the next working day when it falls on a
// non-working one.
func Compute(in Input) (map[string]Window, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	anchorStart := in.Calendar.NextWorkingDay(in.AnchorDate)
	order := in.Graph.TopologicalOrder()
	windows := make(map[string]Window, len(order))

	// Parallel-group members share a start: the latest start any member
	// would get on its own. Floors only move later, so iterate to a
	// fixed point; bounded by the node count.
	groupFloor := make(map[string]time.Time)
	for pass := 0; pass <= len(order); pass++ {
		changed := false
		for _, code := range order {
			w, err := computeWindow(in, code, anchorStart, windows, groupFloor)
			if err != nil {
				return nil, err
			}
			windows[code] = w
		}
		for _, code := range order {
			node, _ := in.Graph.Node(code)
			if node.ParallelGroup == "" {
				continue
			}
			start := windows[code].Start
			if floor, ok := groupFloor[node.ParallelGroup]; !ok || start.After(floor) {
				groupFloor[node.ParallelGroup] = start
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	return windows, nil
}

func validate(in Input) error {
	if in.Graph == nil || in.Calendar == nil {
		return fmt.Errorf("graph and calendar are required: %w", domain.ErrConfiguration)
	}
	if _, ok := in.Graph.Node(in.AnchorStage); !ok {
		return fmt.Errorf("anchor stage %s not in template %s: %w",
			in.AnchorStage, in.Graph.Version(), domain.ErrConfiguration)
	}
	for code, d := range in.Durations {
		if d < 0 {
			return fmt.Errorf("negative duration %d for stage %s: %w", d, code, domain.ErrConfiguration)
		}
	}
	if !domain.ValidTransitionRules[string(in.TransitionRule)] {
		return fmt.Errorf("unknown transition rule %q: %w", in.TransitionRule, domain.ErrConfiguration)
	}
	return nil
}

func computeWindow(in Input, code string, anchorStart time.Time, windows map[string]Window, groupFloor map[string]time.Time) (Window, error) {
	start := anchorStart
	if code != in.AnchorStage {
		preds := in.Graph.Predecessors(code)
		for _, p := range preds {
			pw, ok := windows[p]
			if !ok {
				// Predecessor later in the current pass; topological
				// order guarantees this never happens.
				return Window{}, fmt.Errorf("predecessor %s of %s not yet scheduled: %w",
					p, code, domain.ErrConfiguration)
			}
			candidate := advance(in, pw.Basis())
			if candidate.After(start) {
				start = candidate
			}
		}
	}

	if node, _ := in.Graph.Node(code); node.ParallelGroup != "" {
		if floor, ok := groupFloor[node.ParallelGroup]; ok && floor.After(start) {
			start = floor
		}
	}

	w := Window{Start: start}
	if d, ok := in.Durations[code]; ok {
		due := in.Calendar.AddWorkingDays(start, d)
		w.Due = &due
	}
	return w, nil
}

// advance applies the transition rule to a predecessor's hand-off date.
func advance(in Input, basis time.Time) time.Time {
	switch in.TransitionRule {
	case domain.TransitionSameDay:
		return calendar.Normalize(basis)
	case domain.TransitionNextCalendarDay:
		return calendar.Normalize(basis).AddDate(0, 0, 1)
	default: // next working day
		if in.StartPolicy == domain.StartNextDay {
			return in.Calendar.NextWorkingDay(calendar.Normalize(basis).AddDate(0, 0, 1))
		}
		return in.Calendar.NextWorkingDay(basis)
	}
}
