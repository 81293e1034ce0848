package forecast

import (
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/calendar"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// SeededInput scopes a recomputation to the stages downstream of one
// changed stage, seeding from that stage's new effective date instead of
// the plan anchor.
type SeededInput struct {
	Input

	// ChangedStage is the upstream stage whose effective date moved.
	// The stage itself is never rescheduled.
	ChangedStage string
	// EffectiveDue is the changed stage's new hand-off date (actual
	// completion when recorded, else its current forecast due).
	EffectiveDue time.Time
	// Existing holds the currently stored windows of stages outside the
	// recompute set, used as the basis for predecessors that are not
	// downstream of the changed stage.
	Existing map[string]Window
}

// ComputeSeeded recomputes windows for every stage downstream-reachable
// from the changed stage, exactly as Compute would, but seeded from the
// changed stage's effective date. Returns windows for the recomputed
// stages only.
func ComputeSeeded(in SeededInput) (map[string]Window, error) {
	if in.Graph == nil || in.Calendar == nil {
		return nil, fmt.Errorf("graph and calendar are required: %w", domain.ErrConfiguration)
	}
	if _, ok := in.Graph.Node(in.ChangedStage); !ok {
		return nil, fmt.Errorf("changed stage %s not in template %s: %w",
			in.ChangedStage, in.Graph.Version(), domain.ErrConfiguration)
	}
	for code, d := range in.Durations {
		if d < 0 {
			return nil, fmt.Errorf("negative duration %d for stage %s: %w", d, code, domain.ErrConfiguration)
		}
	}

	scope := in.Graph.DownstreamReachable(in.ChangedStage)
	inScope := make(map[string]bool, len(scope))
	for _, c := range scope {
		inScope[c] = true
	}

	seed := calendar.Normalize(in.EffectiveDue)
	windows := make(map[string]Window, len(scope))

	groupFloor := make(map[string]time.Time)
	for pass := 0; pass <= len(scope); pass++ {
		changed := false
		for _, code := range scope {
			w, err := seededWindow(in, code, seed, inScope, windows, groupFloor)
			if err != nil {
				return nil, err
			}
			windows[code] = w
		}
		for _, code := range scope {
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

func seededWindow(in SeededInput, code string, seed time.Time, inScope map[string]bool, windows map[string]Window, groupFloor map[string]time.Time) (Window, error) {
	var start time.Time
	for _, p := range in.Graph.Predecessors(code) {
		var basis time.Time
		switch {
		case p == in.ChangedStage:
			basis = seed
		case inScope[p]:
			pw, ok := windows[p]
			if !ok {
				return Window{}, fmt.Errorf("predecessor %s of %s not yet scheduled: %w",
					p, code, domain.ErrConfiguration)
			}
			basis = pw.Basis()
		default:
			pw, ok := in.Existing[p]
			if !ok {
				// No stored window and not in scope: the predecessor
				// never constrained this stage before; skip it.
				continue
			}
			basis = pw.Basis()
		}
		candidate := advance(in.Input, basis)
		if start.IsZero() || candidate.After(start) {
			start = candidate
		}
	}
	if start.IsZero() {
		// Every predecessor lacked a basis; fall back to the seed.
		start = advance(in.Input, seed)
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
