package domain

type StageStatus string

const (
	StageNotStarted StageStatus = "not_started"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
	StageOnHold     StageStatus = "on_hold"
	StageSkipped    StageStatus = "skipped"
)

type PlanVersionStatus string

const (
	PlanDraft     PlanVersionStatus = "draft"
	PlanSubmitted PlanVersionStatus = "submitted"
	PlanApproved  PlanVersionStatus = "approved"
	PlanRejected  PlanVersionStatus = "rejected"
)

type DecisionStatus string

const (
	DecisionPending    DecisionStatus = "pending"
	DecisionApproved   DecisionStatus = "approved"
	DecisionRejected   DecisionStatus = "rejected"
	DecisionSuperseded DecisionStatus = "superseded"
)

// ChangeAction is the closed set of audit actions on stage change logs.
type ChangeAction string

const (
	ActionRequested      ChangeAction = "requested"
	ActionApproved       ChangeAction = "approved"
	ActionRejected       ChangeAction = "rejected"
	ActionDirectApply    ChangeAction = "direct_apply"
	ActionApplied        ChangeAction = "applied"
	ActionSuperseded     ChangeAction = "superseded"
	ActionAutoBackfill   ChangeAction = "auto_backfill"
	ActionBackfill       ChangeAction = "backfill"
	ActionActualsUpdated ChangeAction = "actuals_updated"
)

// ShiftCause classifies what triggered a realignment cascade.
type ShiftCause string

const (
	CauseActualDateChange ShiftCause = "actual_date_change"
	CauseBackfill         ShiftCause = "backfill"
	CauseAutoBackfill     ShiftCause = "auto_backfill"
	CauseManualOverride   ShiftCause = "manual_override"
)

// TransitionRule is the policy for advancing from a predecessor's due
// date to a successor's start date.
type TransitionRule string

const (
	TransitionNextWorkingDay  TransitionRule = "next_working_day"
	TransitionSameDay         TransitionRule = "same_day"
	TransitionNextCalendarDay TransitionRule = "next_calendar_day"
)

// StartPolicy controls whether a successor may start on its
// predecessor's due date under the next-working-day rule.
type StartPolicy string

const (
	StartSameDay StartPolicy = "same_day"
	StartNextDay StartPolicy = "next_day"
)

// ValidChangeActions is the canonical set of accepted change log actions.
var ValidChangeActions = map[string]bool{
	"requested": true, "approved": true, "rejected": true,
	"direct_apply": true, "applied": true, "superseded": true,
	"auto_backfill": true, "backfill": true, "actuals_updated": true,
}

// ValidTransitionRules is the canonical set of accepted transition rule strings.
var ValidTransitionRules = map[string]bool{
	"next_working_day": true, "same_day": true, "next_calendar_day": true,
}
