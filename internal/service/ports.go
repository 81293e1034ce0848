package service

import "context"

// ScheduleEvent is the structured payload handed to notification
// dispatch after a successful realignment or approval.
type ScheduleEvent struct {
	ProjectID  string
	StageCode  string
	ChangeKind string
	DeltaDays  int
}

// Notifier is the outbound notification port. Implementations are
// fire-and-forget and are invoked outside the owning transaction; a
// failed dispatch never rolls back schedule state.
type Notifier interface {
	NotifyScheduleEvent(ctx context.Context, e ScheduleEvent)
}

// NoopNotifier ignores all events.
type NoopNotifier struct{}

func (NoopNotifier) NotifyScheduleEvent(context.Context, ScheduleEvent) {}

func notifierOrNoop(n Notifier) Notifier {
	if n != nil {
		return n
	}
	return NoopNotifier{}
}
