package crew

import (
	"time"

	"github.com/crewcore/crewcore/task"
)

// EventType names a lifecycle event emitted during Execute.
type EventType string

const (
	EventCrewStarted  EventType = "crew_started"
	EventPhaseStarted EventType = "phase_started"
	EventTaskFinished EventType = "task_finished"
	EventCrewFinished EventType = "crew_finished"
)

// Event is one lifecycle observation an embedder can receive through
// WithEventSink. The stream is purely additive to the RunSummary
// contract: delivery is best-effort and a slow consumer loses events
// instead of stalling the run.
type Event struct {
	Type      EventType
	Crew      string
	Task      string
	Phase     int
	Status    task.Status
	Timestamp time.Time
}
