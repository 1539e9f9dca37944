// Package notifier fans configured deployment/service events out to
// independent sinks (spec.md §4.8).
package notifier

// State is an event's lifecycle stage. Failure carries a short
// human-readable reason.
type State struct {
	Kind   StateKind
	Reason string
}

type StateKind string

const (
	StateInProgress StateKind = "in-progress"
	StateSuccess    StateKind = "success"
	StateFailure    StateKind = "failure"
)

func InProgress() State { return State{Kind: StateInProgress} }
func Success() State    { return State{Kind: StateSuccess} }
func Failure(reason string) State {
	return State{Kind: StateFailure, Reason: reason}
}

// EventKind discriminates the Event union.
type EventKind string

const (
	EventDeployment    EventKind = "deployment"
	EventServiceUpdate EventKind = "service-update"
	EventServiceDelete EventKind = "service-delete"
)

// Event is one notifier-fan-out message. Exactly the fields relevant to
// Kind are populated.
type Event struct {
	Kind EventKind

	// deployment
	Commit string

	// service-update / service-delete
	Name string

	State State
}

func DeploymentEvent(commit string, state State) Event {
	return Event{Kind: EventDeployment, Commit: commit, State: state}
}

func ServiceUpdateEvent(name string, state State) Event {
	return Event{Kind: EventServiceUpdate, Name: name, State: state}
}

func ServiceDeleteEvent(name string, state State) Event {
	return Event{Kind: EventServiceDelete, Name: name, State: state}
}
