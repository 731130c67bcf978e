package domain

import "time"

// ChangeKind is the kind of mutation an AttributeEvent reports.
type ChangeKind string

const (
	ValueSet         ChangeKind = "value_set"
	ConnectionMade   ChangeKind = "connection_made"
	ConnectionBroken ChangeKind = "connection_broken"
)

// Direction tells which end of the change the observed plug is on.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

// AttributeEvent is constructed by the host for every attribute notification.
// It is transient and never persisted.
type AttributeEvent struct {
	Plug        Plug
	OtherPlug   Plug
	Change      ChangeKind
	Direction   Direction
	OtherEndSet bool
}

// Is reports whether the event matches the given change kind and direction.
func (e AttributeEvent) Is(change ChangeKind, dir Direction) bool {
	return e.Change == change && e.Direction == dir
}

// IsIncomingConnection reports a connection change on the destination side with a known source.
func (e AttributeEvent) IsIncomingConnection(change ChangeKind) bool {
	return e.Is(change, Incoming) && e.OtherEndSet
}

// SubscriptionKind classifies registry subscriptions.
type SubscriptionKind string

const (
	ConnectionWatch SubscriptionKind = "connection_watch"
	ValueWatch      SubscriptionKind = "value_watch"
	RemovalWatch    SubscriptionKind = "removal_watch"
)

// SubscriptionEvent describes a registry install or removal.
type SubscriptionEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Handle    string           `json:"handle"`
	Target    string           `json:"target"`
	Kind      SubscriptionKind `json:"kind"`
}

// ReactionEvent describes one evaluation of a value reactor.
type ReactionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Target    string    `json:"target"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Skipped   string    `json:"skipped,omitempty"` // reason, empty when both writes happened
}

// WatcherEvent describes a connection watcher state transition.
type WatcherEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Node      string    `json:"node"`
	Target    string    `json:"target,omitempty"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

// LifecycleHooks defines callbacks for observability.
// Hooks run synchronously on the evaluation thread and must not mutate the graph.
type LifecycleHooks struct {
	OnInstall           func(*SubscriptionEvent)
	OnRemove            func(*SubscriptionEvent)
	OnReact             func(*ReactionEvent)
	OnWatcherTransition func(*WatcherEvent)
}
