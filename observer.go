package multisock

import (
	"github.com/wippyai/multisock/resource"
	"github.com/wippyai/multisock/socket"
)

// EventType identifies a group lifecycle event.
type EventType uint8

const (
	// EventSourceAdded fires when a descriptor is registered.
	EventSourceAdded EventType = iota
	// EventSourceRemoved fires when a descriptor is picked up by the caller.
	EventSourceRemoved
	// EventSourceClosed fires when the group closes a registered descriptor.
	EventSourceClosed
	// EventAccepted fires for every connection returned by Accept.
	EventAccepted
	// EventConnectAttempt fires before each outgoing connect.
	EventConnectAttempt
	// EventConnectFailed fires when a connect fails; Err holds the cause.
	EventConnectFailed
)

func (t EventType) String() string {
	switch t {
	case EventSourceAdded:
		return "source_added"
	case EventSourceRemoved:
		return "source_removed"
	case EventSourceClosed:
		return "source_closed"
	case EventAccepted:
		return "accepted"
	case EventConnectAttempt:
		return "connect_attempt"
	case EventConnectFailed:
		return "connect_failed"
	}
	return "unknown"
}

// Event describes one lifecycle change. Peer is set for EventAccepted and the
// connect events; Err is set when the event reports a failure.
type Event struct {
	Err    error
	Source Source
	Peer   socket.Address
	Handle resource.Handle
	Type   EventType
}

// Observer receives group lifecycle events. Observers run synchronously on
// the goroutine driving the group and must not call back into it.
type Observer interface {
	OnGroupEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnGroupEvent calls f.
func (f ObserverFunc) OnGroupEvent(e Event) {
	f(e)
}
