package progress

// EventType identifies what happened to the state
type EventType string

const (
	// EventStateChanged follows every committed state transition
	EventStateChanged EventType = "state_changed"
	// EventSessionStarted follows a successful login or signup
	EventSessionStarted EventType = "session_started"
	// EventSessionEnded follows logout and account deletion. Views should return to the signed-out entry screen.
	EventSessionEnded EventType = "session_ended"
)

// Reasons attached to EventSessionEnded
const (
	ReasonLogout         = "logout"
	ReasonAccountDeleted = "account_deleted"
	ReasonUnauthorized   = "unauthorized"
)

// Event is delivered to subscribers after the state lock is released
type Event struct {
	Type   EventType
	Reason string
}

// Subscribe registers fn for every event and returns a function removing it.
// fn runs on the goroutine that committed the change and must not block.
func (m *Manager) Subscribe(fn func(Event)) func() {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn

	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) emit(events ...Event) {
	m.listenersMu.Lock()
	listeners := make([]func(Event), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.listenersMu.Unlock()

	for _, event := range events {
		for _, fn := range listeners {
			fn(event)
		}
	}
}
