package tracker

// Event is a marker interface for all tracker event types.
type Event interface{}

// Listener is any component that wants to react to tracker events.
type Listener interface {
	HandleEvent(e Event)
}

// Bus manages listeners and dispatches events synchronously, in
// subscription order.
type Bus struct {
	listeners []Listener
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(l Listener) {
	b.listeners = append(b.listeners, l)
}

func (b *Bus) Publish(e Event) {
	for _, l := range b.listeners {
		l.HandleEvent(e)
	}
}

// GameStartedEvent is published once hand sizes are assigned and the
// knowledge matrix is initialized.
type GameStartedEvent struct {
	Players        []Player
	CardsPerPlayer int
	// LeftoverCards is 18 mod player count: cards never dealt. They stay
	// operator-driven, recorded via the opened-cards path.
	LeftoverCards int
}

// SuggestionRecordedEvent is published after a suggestion outcome has been
// applied, before inference runs.
type SuggestionRecordedEvent struct {
	Suggestion Suggestion
}

// DeductionEvent is published for every audit log entry as it is appended.
type DeductionEvent struct {
	Deduction Deduction
}

// EnvelopeSolvedEvent is published when the derived solution triple first
// becomes complete.
type EnvelopeSolvedEvent struct {
	Solved SolvedEnvelope
}
