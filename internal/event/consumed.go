package event

// Consumed is the outcome of interpreting one Event.
//
// It is a sealed interface: only NoChange, Reversible, Irreversible and
// Restart implement it, so a type switch over these four is exhaustive.
type Consumed interface {
	consumed() // Sealed - only the variants below implement it

	// Kind returns the variant name used in logs, journals and metrics.
	Kind() Kind
}

// Kind names a Consumed variant.
type Kind string

const (
	KindNoChange     Kind = "no_change"
	KindReversible   Kind = "reversible"
	KindIrreversible Kind = "irreversible"
	KindRestart      Kind = "restart"
)

// NoChange reports that the event would not alter observable state.
// It must not be recorded in undo history and emits no StateChange.
type NoChange struct{}

func (NoChange) consumed() {}

// Kind implements Consumed.
func (NoChange) Kind() Kind { return KindNoChange }

// Reversible reports an applied mutation together with the event that
// restores the prior state when applied immediately afterwards.
type Reversible struct {
	Change  StateChange
	Reverse Event
}

func (Reversible) consumed() {}

// Kind implements Consumed.
func (Reversible) Kind() Kind { return KindReversible }

// Irreversible reports an applied mutation for which no inverse was built.
// When Reset is true, any undo history must be discarded.
type Irreversible struct {
	Change StateChange
	Reset  bool
}

func (Irreversible) consumed() {}

// Kind implements Consumed.
func (Irreversible) Kind() Kind { return KindIrreversible }

// Restart reports that nothing was mutated; the listed events must be
// applied in order instead, each producing its own Consumed.
type Restart struct {
	Events []Event
}

func (Restart) consumed() {}

// Kind implements Consumed.
func (Restart) Kind() Kind { return KindRestart }

// ChangeOf returns the state change carried by c, if any.
func ChangeOf(c Consumed) (StateChange, bool) {
	switch v := c.(type) {
	case Reversible:
		return v.Change, true
	case Irreversible:
		return v.Change, true
	default:
		return StateChange{}, false
	}
}
