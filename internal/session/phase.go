package session

import (
	"github.com/bft-labs/oneshot/internal/domain"
	"github.com/bft-labs/oneshot/internal/ports"
)

// Phase is the position of a session in its one-way lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnected
	PhaseWaiting
	PhaseSending
	PhaseReceiving
	PhaseDone
	PhaseFailed
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseConnected:
		return "Connected"
	case PhaseWaiting:
		return "Waiting"
	case PhaseSending:
		return "Sending"
	case PhaseReceiving:
		return "Receiving"
	case PhaseDone:
		return "Done"
	case PhaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// next lists the single forward step from each phase. Any phase that is
// not terminal may also move to PhaseFailed.
var next = map[Phase]Phase{
	PhaseIdle:      PhaseConnected,
	PhaseConnected: PhaseWaiting,
	PhaseWaiting:   PhaseSending,
	PhaseSending:   PhaseReceiving,
	PhaseReceiving: PhaseDone,
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// phaseTracker guards the session phase. A session has exactly one owner,
// so there is no locking.
type phaseTracker struct {
	phase  Phase
	id     string
	logger ports.Logger
}

func (t *phaseTracker) transitionTo(to Phase, reason string) error {
	from := t.phase
	if from.Terminal() {
		return domain.ErrInvalidPhase
	}
	if to != PhaseFailed && next[from] != to {
		return domain.ErrInvalidPhase
	}
	t.phase = to

	t.logger.Trace("phase transition",
		ports.String("session", t.id),
		ports.String("from", from.String()),
		ports.String("to", to.String()),
		ports.String("reason", reason),
	)
	return nil
}
