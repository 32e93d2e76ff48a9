package lifecycle

import "context"

// Phase orders shutdown hooks. Hooks of the same phase run concurrently,
// phases run one after another in ascending order.
type Phase int

const (
	// PhaseIngress stops accepting updates and HTTP requests.
	PhaseIngress Phase = iota
	// PhaseFunnel cancels retention timers and waits for in-flight callbacks.
	PhaseFunnel
	// PhaseDrain flushes queued notifications and published orders.
	PhaseDrain
	// PhaseRelease closes connections and flushes error reporting.
	PhaseRelease

	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseIngress:
		return "ingress"
	case PhaseFunnel:
		return "funnel"
	case PhaseDrain:
		return "drain"
	case PhaseRelease:
		return "release"
	}
	return "unknown"
}

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Phase Phase
	Fn    func(ctx context.Context) error
}
