package lifecycle

import (
	"context"
	"errors"

	"github.com/Proton-105/funnel-bot/internal/health"
)

// ErrShuttingDown is returned by Readiness once shutdown began.
var ErrShuttingDown = errors.New("shutting down")

// Probes answers liveness and readiness.
type Probes struct {
	checker  *health.Checker
	shutdown *Shutdown
}

// NewProbes creates probes backed by checker. shutdown may be nil.
func NewProbes(checker *health.Checker, shutdown *Shutdown) *Probes {
	return &Probes{checker: checker, shutdown: shutdown}
}

// Liveness always succeeds while the process serves requests.
func (p *Probes) Liveness(context.Context) error {
	return nil
}

// Readiness runs the component checks. It fails once shutdown started.
func (p *Probes) Readiness(ctx context.Context) (health.Report, error) {
	if p.shutdown != nil {
		select {
		case <-p.shutdown.Started():
			return health.Report{Components: map[string]string{}}, ErrShuttingDown
		default:
		}
	}

	if p.checker == nil {
		return health.Report{Healthy: true, Components: map[string]string{}}, nil
	}

	report := p.checker.Check(ctx)
	if !report.Healthy {
		return report, errors.New("one or more components are unhealthy")
	}
	return report, nil
}
