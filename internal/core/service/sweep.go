package service

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/telemetry/logger"
)

// Runner runs one connection attempt. *Attempter implements it.
type Runner interface {
	Run(ctx context.Context, def *domain.TunnelDefinition) Outcome
}

// Sweep connects every auto-connect tunnel once, after the registry has
// been loaded.
type Sweep struct {
	runner   Runner
	interval time.Duration
	log      logger.Logger
	notify   func(Outcome)
}

// NewSweep returns a sweep using runner. A positive interval spaces
// consecutive attempts at least that far apart.
func NewSweep(runner Runner, interval time.Duration, log logger.Logger) *Sweep {
	if log == nil {
		log = logger.Default()
	}
	return &Sweep{runner: runner, interval: interval, log: log.With("component", "sweep")}
}

// Notify sets a function called with each outcome as soon as its attempt
// ends.
func (s *Sweep) Notify(fn func(Outcome)) {
	s.notify = fn
}

// Run attempts each auto-connect tunnel in registry iteration order.
//
// Selection happens in a single pass over the registry before any attempt
// starts. A failed attempt is recorded and the sweep moves on; only ctx
// cancellation stops it early. The returned outcomes are informational.
func (s *Sweep) Run(ctx context.Context, reg *Registry) []Outcome {
	var selected []*domain.TunnelDefinition
	for _, def := range reg.List() {
		if def.AutoConnect {
			selected = append(selected, def)
		}
	}
	return s.run(ctx, selected)
}

// RunAll attempts every registered tunnel, ordered by id, regardless of
// its auto-connect flag.
func (s *Sweep) RunAll(ctx context.Context, reg *Registry) []Outcome {
	return s.run(ctx, reg.Sorted())
}

func (s *Sweep) run(ctx context.Context, selected []*domain.TunnelDefinition) []Outcome {
	if len(selected) == 0 {
		return nil
	}

	limit := rate.Inf
	if s.interval > 0 {
		limit = rate.Every(s.interval)
	}
	limiter := rate.NewLimiter(limit, 1)

	s.log.Debug("sweep starting", "tunnels", len(selected))
	outcomes := make([]Outcome, 0, len(selected))
	for _, def := range selected {
		if err := limiter.Wait(ctx); err != nil {
			s.log.Warn("sweep interrupted", "error", err, "remaining", len(selected)-len(outcomes))
			break
		}
		out := s.runner.Run(ctx, def)
		outcomes = append(outcomes, out)
		if s.notify != nil {
			s.notify(out)
		}
	}
	return outcomes
}
