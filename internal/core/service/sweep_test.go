package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/telemetry/logger"
)

// scriptedRunner fails attempts for ids in fail and records call order.
type scriptedRunner struct {
	fail  map[uint64]bool
	calls []uint64
}

func (r *scriptedRunner) Run(ctx context.Context, def *domain.TunnelDefinition) Outcome {
	r.calls = append(r.calls, def.ID)
	out := Outcome{TunnelID: def.ID, Hostname: def.Hostname, Final: StateSucceeded}
	if r.fail[def.ID] {
		out.Final = StateFailed
		out.FailedIn = StateConnecting
		out.Err = domain.ErrNetwork
	}
	return out
}

func sweepRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, _ := newTestRegistry(t, &mockStore{})
	ctx := context.Background()
	for id := uint64(1); id <= 4; id++ {
		def := newTunnel(id, "t", "h")
		def.AutoConnect = id != 2
		if err := reg.Add(ctx, def); err != nil {
			t.Fatal(err)
		}
	}
	return reg
}

func TestSweep_RunsAutoConnectOnly(t *testing.T) {
	reg := sweepRegistry(t)
	runner := &scriptedRunner{fail: map[uint64]bool{1: true}}

	outcomes := NewSweep(runner, 0, logger.Nop()).Run(context.Background(), reg)

	if len(outcomes) != 3 {
		t.Fatalf("Run() returned %d outcomes, want 3", len(outcomes))
	}
	for _, id := range runner.calls {
		if id == 2 {
			t.Error("sweep attempted a tunnel without auto_connect")
		}
	}
	failed := 0
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed++
			if !errors.Is(o.Err, domain.ErrNetwork) {
				t.Errorf("failure outcome Err = %v", o.Err)
			}
		}
	}
	if failed != 1 {
		t.Errorf("failed outcomes = %d, want 1 (sweep must continue past failures)", failed)
	}
}

func TestSweep_Empty(t *testing.T) {
	reg, _ := newTestRegistry(t, &mockStore{})
	runner := &scriptedRunner{}
	if out := NewSweep(runner, time.Second, nil).Run(context.Background(), reg); len(out) != 0 {
		t.Errorf("Run() on empty registry = %v", out)
	}
}

func TestSweep_Interval(t *testing.T) {
	reg := sweepRegistry(t)
	runner := &scriptedRunner{}

	start := time.Now()
	NewSweep(runner, 20*time.Millisecond, logger.Nop()).Run(context.Background(), reg)
	// Three attempts: the first is immediate, the next two wait.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("sweep took %v, want at least ~40ms of pacing", elapsed)
	}
}

func TestSweep_Canceled(t *testing.T) {
	reg := sweepRegistry(t)
	runner := &scriptedRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := NewSweep(runner, time.Hour, logger.Nop()).Run(ctx, reg)
	if len(out) != 0 {
		t.Errorf("canceled sweep ran %d attempts", len(out))
	}
}

func TestSweep_RunAll(t *testing.T) {
	reg := sweepRegistry(t)
	runner := &scriptedRunner{fail: map[uint64]bool{3: true}}
	s := NewSweep(runner, 0, logger.Nop())

	var notified []uint64
	s.Notify(func(o Outcome) { notified = append(notified, o.TunnelID) })

	outcomes := s.RunAll(context.Background(), reg)

	want := []uint64{1, 2, 3, 4}
	if len(outcomes) != len(want) {
		t.Fatalf("RunAll() returned %d outcomes, want %d", len(outcomes), len(want))
	}
	for i, id := range want {
		if runner.calls[i] != id {
			t.Errorf("call %d = tunnel %d, want %d", i, runner.calls[i], id)
		}
		if notified[i] != id {
			t.Errorf("notification %d = tunnel %d, want %d", i, notified[i], id)
		}
	}
	if outcomes[2].Succeeded() {
		t.Error("tunnel 3 should have failed")
	}
}
