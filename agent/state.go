package agent

import (
	"time"

	cmap "github.com/orcaman/concurrent-map"
	"go.uber.org/atomic"
)

// reconcileState is the outcome of the most recent reconcile run. The
// Prometheus exporter reads it on the scrape path while a reconcile may be
// in flight, hence atomics and a concurrent map instead of plain fields.
type reconcileState struct {
	isReadyBool *atomic.Bool

	lastRunUnix     *atomic.Int64
	lastSuccessUnix *atomic.Int64
	lastDuration    *atomic.Float64

	// phaseResults maps a phase name to the bool outcome of its latest run
	phaseResults cmap.ConcurrentMap

	managedPrincipals *atomic.Int64
	writtenKeytabs    *atomic.Int64
}

func newReconcileState() *reconcileState {
	return &reconcileState{
		isReadyBool:       atomic.NewBool(false),
		lastRunUnix:       atomic.NewInt64(0),
		lastSuccessUnix:   atomic.NewInt64(0),
		lastDuration:      atomic.NewFloat64(0),
		phaseResults:      cmap.New(),
		managedPrincipals: atomic.NewInt64(0),
		writtenKeytabs:    atomic.NewInt64(0),
	}
}

func (s *reconcileState) isReady() bool {
	return s.isReadyBool.Load()
}

func (s *reconcileState) setReadyState(isReady bool) {
	s.isReadyBool.Store(isReady)
}

func (s *reconcileState) setPhaseResult(phase string, ok bool) {
	s.phaseResults.Set(phase, ok)
}

func (s *reconcileState) getPhaseResults() map[string]bool {
	results := make(map[string]bool)
	for phase, ok := range s.phaseResults.Items() {
		results[phase] = ok.(bool)
	}
	return results
}

// IsReady reports whether the most recent reconcile succeeded in full.
func (s *Service) IsReady() bool {
	return s.state.isReady()
}

// LastReconcileTime is the wall clock time the most recent reconcile
// finished, zero if none ran yet.
func (s *Service) LastReconcileTime() time.Time {
	return unixOrZero(s.state.lastRunUnix.Load())
}

// LastSuccessTime is the wall clock time the most recent fully successful
// reconcile finished, zero if none succeeded yet.
func (s *Service) LastSuccessTime() time.Time {
	return unixOrZero(s.state.lastSuccessUnix.Load())
}

// LastReconcileDuration is how long the most recent reconcile took.
func (s *Service) LastReconcileDuration() time.Duration {
	return time.Duration(s.state.lastDuration.Load() * float64(time.Second))
}

// PhaseResults returns the per-phase outcome of the most recent reconcile.
func (s *Service) PhaseResults() map[string]bool {
	return s.state.getPhaseResults()
}

// ManagedPrincipalCount is the number of principals the agent ensured during
// the most recent reconcile.
func (s *Service) ManagedPrincipalCount() int64 {
	return s.state.managedPrincipals.Load()
}

// WrittenKeytabCount is the number of keytab files the agent materialized
// during the most recent reconcile.
func (s *Service) WrittenKeytabCount() int64 {
	return s.state.writtenKeytabs.Load()
}

func unixOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
