package builder

import "cppmedic/internal/patterns"

// Observer receives callbacks around the retry loop so side channels
// (run history, notifications) can hook in without changing the
// controller itself.
type Observer interface {
	OnAttemptStart(attempt, max int)
	OnPhaseFailure(phase Phase, attempt int, output string)
	OnFixApplied(p *patterns.Pattern)
	OnRunComplete(ok bool, message string, attempts int)
}

// NoopObserver is the default no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnAttemptStart(attempt, max int)                     {}
func (NoopObserver) OnPhaseFailure(phase Phase, attempt int, out string) {}
func (NoopObserver) OnFixApplied(p *patterns.Pattern)                    {}
func (NoopObserver) OnRunComplete(ok bool, message string, attempts int) {}
