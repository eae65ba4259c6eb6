// Package errors implements the engine's error taxonomy (spec §7) and
// the small resilience helpers the teacher repo applies around
// unreliable operations: a severity-tagged wrapper, panic containment
// for spawned tasks, and a per-destination circuit breaker for
// outbound sends.
package errors

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Kind enumerates the taxonomy from spec §7.
type Kind int

const (
	KindMalformedMessage Kind = iota
	KindUnknownType
	KindPoWRejected
	KindTransportError
	KindBootstrapTimeout
	KindCapacityPressure
	KindCancellationRequested
)

func (k Kind) String() string {
	switch k {
	case KindMalformedMessage:
		return "MalformedMessage"
	case KindUnknownType:
		return "UnknownType"
	case KindPoWRejected:
		return "PoWRejected"
	case KindTransportError:
		return "TransportError"
	case KindBootstrapTimeout:
		return "BootstrapTimeout"
	case KindCapacityPressure:
		return "CapacityPressure"
	case KindCancellationRequested:
		return "CancellationRequested"
	default:
		return "Unknown"
	}
}

// Severity mirrors the teacher's utils.ErrorSeverity.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// EngineError wraps an underlying cause with the taxonomy kind,
// component name, and severity, so handlers can branch on Kind while
// still propagating %w-compatible errors.
type EngineError struct {
	Kind      Kind
	Err       error
	Component string
	Severity  Severity
	Timestamp time.Time
}

func New(kind Kind, component string, severity Severity, err error) *EngineError {
	return &EngineError{Kind: kind, Err: err, Component: component, Severity: severity, Timestamp: time.Now()}
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("[%s] %s/%s: %v", e.Component, e.Kind, e.Severity, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// RecoverFromPanic swallows a panic in the named component (logging it
// when log is non-nil) so a single task's bug does not crash the
// process. The recovery happens at the top of the goroutine, so the
// panicking task itself still ends: a handler panic stops the actor
// loop. Intended for use via SafeGo, mirroring the teacher's
// RecoverFromPanic/SafeGoroutine pair.
func RecoverFromPanic(log *zap.Logger, component string) {
	if r := recover(); r != nil {
		if log != nil {
			log.Error("panic recovered", zap.String("component", component), zap.Any("panic", r))
		}
	}
}

// SafeGo runs fn in a new goroutine with panic containment.
func SafeGo(log *zap.Logger, component string, fn func()) {
	go func() {
		defer RecoverFromPanic(log, component)
		fn()
	}()
}

// CircuitBreaker is a minimal closed/open/half-open breaker used to
// stop retry-storming a destination (e.g. a dead bootstrap seed).
// Adapted from the teacher's utils.CircuitBreaker.
type CircuitBreaker struct {
	mu            sync.Mutex
	name          string
	maxFailures   int
	resetTimeout  time.Duration
	failures      int
	lastFailTime  time.Time
	state         string
	halfOpenMax   int
	halfOpenTries int
}

func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        "closed",
		halfOpenMax:  3,
	}
}

// Allow reports whether an operation may proceed right now.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == "open" {
		if time.Since(cb.lastFailTime) > cb.resetTimeout {
			cb.state = "half-open"
			cb.halfOpenTries = 0
			return true
		}
		return false
	}
	return true
}

// RecordResult feeds the outcome of an attempted operation back into
// the breaker's state machine.
func (cb *CircuitBreaker) RecordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailTime = time.Now()
		if cb.state == "half-open" {
			cb.state = "open"
			return
		}
		if cb.failures >= cb.maxFailures {
			cb.state = "open"
		}
		return
	}

	if cb.state == "half-open" {
		cb.halfOpenTries++
		if cb.halfOpenTries >= cb.halfOpenMax {
			cb.state = "closed"
			cb.failures = 0
		}
	} else if cb.state == "closed" {
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
