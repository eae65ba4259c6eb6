package engine

import (
	"context"
	"time"
)

const maxJoinAttempts = 5

// runBootstrap drives the JOINING state machine from spec §4.9: send
// HELLO to the configured seed, back off linearly, and retry up to
// maxJoinAttempts times before settling into STANDALONE. A successful
// join is signalled asynchronously by the actor loop closing joinedCh
// once it processes the seed's PEERS_LIST reply.
func (e *Engine) runBootstrap(ctx context.Context) {
	select {
	case <-e.powReady:
	case <-ctx.Done():
		return
	case <-e.stopCh:
		return
	}

	if e.powFailed {
		e.log.Warn("bootstrap aborted: admission proof unavailable")
		e.setBootstrapState(StateStandalone)
		return
	}

	for attempt := 1; attempt <= maxJoinAttempts; attempt++ {
		if e.helloBreaker.Allow() {
			err := e.sendHelloTo(e.cfg.Bootstrap)
			e.helloBreaker.RecordResult(err)
			e.sendGetPeersTo(e.cfg.Bootstrap)
		} else {
			e.log.WithField("attempt", attempt).Debug("bootstrap hello skipped: circuit open")
		}

		backoff := time.Duration(0.5 * float64(attempt) * float64(time.Second))
		select {
		case <-e.joinedCh:
			return
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-time.After(backoff):
		}

		select {
		case <-e.joinedCh:
			return
		default:
		}
	}

	if e.BootstrapState() == StateJoining {
		e.log.WithField("attempts", maxJoinAttempts).Warn("bootstrap exhausted, falling back to standalone")
		e.setBootstrapState(StateStandalone)
	}
}
