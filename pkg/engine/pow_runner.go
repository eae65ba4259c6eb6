package engine

import (
	"context"

	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/pow"
)

// runPoWSearch solves this node's admission puzzle off the actor loop
// (spec §4.10's execution contract) and publishes the result by
// closing powReady. A cancelled search (engine shutting down before a
// solution is found) leaves powReady closed forever unsolved; callers
// gate on powFailed to distinguish the two outcomes.
func (e *Engine) runPoWSearch(ctx context.Context) {
	proof, err := pow.Compute(ctx, e.nodeID, e.cfg.PowK)
	if err != nil {
		e.powFailed = true
		e.log.WithField("error", err.Error()).Warn("pow search did not complete")
		close(e.powReady)
		return
	}
	e.powProof = proof
	e.log.WithFields(map[string]interface{}{
		"k":     proof.K,
		"nonce": proof.Nonce,
	}).Info("pow proof ready")
	close(e.powReady)
}
