package proposal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/natthapon/schedpilot/agent/contract"
	schedx "github.com/natthapon/schedpilot/agent/schedule"
)

// WriteGateway is the only path from a proposal to the schedule store's
// write primitive. The safety flag is fixed at construction and checked
// before anything else; nothing downstream can lift it for one call.
type WriteGateway struct {
	writeEnabled bool
	ledger       contractx.Ledger
	store        schedx.Gateway
}

// ExecutionResult describes a successfully committed proposal.
type ExecutionResult struct {
	ProposalID string         `json:"proposal_id"`
	ActivityID int64          `json:"activity_id"`
	Applied    map[string]any `json:"applied"`
}

func NewWriteGateway(writeEnabled bool, ledger contractx.Ledger, store schedx.Gateway) *WriteGateway {
	return &WriteGateway{
		writeEnabled: writeEnabled,
		ledger:       ledger,
		store:        store,
	}
}

// WriteEnabled reports the process-wide safety flag.
func (g *WriteGateway) WriteEnabled() bool {
	return g.writeEnabled
}

// Execute redeems a pending proposal. Order is fixed: safety flag, then
// ledger lookup, then one transaction. A failed transaction rolls back and
// leaves the proposal pending so the same confirmation can be retried; the
// proposal is removed only after a successful commit.
func (g *WriteGateway) Execute(ctx context.Context, proposalID string) (*ExecutionResult, error) {
	if !g.writeEnabled {
		return nil, fmt.Errorf("%w: set SCHEDPILOT_WRITE_ENABLED=true and restart to allow writes", contractx.ErrSafetyViolation)
	}

	p, ok := g.ledger.Get(proposalID)
	if !ok {
		return nil, fmt.Errorf("%w: id=%s; propose the change again to get a fresh id", contractx.ErrUnknownProposal, proposalID)
	}

	tx, err := g.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", contractx.ErrDomainOperation, err)
	}

	if err := tx.UpdateActivity(ctx, p.ActivityID, p.Changes); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Str("proposal_id", proposalID).Err(rbErr).Msg("rollback failed")
		}
		return nil, fmt.Errorf("%w: %v", contractx.ErrDomainOperation, err)
	}

	if err := tx.Commit(); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Str("proposal_id", proposalID).Err(rbErr).Msg("rollback failed")
		}
		return nil, fmt.Errorf("%w: commit: %v", contractx.ErrDomainOperation, err)
	}

	g.ledger.Remove(proposalID)

	log.Info().
		Str("proposal_id", proposalID).
		Int64("activity_id", p.ActivityID).
		Msg("proposal executed")

	return &ExecutionResult{
		ProposalID: proposalID,
		ActivityID: p.ActivityID,
		Applied:    p.Changes,
	}, nil
}
