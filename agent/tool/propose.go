package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/natthapon/schedpilot/agent/contract"
	proposalx "github.com/natthapon/schedpilot/agent/proposal"
	schedx "github.com/natthapon/schedpilot/agent/schedule"
)

const (
	ToolChangePropose = "change.propose"
	ToolChangeExecute = "change.execute"
)

// ProposalReceipt is what the model relays back to the operator: the
// current vs proposed values, whether writes are currently enabled, and
// the exact confirmation the human must restate to trigger execution.
type ProposalReceipt struct {
	ProposalID      string         `json:"proposal_id"`
	ActivityID      int64          `json:"activity_id"`
	CurrentValues   map[string]any `json:"current_values"`
	ProposedChanges map[string]any `json:"proposed_changes"`
	Rationale       string         `json:"rationale"`
	WriteEnabled    bool           `json:"write_enabled"`
	Applied         bool           `json:"applied"`
	Confirmation    string         `json:"confirmation"`
	Note            string         `json:"note"`
}

// NewProposeChangeTool builds the side-effect-free half of the write
// protocol: it reads current values, stores a pending proposal in the
// ledger, and returns the receipt. It never touches the store's write
// primitive.
func NewProposeChangeTool(gw schedx.Gateway, ledger contractx.Ledger, writeGW *proposalx.WriteGateway) (contractx.ToolSchema, contractx.Handler) {
	schema := contractx.ToolSchema{
		Name:        ToolChangePropose,
		Description: "Propose a change to one activity's writable fields (name, duration_hours, volume, production_rate). Returns current vs proposed values and a confirmation instruction. Performs no write.",
		Parameters: map[string]contractx.ParamSpec{
			"activity_id": {Type: contractx.ParamInteger, Required: true, Description: "Numeric activity id"},
			"changes":     {Type: contractx.ParamObject, Required: true, Description: "Field name to new value mapping"},
			"rationale":   {Type: contractx.ParamString, Required: true, Description: "Why this change is being proposed"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (any, error) {
		activityID := args["activity_id"].(int64)
		rawChanges := args["changes"].(map[string]any)
		rationale := strings.TrimSpace(args["rationale"].(string))

		if len(rawChanges) == 0 {
			return nil, fmt.Errorf("%w: changes must not be empty", contractx.ErrValidation)
		}
		if rationale == "" {
			return nil, fmt.Errorf("%w: rationale must not be empty", contractx.ErrValidation)
		}

		changes := make(map[string]any, len(rawChanges))
		for field, value := range rawChanges {
			coerced, err := schedx.CoerceFieldValue(field, value)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
			}
			changes[field] = coerced
		}

		activity, err := gw.ReadActivity(ctx, activityID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrDomainOperation, err)
		}

		current := make(map[string]any, len(changes))
		for field := range changes {
			value, _ := activity.FieldValue(field)
			current[field] = value
		}

		now := time.Now().UTC()
		p := &contractx.Proposal{
			ID:            proposalx.NewID(activityID, now, changes),
			ActivityID:    activityID,
			Changes:       changes,
			CurrentValues: current,
			Rationale:     rationale,
			CreatedAt:     now,
		}
		if err := ledger.Put(p); err != nil {
			return nil, err
		}

		return &ProposalReceipt{
			ProposalID:      p.ID,
			ActivityID:      activityID,
			CurrentValues:   current,
			ProposedChanges: changes,
			Rationale:       rationale,
			WriteEnabled:    writeGW.WriteEnabled(),
			Applied:         false,
			Confirmation:    fmt.Sprintf("execute change %s", p.ID),
			Note:            "Not applied. The operator must restate the confirmation to execute this proposal.",
		}, nil
	}

	return schema, handler
}

// NewExecuteChangeTool builds the redeeming half of the write protocol.
// All enforcement lives in the write gateway; this handler only shapes the
// tool surface.
func NewExecuteChangeTool(writeGW *proposalx.WriteGateway) (contractx.ToolSchema, contractx.Handler) {
	schema := contractx.ToolSchema{
		Name:        ToolChangeExecute,
		Description: "Execute a previously proposed change after the operator restated its confirmation. Fails when writes are disabled or the proposal id is unknown.",
		Parameters: map[string]contractx.ParamSpec{
			"proposal_id": {Type: contractx.ParamString, Required: true, Description: "Id returned by change.propose"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (any, error) {
		proposalID := strings.TrimSpace(args["proposal_id"].(string))
		if proposalID == "" {
			return nil, fmt.Errorf("%w: proposal_id must not be empty", contractx.ErrValidation)
		}
		return writeGW.Execute(ctx, proposalID)
	}

	return schema, handler
}
