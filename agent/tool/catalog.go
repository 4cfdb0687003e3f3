package tool

import (
	contractx "github.com/natthapon/schedpilot/agent/contract"
	proposalx "github.com/natthapon/schedpilot/agent/proposal"
	schedx "github.com/natthapon/schedpilot/agent/schedule"
)

// BuildCatalog wires the full tool set against one schedule gateway and
// one write gateway. Read and analysis tools hit the gateway directly;
// the change tools go through the propose/execute protocol.
func BuildCatalog(gw schedx.Gateway, ledger contractx.Ledger, writeGW *proposalx.WriteGateway, cfg AnalysisConfig) *Registry {
	r := NewRegistry()

	register := func(schema contractx.ToolSchema, handler contractx.Handler) {
		r.MustRegister(schema, handler)
	}

	register(NewActivityGetTool(gw))
	register(NewActivityListTool(gw))
	register(NewHealthCheckTool(gw, cfg))
	register(NewValidateProductionTool(gw, cfg))
	register(NewProposeChangeTool(gw, ledger, writeGW))
	register(NewExecuteChangeTool(writeGW))

	return r
}
