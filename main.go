package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	conversationx "github.com/natthapon/schedpilot/agent/conversation"
	llmx "github.com/natthapon/schedpilot/agent/llm"
	promptx "github.com/natthapon/schedpilot/agent/prompt"
	proposalx "github.com/natthapon/schedpilot/agent/proposal"
	schedx "github.com/natthapon/schedpilot/agent/schedule"
	toolx "github.com/natthapon/schedpilot/agent/tool"
	configx "github.com/natthapon/schedpilot/pkg/config"
	_ "github.com/natthapon/schedpilot/pkg/logger/autoload"
)

type AppConfig struct {
	WriteEnabled   bool          `envconfig:"WRITE_ENABLED" split_words:"true" default:"false"`
	ProposalTTL    time.Duration `envconfig:"PROPOSAL_TTL" split_words:"true" default:"1h"`
	ProjectContext string        `envconfig:"PROJECT_CONTEXT" split_words:"true"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("SCHEDPILOT")
	pgCfg := configx.MustNew[schedx.PostgresConfig]("POSTGRES")
	analysisCfg := configx.MustNew[toolx.AnalysisConfig]("ANALYSIS")
	agentCfg := configx.MustNew[conversationx.Config]("AGENT")
	llmCfg := configx.MustNew[llmx.Config]("LLM")

	gateway := buildGateway(*pgCfg)
	ledger := proposalx.NewMemoryLedger(proposalx.WithTTL(appCfg.ProposalTTL))
	writeGW := proposalx.NewWriteGateway(appCfg.WriteEnabled, ledger, gateway)
	registry := toolx.BuildCatalog(gateway, ledger, writeGW, *analysisCfg)

	adapter, err := llmx.NewOpenAIAdapter(*llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build llm adapter")
	}

	controller, err := conversationx.NewController(adapter, registry, promptx.System(appCfg.ProjectContext), *agentCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build controller")
	}

	log.Info().
		Str("session_id", controller.SessionID()).
		Bool("write_enabled", appCfg.WriteEnabled).
		Msg("schedpilot ready")

	runREPL(controller, appCfg.WriteEnabled)
}

func buildGateway(cfg schedx.PostgresConfig) schedx.Gateway {
	if strings.TrimSpace(cfg.DSN) != "" {
		gw, err := schedx.NewBunGateway(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open postgres gateway")
		}
		return gw
	}

	log.Warn().Msg("no POSTGRES_DSN configured, using in-memory demo schedule")
	return demoGateway()
}

func runREPL(controller *conversationx.Controller, writeEnabled bool) {
	fmt.Println("schedpilot — chat with your schedule (ctrl-d to quit)")
	if !writeEnabled {
		fmt.Println("writes are DISABLED; proposals can be created but not executed")
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		reply, err := controller.HandleMessage(context.Background(), text)
		if err != nil {
			log.Error().Err(err).Msg("turn ended with error")
		}
		if reply != "" {
			fmt.Println(reply)
		}
	}
	fmt.Println()
}

func ptr(v float64) *float64 { return &v }

func demoGateway() *schedx.MemoryGateway {
	gw := schedx.NewMemoryGateway()

	gw.SeedActivity(schedx.Activity{ID: 1, ProjectID: 1, Code: "MS-000", Name: "Notice to proceed", IsStart: true, TotalFloatHours: ptr(0)})
	gw.SeedActivity(schedx.Activity{ID: 2, ProjectID: 1, Code: "EW-100", Name: "Excavation", DurationHours: 80, TotalFloatHours: ptr(16), IsProduction: true, Volume: ptr(1200), ProductionRate: ptr(15)})
	gw.SeedActivity(schedx.Activity{ID: 3, ProjectID: 1, Code: "FW-200", Name: "Foundation works", DurationHours: 120, TotalFloatHours: ptr(-8)})
	gw.SeedActivity(schedx.Activity{ID: 4, ProjectID: 1, Code: "ST-300", Name: "Steel erection", DurationHours: 200, TotalFloatHours: ptr(400)})
	gw.SeedActivity(schedx.Activity{ID: 5, ProjectID: 1, Code: "MS-999", Name: "Substantial completion", IsFinish: true, TotalFloatHours: ptr(0)})

	gw.SeedRelationship(schedx.Relationship{PredecessorID: 1, SuccessorID: 2, Type: "FS"})
	gw.SeedRelationship(schedx.Relationship{PredecessorID: 2, SuccessorID: 3, Type: "FS"})
	gw.SeedRelationship(schedx.Relationship{PredecessorID: 3, SuccessorID: 4, Type: "FS"})
	gw.SeedRelationship(schedx.Relationship{PredecessorID: 4, SuccessorID: 5, Type: "FS"})

	return gw
}
