package tool

import (
	"context"
	"fmt"
	"math"

	contractx "github.com/natthapon/schedpilot/agent/contract"
	schedx "github.com/natthapon/schedpilot/agent/schedule"
)

const ToolScheduleHealthCheck = "schedule.health_check"

// AnalysisConfig carries the thresholds shared by the analysis tools.
type AnalysisConfig struct {
	ExcessiveFloatDays float64 `envconfig:"EXCESSIVE_FLOAT_DAYS" split_words:"true" default:"44"`
	WorkingDayHours    float64 `envconfig:"WORKING_DAY_HOURS" split_words:"true" default:"8"`
	ProductionVariance float64 `envconfig:"PRODUCTION_VARIANCE" split_words:"true" default:"0.10"`
}

// Relative weight of each health check in the overall score.
const (
	weightDangling  = 0.40
	weightNegative  = 0.35
	weightExcessive = 0.25
)

type HealthIssue struct {
	ActivityID int64  `json:"activity_id"`
	Code       string `json:"code"`
	Condition  string `json:"condition"`
	Detail     string `json:"detail"`
}

type HealthBucket struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type HealthReport struct {
	ProjectID        int64         `json:"project_id"`
	ActivityCount    int           `json:"activity_count"`
	DanglingLogic    HealthBucket  `json:"dangling_logic"`
	NegativeFloat    HealthBucket  `json:"negative_float"`
	ExcessiveFloat   HealthBucket  `json:"excessive_float"`
	FloatUnavailable HealthBucket  `json:"float_unavailable"`
	Score            float64       `json:"score"`
	Issues           []HealthIssue `json:"issues"`
}

// NewHealthCheckTool classifies every activity of a project against three
// schedule-quality conditions: dangling logic, negative total float, and
// excessive total float. Activities without float data land in a separate
// unavailable bucket instead of being scored as zero float.
func NewHealthCheckTool(gw schedx.Gateway, cfg AnalysisConfig) (contractx.ToolSchema, contractx.Handler) {
	schema := contractx.ToolSchema{
		Name:        ToolScheduleHealthCheck,
		Description: "Run a schedule health check over a project: dangling logic, negative total float, and excessive total float, with counts, percentages, and an overall score.",
		Parameters: map[string]contractx.ParamSpec{
			"project_id": {Type: contractx.ParamInteger, Required: true, Description: "Numeric project id"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (any, error) {
		projectID := args["project_id"].(int64)
		report, err := runHealthCheck(ctx, gw, cfg, projectID)
		if err != nil {
			return nil, err
		}
		return report, nil
	}

	return schema, handler
}

func runHealthCheck(ctx context.Context, gw schedx.Gateway, cfg AnalysisConfig, projectID int64) (*HealthReport, error) {
	activities, err := gw.ListActivities(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrDomainOperation, err)
	}
	rels, err := gw.ListRelationships(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrDomainOperation, err)
	}

	hasPredecessor := make(map[int64]bool, len(activities))
	hasSuccessor := make(map[int64]bool, len(activities))
	for _, r := range rels {
		hasSuccessor[r.PredecessorID] = true
		hasPredecessor[r.SuccessorID] = true
	}

	excessiveLimit := cfg.ExcessiveFloatDays * cfg.WorkingDayHours

	report := &HealthReport{
		ProjectID:     projectID,
		ActivityCount: len(activities),
		Issues:        []HealthIssue{},
	}

	for _, a := range activities {
		if dangling, detail := danglingDetail(a, hasPredecessor[a.ID], hasSuccessor[a.ID]); dangling {
			report.DanglingLogic.Count++
			report.Issues = append(report.Issues, HealthIssue{
				ActivityID: a.ID,
				Code:       a.Code,
				Condition:  "dangling_logic",
				Detail:     detail,
			})
		}

		if a.TotalFloatHours == nil {
			report.FloatUnavailable.Count++
			report.Issues = append(report.Issues, HealthIssue{
				ActivityID: a.ID,
				Code:       a.Code,
				Condition:  "float_unavailable",
				Detail:     "total float not computed for this activity",
			})
			continue
		}

		tf := *a.TotalFloatHours
		if tf < 0 {
			report.NegativeFloat.Count++
			report.Issues = append(report.Issues, HealthIssue{
				ActivityID: a.ID,
				Code:       a.Code,
				Condition:  "negative_float",
				Detail:     fmt.Sprintf("total float is %.1fh", tf),
			})
		} else if tf > excessiveLimit {
			report.ExcessiveFloat.Count++
			report.Issues = append(report.Issues, HealthIssue{
				ActivityID: a.ID,
				Code:       a.Code,
				Condition:  "excessive_float",
				Detail:     fmt.Sprintf("total float %.1fh exceeds %.0f working days", tf, cfg.ExcessiveFloatDays),
			})
		}
	}

	total := len(activities)
	report.DanglingLogic.Percent = percent(report.DanglingLogic.Count, total)
	report.NegativeFloat.Percent = percent(report.NegativeFloat.Count, total)
	report.ExcessiveFloat.Percent = percent(report.ExcessiveFloat.Count, total)
	report.FloatUnavailable.Percent = percent(report.FloatUnavailable.Count, total)

	score := 0.0
	if report.DanglingLogic.Count == 0 {
		score += weightDangling
	}
	if report.NegativeFloat.Count == 0 {
		score += weightNegative
	}
	if report.ExcessiveFloat.Count == 0 {
		score += weightExcessive
	}
	report.Score = math.Round(score*100) / 100

	return report, nil
}

func danglingDetail(a schedx.Activity, hasPred, hasSucc bool) (bool, string) {
	switch {
	case !hasPred && !a.IsStart && !hasSucc && !a.IsFinish:
		return true, "no predecessor and no successor"
	case !hasPred && !a.IsStart:
		return true, "no predecessor and not the designated start"
	case !hasSucc && !a.IsFinish:
		return true, "no successor and not the designated finish"
	default:
		return false, ""
	}
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}
