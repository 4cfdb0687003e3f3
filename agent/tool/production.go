package tool

import (
	"context"
	"fmt"
	"math"

	contractx "github.com/natthapon/schedpilot/agent/contract"
	schedx "github.com/natthapon/schedpilot/agent/schedule"
)

const ToolValidateProduction = "schedule.validate_production"

type ProductionFinding struct {
	ActivityID      int64   `json:"activity_id"`
	Code            string  `json:"code"`
	PlannedHours    float64 `json:"planned_hours"`
	TheoreticalHrs  float64 `json:"theoretical_hours"`
	RelativeVar     float64 `json:"relative_variance"`
	ExceedsVariance bool    `json:"exceeds_variance"`
}

type ProductionGap struct {
	ActivityID int64  `json:"activity_id"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
}

type ProductionReport struct {
	ProjectID        int64               `json:"project_id"`
	Checked          int                 `json:"checked"`
	Flagged          []ProductionFinding `json:"flagged"`
	WithinTolerance  int                 `json:"within_tolerance"`
	InsufficientData []ProductionGap     `json:"insufficient_data"`
	Threshold        float64             `json:"variance_threshold"`
}

// NewValidateProductionTool compares planned durations of production-tagged
// activities against volume divided by production rate. Activities missing
// volume or rate (or with a zero rate) are reported under insufficient_data;
// this tool degrades to reporting and never fails on absent attributes.
func NewValidateProductionTool(gw schedx.Gateway, cfg AnalysisConfig) (contractx.ToolSchema, contractx.Handler) {
	schema := contractx.ToolSchema{
		Name:        ToolValidateProduction,
		Description: "Validate production-tagged activities: compare planned duration against volume/rate and flag variances above the configured threshold.",
		Parameters: map[string]contractx.ParamSpec{
			"project_id": {Type: contractx.ParamInteger, Required: true, Description: "Numeric project id"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (any, error) {
		projectID := args["project_id"].(int64)

		activities, err := gw.ListActivities(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrDomainOperation, err)
		}

		report := &ProductionReport{
			ProjectID:        projectID,
			Flagged:          []ProductionFinding{},
			InsufficientData: []ProductionGap{},
			Threshold:        cfg.ProductionVariance,
		}

		for _, a := range activities {
			if !a.IsProduction {
				continue
			}
			report.Checked++

			if reason, ok := productionGap(a); !ok {
				report.InsufficientData = append(report.InsufficientData, ProductionGap{
					ActivityID: a.ID,
					Code:       a.Code,
					Reason:     reason,
				})
				continue
			}

			theoretical := *a.Volume / *a.ProductionRate
			variance := relativeVariance(a.DurationHours, theoretical)
			if variance > cfg.ProductionVariance {
				report.Flagged = append(report.Flagged, ProductionFinding{
					ActivityID:      a.ID,
					Code:            a.Code,
					PlannedHours:    a.DurationHours,
					TheoreticalHrs:  round1(theoretical),
					RelativeVar:     round3(variance),
					ExceedsVariance: true,
				})
			} else {
				report.WithinTolerance++
			}
		}

		return report, nil
	}

	return schema, handler
}

// productionGap reports why an activity cannot be validated; ok is true
// when volume and a non-zero rate are both present.
func productionGap(a schedx.Activity) (string, bool) {
	switch {
	case a.Volume == nil && a.ProductionRate == nil:
		return "volume and production rate missing", false
	case a.Volume == nil:
		return "volume missing", false
	case a.ProductionRate == nil:
		return "production rate missing", false
	case *a.ProductionRate == 0:
		return "production rate is zero", false
	default:
		return "", true
	}
}

func relativeVariance(planned, theoretical float64) float64 {
	if theoretical == 0 {
		return 0
	}
	return math.Abs(planned-theoretical) / theoretical
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
