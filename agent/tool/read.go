package tool

import (
	"context"
	"fmt"

	contractx "github.com/natthapon/schedpilot/agent/contract"
	schedx "github.com/natthapon/schedpilot/agent/schedule"
)

const (
	ToolActivityGet  = "activity.get"
	ToolActivityList = "activity.list"
)

// NewActivityGetTool returns the read tool for a single activity.
func NewActivityGetTool(gw schedx.Gateway) (contractx.ToolSchema, contractx.Handler) {
	schema := contractx.ToolSchema{
		Name:        ToolActivityGet,
		Description: "Read one schedule activity by its numeric id, including duration, total float, and production attributes.",
		Parameters: map[string]contractx.ParamSpec{
			"activity_id": {Type: contractx.ParamInteger, Required: true, Description: "Numeric activity id"},
		},
	}

	handler := func(ctx context.Context, args map[string]any) (any, error) {
		id := args["activity_id"].(int64)
		activity, err := gw.ReadActivity(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrDomainOperation, err)
		}
		return activity, nil
	}

	return schema, handler
}

// NewActivityListTool returns the read tool for all activities of a project.
func NewActivityListTool(gw schedx.Gateway) (contractx.ToolSchema, contractx.Handler) {
	schema := contractx.ToolSchema{
		Name:        ToolActivityList,
		Description: "List every activity in a project with schedule attributes.",
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
		return map[string]any{
			"project_id": projectID,
			"count":      len(activities),
			"activities": activities,
		}, nil
	}

	return schema, handler
}
