package tool

import (
	"context"
	"testing"

	schedx "github.com/natthapon/schedpilot/agent/schedule"
)

func ptr(v float64) *float64 { return &v }

func healthFixture() *schedx.MemoryGateway {
	gw := schedx.NewMemoryGateway()

	// A: no predecessor, not the designated start
	gw.SeedActivity(schedx.Activity{ID: 1, ProjectID: 1, Code: "A", Name: "Orphaned start", DurationHours: 8, TotalFloatHours: ptr(4)})
	// B: negative float
	gw.SeedActivity(schedx.Activity{ID: 2, ProjectID: 1, Code: "B", Name: "Critical slip", DurationHours: 16, TotalFloatHours: ptr(-3)})
	// C: excessive float (45 working days at 8h)
	gw.SeedActivity(schedx.Activity{ID: 3, ProjectID: 1, Code: "C", Name: "Parked work", DurationHours: 8, TotalFloatHours: ptr(45 * 8)})
	// D: float not computed
	gw.SeedActivity(schedx.Activity{ID: 4, ProjectID: 1, Code: "D", Name: "Unscheduled", DurationHours: 8})
	// E: designated finish, clean
	gw.SeedActivity(schedx.Activity{ID: 5, ProjectID: 1, Code: "E", Name: "Done milestone", IsFinish: true, TotalFloatHours: ptr(0)})

	gw.SeedRelationship(schedx.Relationship{PredecessorID: 1, SuccessorID: 2, Type: "FS"})
	gw.SeedRelationship(schedx.Relationship{PredecessorID: 2, SuccessorID: 3, Type: "FS"})
	gw.SeedRelationship(schedx.Relationship{PredecessorID: 3, SuccessorID: 4, Type: "FS"})
	gw.SeedRelationship(schedx.Relationship{PredecessorID: 4, SuccessorID: 5, Type: "FS"})

	return gw
}

func TestHealthCheckClassifiesConditions(t *testing.T) {
	t.Parallel()

	cfg := AnalysisConfig{ExcessiveFloatDays: 44, WorkingDayHours: 8, ProductionVariance: 0.10}
	report, err := runHealthCheck(context.Background(), healthFixture(), cfg, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.ActivityCount != 5 {
		t.Fatalf("expected 5 activities, got %d", report.ActivityCount)
	}
	if report.DanglingLogic.Count != 1 {
		t.Fatalf("expected 1 dangling activity, got %d", report.DanglingLogic.Count)
	}
	if report.NegativeFloat.Count != 1 {
		t.Fatalf("expected 1 negative-float activity, got %d", report.NegativeFloat.Count)
	}
	if report.ExcessiveFloat.Count != 1 {
		t.Fatalf("expected 1 excessive-float activity, got %d", report.ExcessiveFloat.Count)
	}
	if report.FloatUnavailable.Count != 1 {
		t.Fatalf("expected 1 float-unavailable activity, got %d", report.FloatUnavailable.Count)
	}

	conditions := map[int64]string{}
	for _, issue := range report.Issues {
		if prev, dup := conditions[issue.ActivityID]; dup {
			t.Fatalf("activity %d reported twice: %s and %s", issue.ActivityID, prev, issue.Condition)
		}
		conditions[issue.ActivityID] = issue.Condition
	}
	if conditions[1] != "dangling_logic" {
		t.Fatalf("activity 1: got %s", conditions[1])
	}
	if conditions[2] != "negative_float" {
		t.Fatalf("activity 2: got %s", conditions[2])
	}
	if conditions[3] != "excessive_float" {
		t.Fatalf("activity 3: got %s", conditions[3])
	}
	if conditions[4] != "float_unavailable" {
		t.Fatalf("activity 4: got %s", conditions[4])
	}
}

func TestHealthCheckScoreAndPercent(t *testing.T) {
	t.Parallel()

	gw := schedx.NewMemoryGateway()
	gw.SeedActivity(schedx.Activity{ID: 1, ProjectID: 2, Code: "S", IsStart: true, TotalFloatHours: ptr(0)})
	gw.SeedActivity(schedx.Activity{ID: 2, ProjectID: 2, Code: "F", IsFinish: true, TotalFloatHours: ptr(0)})
	gw.SeedRelationship(schedx.Relationship{PredecessorID: 1, SuccessorID: 2, Type: "FS"})

	cfg := AnalysisConfig{ExcessiveFloatDays: 44, WorkingDayHours: 8}
	report, err := runHealthCheck(context.Background(), gw, cfg, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Score != 1.0 {
		t.Fatalf("clean schedule must score 1.0, got %v", report.Score)
	}
	if report.DanglingLogic.Percent != 0 {
		t.Fatalf("unexpected percent: %v", report.DanglingLogic.Percent)
	}
	if len(report.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", report.Issues)
	}
}

func TestHealthCheckMissingFloatNotTreatedAsZero(t *testing.T) {
	t.Parallel()

	gw := schedx.NewMemoryGateway()
	gw.SeedActivity(schedx.Activity{ID: 1, ProjectID: 3, Code: "X", IsStart: true, IsFinish: true})

	cfg := AnalysisConfig{ExcessiveFloatDays: 44, WorkingDayHours: 8}
	report, err := runHealthCheck(context.Background(), gw, cfg, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.FloatUnavailable.Count != 1 {
		t.Fatalf("expected unavailable bucket, got %+v", report)
	}
	if report.NegativeFloat.Count != 0 || report.ExcessiveFloat.Count != 0 {
		t.Fatal("missing float must not land in a float condition bucket")
	}
}
