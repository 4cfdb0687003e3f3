package proposal

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	contractx "github.com/natthapon/schedpilot/agent/contract"
	schedx "github.com/natthapon/schedpilot/agent/schedule"
)

type fakeTx struct {
	updateErr  error
	commitErr  error
	updates    int
	committed  bool
	rolledBack bool
}

func (t *fakeTx) UpdateActivity(_ context.Context, _ int64, _ map[string]any) error {
	t.updates++
	return t.updateErr
}

func (t *fakeTx) Commit() error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

type fakeGateway struct {
	beginCalls int
	tx         *fakeTx
}

func (f *fakeGateway) ReadActivity(context.Context, int64) (*schedx.Activity, error) {
	return nil, schedx.ErrActivityNotFound
}

func (f *fakeGateway) ListActivities(context.Context, int64) ([]schedx.Activity, error) {
	return nil, nil
}

func (f *fakeGateway) ListRelationships(context.Context, int64) ([]schedx.Relationship, error) {
	return nil, nil
}

func (f *fakeGateway) Begin(context.Context) (schedx.Tx, error) {
	f.beginCalls++
	return f.tx, nil
}

func storedProposal(t *testing.T, ledger contractx.Ledger) *contractx.Proposal {
	t.Helper()
	p := &contractx.Proposal{
		ID:         "abc123def456",
		ActivityID: 10,
		Changes:    map[string]any{"duration_hours": float64(24)},
		CurrentValues: map[string]any{
			"duration_hours": float64(16),
		},
		Rationale: "crew says 3 days",
		CreatedAt: time.Now().UTC(),
	}
	if err := ledger.Put(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestExecuteWithWritesDisabledNeverTouchesStore(t *testing.T) {
	t.Parallel()

	ledger := NewMemoryLedger()
	storedProposal(t, ledger)
	store := &fakeGateway{tx: &fakeTx{}}
	gw := NewWriteGateway(false, ledger, store)

	_, err := gw.Execute(context.Background(), "abc123def456")
	if !errors.Is(err, contractx.ErrSafetyViolation) {
		t.Fatalf("expected safety violation, got %v", err)
	}
	if store.beginCalls != 0 {
		t.Fatal("disabled writes must not open a transaction")
	}
	if ledger.Len() != 1 {
		t.Fatal("proposal must stay pending")
	}
}

func TestExecuteUnknownProposalMakesNoGatewayCall(t *testing.T) {
	t.Parallel()

	store := &fakeGateway{tx: &fakeTx{}}
	gw := NewWriteGateway(true, NewMemoryLedger(), store)

	_, err := gw.Execute(context.Background(), "zzzz9999")
	if !errors.Is(err, contractx.ErrUnknownProposal) {
		t.Fatalf("expected unknown proposal, got %v", err)
	}
	if store.beginCalls != 0 {
		t.Fatal("unknown id must not open a transaction")
	}
}

func TestExecuteIsOneTimeUse(t *testing.T) {
	t.Parallel()

	gwStore := schedx.NewMemoryGateway()
	gwStore.SeedActivity(schedx.Activity{ID: 10, ProjectID: 1, Code: "X", Name: "Shuttering", DurationHours: 16})

	ledger := NewMemoryLedger()
	storedProposal(t, ledger)
	gw := NewWriteGateway(true, ledger, gwStore)

	result, err := gw.Execute(context.Background(), "abc123def456")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Applied["duration_hours"] != float64(24) {
		t.Fatalf("unexpected applied set: %v", result.Applied)
	}

	activity, err := gwStore.ReadActivity(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if activity.DurationHours != 24 {
		t.Fatalf("expected duration 24, got %v", activity.DurationHours)
	}

	_, err = gw.Execute(context.Background(), "abc123def456")
	if !errors.Is(err, contractx.ErrUnknownProposal) {
		t.Fatalf("second redemption must fail with unknown proposal, got %v", err)
	}
}

func TestExecuteRollsBackAndLeavesProposalPending(t *testing.T) {
	t.Parallel()

	ledger := NewMemoryLedger()
	storedProposal(t, ledger)
	tx := &fakeTx{updateErr: fmt.Errorf("constraint violation")}
	store := &fakeGateway{tx: tx}
	gw := NewWriteGateway(true, ledger, store)

	_, err := gw.Execute(context.Background(), "abc123def456")
	if !errors.Is(err, contractx.ErrDomainOperation) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if !tx.rolledBack {
		t.Fatal("failed update must roll back")
	}
	if tx.committed {
		t.Fatal("failed update must not commit")
	}
	if ledger.Len() != 1 {
		t.Fatal("proposal must stay redeemable after rollback")
	}
}

func TestExecuteCommitFailureLeavesProposalPending(t *testing.T) {
	t.Parallel()

	ledger := NewMemoryLedger()
	storedProposal(t, ledger)
	tx := &fakeTx{commitErr: fmt.Errorf("connection lost")}
	store := &fakeGateway{tx: tx}
	gw := NewWriteGateway(true, ledger, store)

	_, err := gw.Execute(context.Background(), "abc123def456")
	if !errors.Is(err, contractx.ErrDomainOperation) {
		t.Fatalf("expected domain error, got %v", err)
	}
	if !tx.rolledBack {
		t.Fatal("failed commit must roll back")
	}
	if ledger.Len() != 1 {
		t.Fatal("proposal must stay redeemable after commit failure")
	}
}
