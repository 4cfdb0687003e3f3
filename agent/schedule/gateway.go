package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrUnknownField     = errors.New("unknown activity field")
	ErrBadFieldValue    = errors.New("bad field value")
)

// Gateway is the read side of the schedule data store plus the entry point
// into its transactional write primitive. Every mutation goes through a Tx;
// there is no direct update path.
type Gateway interface {
	ReadActivity(ctx context.Context, id int64) (*Activity, error)
	ListActivities(ctx context.Context, projectID int64) ([]Activity, error)
	ListRelationships(ctx context.Context, projectID int64) ([]Relationship, error)
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one open transaction. Commit or Rollback must be called exactly
// once; Rollback after Commit is a no-op for implementations that allow it.
type Tx interface {
	UpdateActivity(ctx context.Context, id int64, changes map[string]any) error
	Commit() error
	Rollback() error
}

// CoerceFieldValue normalizes a proposed value into the store's native type
// for the given writable field. Numeric values arriving from JSON are
// float64; integer-looking strings are rejected rather than guessed at.
func CoerceFieldValue(field string, value any) (any, error) {
	if _, ok := WritableFields[field]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	switch field {
	case FieldName:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string, got %T", ErrBadFieldValue, field, value)
		}
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: %s must not be empty", ErrBadFieldValue, field)
		}
		return s, nil
	case FieldDurationHours, FieldVolume, FieldProductionRate:
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be numeric, got %T", ErrBadFieldValue, field, value)
		}
		if f < 0 {
			return nil, fmt.Errorf("%w: %s must be >= 0", ErrBadFieldValue, field)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
