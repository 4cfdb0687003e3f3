package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresConfig configures the bun-backed gateway.
type PostgresConfig struct {
	DSN          string        `envconfig:"DSN" split_words:"true"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"10s"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"4"`
}

type activityRow struct {
	bun.BaseModel `bun:"table:activities,alias:a"`

	ID              int64    `bun:"id,pk,autoincrement"`
	ProjectID       int64    `bun:"project_id,notnull"`
	Code            string   `bun:"code,notnull"`
	Name            string   `bun:"name,notnull"`
	DurationHours   float64  `bun:"duration_hours,notnull"`
	TotalFloatHours *float64 `bun:"total_float_hours"`
	IsStart         bool     `bun:"is_start,notnull,default:false"`
	IsFinish        bool     `bun:"is_finish,notnull,default:false"`
	IsProduction    bool     `bun:"is_production,notnull,default:false"`
	Volume          *float64 `bun:"volume"`
	ProductionRate  *float64 `bun:"production_rate"`
}

type relationshipRow struct {
	bun.BaseModel `bun:"table:relationships,alias:r"`

	PredecessorID int64  `bun:"predecessor_id,pk"`
	SuccessorID   int64  `bun:"successor_id,pk"`
	Type          string `bun:"type,notnull,default:'FS'"`
}

// BunGateway is the Postgres implementation of Gateway.
type BunGateway struct {
	db *bun.DB
}

var _ Gateway = (*BunGateway)(nil)

// NewBunGateway opens a pgdriver connection and wraps it in bun.
func NewBunGateway(cfg PostgresConfig) (*BunGateway, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}

	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
	)
	sqldb := sql.OpenDB(connector)
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return &BunGateway{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

func (g *BunGateway) ReadActivity(ctx context.Context, id int64) (*Activity, error) {
	row := new(activityRow)
	err := g.db.NewSelect().Model(row).Where("a.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", ErrActivityNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read activity id=%d: %w", id, err)
	}
	return row.toActivity(), nil
}

func (g *BunGateway) ListActivities(ctx context.Context, projectID int64) ([]Activity, error) {
	var rows []activityRow
	err := g.db.NewSelect().Model(&rows).
		Where("a.project_id = ?", projectID).
		Order("a.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activities project=%d: %w", projectID, err)
	}

	out := make([]Activity, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toActivity())
	}
	return out, nil
}

func (g *BunGateway) ListRelationships(ctx context.Context, projectID int64) ([]Relationship, error) {
	var rows []relationshipRow
	err := g.db.NewSelect().Model(&rows).
		Join("JOIN activities AS a ON a.id = r.predecessor_id").
		Where("a.project_id = ?", projectID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list relationships project=%d: %w", projectID, err)
	}

	out := make([]Relationship, 0, len(rows))
	for _, r := range rows {
		out = append(out, Relationship{
			PredecessorID: r.PredecessorID,
			SuccessorID:   r.SuccessorID,
			Type:          r.Type,
		})
	}
	return out, nil
}

func (g *BunGateway) Begin(ctx context.Context) (Tx, error) {
	tx, err := g.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &bunTx{tx: tx}, nil
}

type bunTx struct {
	tx bun.Tx
}

func (t *bunTx) UpdateActivity(ctx context.Context, id int64, changes map[string]any) error {
	if len(changes) == 0 {
		return fmt.Errorf("%w: empty change set", ErrBadFieldValue)
	}

	q := t.tx.NewUpdate().Model((*activityRow)(nil)).Where("id = ?", id)
	for field, value := range changes {
		coerced, err := CoerceFieldValue(field, value)
		if err != nil {
			return err
		}
		q = q.Set("? = ?", bun.Ident(field), coerced)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update activity id=%d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update activity id=%d: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: id=%d", ErrActivityNotFound, id)
	}
	return nil
}

func (t *bunTx) Commit() error {
	return t.tx.Commit()
}

func (t *bunTx) Rollback() error {
	return t.tx.Rollback()
}

func (r *activityRow) toActivity() *Activity {
	return &Activity{
		ID:              r.ID,
		ProjectID:       r.ProjectID,
		Code:            r.Code,
		Name:            r.Name,
		DurationHours:   r.DurationHours,
		TotalFloatHours: r.TotalFloatHours,
		IsStart:         r.IsStart,
		IsFinish:        r.IsFinish,
		IsProduction:    r.IsProduction,
		Volume:          r.Volume,
		ProductionRate:  r.ProductionRate,
	}
}
