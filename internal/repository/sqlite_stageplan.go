package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// SQLiteStagePlanRepo implements StagePlanRepo using a SQLite database.
type SQLiteStagePlanRepo struct {
	db db.DBTX
}

// NewSQLiteStagePlanRepo creates a new SQLiteStagePlanRepo.
func NewSQLiteStagePlanRepo(conn db.DBTX) *SQLiteStagePlanRepo {
	return &SQLiteStagePlanRepo{db: conn}
}

func (r *SQLiteStagePlanRepo) Create(ctx context.Context, p *domain.StagePlan) error {
	query := `INSERT INTO stage_plans (id, plan_version_id, stage_code, planned_start, planned_due)
		VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.PlanVersionID,
		p.StageCode,
		nullableTimeToString(p.PlannedStart, dateLayout),
		nullableTimeToString(p.PlannedDue, dateLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting stage plan: %w", err)
	}
	return nil
}

func (r *SQLiteStagePlanRepo) ListByVersion(ctx context.Context, planVersionID string) ([]*domain.StagePlan, error) {
	query := `SELECT id, plan_version_id, stage_code, planned_start, planned_due
		FROM stage_plans WHERE plan_version_id = ? ORDER BY stage_code`
	rows, err := r.db.QueryContext(ctx, query, planVersionID)
	if err != nil {
		return nil, fmt.Errorf("listing stage plans: %w", err)
	}
	defer rows.Close()

	var plans []*domain.StagePlan
	for rows.Next() {
		var p domain.StagePlan
		var start, due sql.NullString
		if err := rows.Scan(&p.ID, &p.PlanVersionID, &p.StageCode, &start, &due); err != nil {
			return nil, fmt.Errorf("scanning stage plan: %w", err)
		}
		p.PlannedStart = parseNullableTime(start, dateLayout)
		p.PlannedDue = parseNullableTime(due, dateLayout)
		plans = append(plans, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stage plans: %w", err)
	}
	return plans, nil
}

func (r *SQLiteStagePlanRepo) DeleteByVersion(ctx context.Context, planVersionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM stage_plans WHERE plan_version_id = ?`, planVersionID)
	if err != nil {
		return fmt.Errorf("deleting stage plans: %w", err)
	}
	return nil
}
