package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// shiftLogColumns is the canonical SELECT column list for stage_shift_logs.
const shiftLogColumns = `id, project_id, stage_code, old_forecast_due, new_forecast_due,
		delta_days, cause_stage_code, cause_type, created_on, created_by_user_id`

// SQLiteStageShiftLogRepo implements StageShiftLogRepo. Insert-only: the
// table has no update or delete path.
type SQLiteStageShiftLogRepo struct {
	db db.DBTX
}

// NewSQLiteStageShiftLogRepo creates a new SQLiteStageShiftLogRepo.
func NewSQLiteStageShiftLogRepo(conn db.DBTX) *SQLiteStageShiftLogRepo {
	return &SQLiteStageShiftLogRepo{db: conn}
}

func (r *SQLiteStageShiftLogRepo) Append(ctx context.Context, l *domain.StageShiftLog) error {
	query := `INSERT INTO stage_shift_logs (` + shiftLogColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		l.ID,
		l.ProjectID,
		l.StageCode,
		nullableTimeToString(l.OldForecastDue, dateLayout),
		nullableTimeToString(l.NewForecastDue, dateLayout),
		l.DeltaDays,
		l.CauseStageCode,
		string(l.CauseType),
		l.CreatedOn.Format(time.RFC3339),
		l.CreatedByUserID,
	)
	if err != nil {
		return fmt.Errorf("appending shift log: %w", err)
	}
	return nil
}

func (r *SQLiteStageShiftLogRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.StageShiftLog, error) {
	query := `SELECT ` + shiftLogColumns + ` FROM stage_shift_logs
		WHERE project_id = ? ORDER BY created_on, stage_code`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing shift logs: %w", err)
	}
	defer rows.Close()
	return scanShiftLogs(rows)
}

func (r *SQLiteStageShiftLogRepo) ListByStage(ctx context.Context, projectID, stageCode string) ([]*domain.StageShiftLog, error) {
	query := `SELECT ` + shiftLogColumns + ` FROM stage_shift_logs
		WHERE project_id = ? AND stage_code = ? ORDER BY created_on`
	rows, err := r.db.QueryContext(ctx, query, projectID, stageCode)
	if err != nil {
		return nil, fmt.Errorf("listing shift logs by stage: %w", err)
	}
	defer rows.Close()
	return scanShiftLogs(rows)
}

func scanShiftLogs(rows *sql.Rows) ([]*domain.StageShiftLog, error) {
	var logs []*domain.StageShiftLog
	for rows.Next() {
		var l domain.StageShiftLog
		var oldDue, newDue sql.NullString
		var cause, createdOn string
		if err := rows.Scan(&l.ID, &l.ProjectID, &l.StageCode, &oldDue, &newDue,
			&l.DeltaDays, &l.CauseStageCode, &cause, &createdOn, &l.CreatedByUserID); err != nil {
			return nil, fmt.Errorf("scanning shift log: %w", err)
		}
		l.OldForecastDue = parseNullableTime(oldDue, dateLayout)
		l.NewForecastDue = parseNullableTime(newDue, dateLayout)
		l.CauseType = domain.ShiftCause(cause)
		if t, err := time.Parse(time.RFC3339, createdOn); err == nil {
			l.CreatedOn = t
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating shift logs: %w", err)
	}
	return logs, nil
}
