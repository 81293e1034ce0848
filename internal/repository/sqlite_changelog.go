package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// changeLogColumns is the canonical SELECT column list for stage_change_logs.
const changeLogColumns = `id, project_id, stage_code, request_id, action,
		from_status, to_status, from_actual_start, to_actual_start,
		from_completed_on, to_completed_on, note, actor_id, created_at`

// SQLiteStageChangeLogRepo implements StageChangeLogRepo. Insert-only.
type SQLiteStageChangeLogRepo struct {
	db db.DBTX
}

// NewSQLiteStageChangeLogRepo creates a new SQLiteStageChangeLogRepo.
func NewSQLiteStageChangeLogRepo(conn db.DBTX) *SQLiteStageChangeLogRepo {
	return &SQLiteStageChangeLogRepo{db: conn}
}

func (r *SQLiteStageChangeLogRepo) Append(ctx context.Context, l *domain.StageChangeLog) error {
	if !domain.ValidChangeActions[string(l.Action)] {
		return fmt.Errorf("unknown change action %q: %w", l.Action, domain.ErrConfiguration)
	}
	query := `INSERT INTO stage_change_logs (` + changeLogColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		l.ID,
		l.ProjectID,
		l.StageCode,
		l.RequestID,
		string(l.Action),
		nullableStatusToString(l.FromStatus),
		nullableStatusToString(l.ToStatus),
		nullableTimeToString(l.FromActualStart, dateLayout),
		nullableTimeToString(l.ToActualStart, dateLayout),
		nullableTimeToString(l.FromCompletedOn, dateLayout),
		nullableTimeToString(l.ToCompletedOn, dateLayout),
		l.Note,
		l.ActorID,
		l.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("appending change log: %w", err)
	}
	return nil
}

func (r *SQLiteStageChangeLogRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.StageChangeLog, error) {
	query := `SELECT ` + changeLogColumns + ` FROM stage_change_logs
		WHERE project_id = ? ORDER BY created_at, stage_code`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing change logs: %w", err)
	}
	defer rows.Close()
	return scanChangeLogs(rows)
}

func (r *SQLiteStageChangeLogRepo) ListByStage(ctx context.Context, projectID, stageCode string) ([]*domain.StageChangeLog, error) {
	query := `SELECT ` + changeLogColumns + ` FROM stage_change_logs
		WHERE project_id = ? AND stage_code = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, projectID, stageCode)
	if err != nil {
		return nil, fmt.Errorf("listing change logs by stage: %w", err)
	}
	defer rows.Close()
	return scanChangeLogs(rows)
}

func scanChangeLogs(rows *sql.Rows) ([]*domain.StageChangeLog, error) {
	var logs []*domain.StageChangeLog
	for rows.Next() {
		var l domain.StageChangeLog
		var action, createdAt string
		var fromStatus, toStatus, fromStart, toStart, fromDone, toDone sql.NullString
		if err := rows.Scan(&l.ID, &l.ProjectID, &l.StageCode, &l.RequestID, &action,
			&fromStatus, &toStatus, &fromStart, &toStart, &fromDone, &toDone,
			&l.Note, &l.ActorID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning change log: %w", err)
		}
		l.Action = domain.ChangeAction(action)
		l.FromStatus = parseNullableStatus(fromStatus)
		l.ToStatus = parseNullableStatus(toStatus)
		l.FromActualStart = parseNullableTime(fromStart, dateLayout)
		l.ToActualStart = parseNullableTime(toStart, dateLayout)
		l.FromCompletedOn = parseNullableTime(fromDone, dateLayout)
		l.ToCompletedOn = parseNullableTime(toDone, dateLayout)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			l.CreatedAt = t
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change logs: %w", err)
	}
	return logs, nil
}
