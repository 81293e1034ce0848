package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// projectStageColumns is the canonical SELECT column list for project_stages.
const projectStageColumns = `id, project_id, stage_code, status,
		planned_start, planned_due, forecast_start, forecast_due,
		actual_start, completed_on, is_auto_completed, auto_completed_from_code,
		requires_backfill, row_version, created_at, updated_at`

// SQLiteProjectStageRepo implements ProjectStageRepo using a SQLite database.
type SQLiteProjectStageRepo struct {
	db db.DBTX
}

// NewSQLiteProjectStageRepo creates a new SQLiteProjectStageRepo.
func NewSQLiteProjectStageRepo(conn db.DBTX) *SQLiteProjectStageRepo {
	return &SQLiteProjectStageRepo{db: conn}
}

func (r *SQLiteProjectStageRepo) Create(ctx context.Context, s *domain.ProjectStage) error {
	if s.RowVersion == 0 {
		s.RowVersion = 1
	}
	query := `INSERT INTO project_stages (` + projectStageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.ProjectID,
		s.StageCode,
		string(s.Status),
		nullableTimeToString(s.PlannedStart, dateLayout),
		nullableTimeToString(s.PlannedDue, dateLayout),
		nullableTimeToString(s.ForecastStart, dateLayout),
		nullableTimeToString(s.ForecastDue, dateLayout),
		nullableTimeToString(s.ActualStart, dateLayout),
		nullableTimeToString(s.CompletedOn, dateLayout),
		boolToInt(s.IsAutoCompleted),
		s.AutoCompletedFromCode,
		boolToInt(s.RequiresBackfill),
		s.RowVersion,
		s.CreatedAt.Format(time.RFC3339),
		s.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting project stage: %w", err)
	}
	return nil
}

func (r *SQLiteProjectStageRepo) GetByCode(ctx context.Context, projectID, stageCode string) (*domain.ProjectStage, error) {
	query := `SELECT ` + projectStageColumns + ` FROM project_stages
		WHERE project_id = ? AND stage_code = ?`
	row := r.db.QueryRowContext(ctx, query, projectID, stageCode)
	return r.scanStage(row)
}

func (r *SQLiteProjectStageRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.ProjectStage, error) {
	query := `SELECT ` + projectStageColumns + ` FROM project_stages
		WHERE project_id = ? ORDER BY stage_code`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing project stages: %w", err)
	}
	defer rows.Close()

	var stages []*domain.ProjectStage
	for rows.Next() {
		s, err := r.scanStageRow(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating project stages: %w", err)
	}
	return stages, nil
}

// Update writes the row only when the stored row version matches the
// one read; stale writes fail with domain.ErrConcurrencyConflict. The
// in-memory RowVersion is bumped on success.
func (r *SQLiteProjectStageRepo) Update(ctx context.Context, s *domain.ProjectStage) error {
	query := `UPDATE project_stages SET
		status = ?, planned_start = ?, planned_due = ?,
		forecast_start = ?, forecast_due = ?,
		actual_start = ?, completed_on = ?,
		is_auto_completed = ?, auto_completed_from_code = ?, requires_backfill = ?,
		row_version = row_version + 1, updated_at = ?
		WHERE id = ? AND row_version = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(s.Status),
		nullableTimeToString(s.PlannedStart, dateLayout),
		nullableTimeToString(s.PlannedDue, dateLayout),
		nullableTimeToString(s.ForecastStart, dateLayout),
		nullableTimeToString(s.ForecastDue, dateLayout),
		nullableTimeToString(s.ActualStart, dateLayout),
		nullableTimeToString(s.CompletedOn, dateLayout),
		boolToInt(s.IsAutoCompleted),
		s.AutoCompletedFromCode,
		boolToInt(s.RequiresBackfill),
		s.UpdatedAt.Format(time.RFC3339),
		s.ID,
		s.RowVersion,
	)
	if err != nil {
		return fmt.Errorf("updating project stage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project stage %s version %d: %w", s.ID, s.RowVersion, domain.ErrConcurrencyConflict)
	}
	s.RowVersion++
	return nil
}

func (r *SQLiteProjectStageRepo) scanStage(row *sql.Row) (*domain.ProjectStage, error) {
	s, err := scanProjectStage(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project stage: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning project stage: %w", err)
	}
	return s, nil
}

func (r *SQLiteProjectStageRepo) scanStageRow(rows *sql.Rows) (*domain.ProjectStage, error) {
	s, err := scanProjectStage(rows.Scan)
	if err != nil {
		return nil, fmt.Errorf("scanning project stage: %w", err)
	}
	return s, nil
}

func scanProjectStage(scan func(dest ...any) error) (*domain.ProjectStage, error) {
	var s domain.ProjectStage
	var status, createdAt, updatedAt string
	var plannedStart, plannedDue, forecastStart, forecastDue, actualStart, completedOn sql.NullString
	var autoCompleted, requiresBackfill int

	err := scan(
		&s.ID, &s.ProjectID, &s.StageCode, &status,
		&plannedStart, &plannedDue, &forecastStart, &forecastDue,
		&actualStart, &completedOn, &autoCompleted, &s.AutoCompletedFromCode,
		&requiresBackfill, &s.RowVersion, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = domain.StageStatus(status)
	s.PlannedStart = parseNullableTime(plannedStart, dateLayout)
	s.PlannedDue = parseNullableTime(plannedDue, dateLayout)
	s.ForecastStart = parseNullableTime(forecastStart, dateLayout)
	s.ForecastDue = parseNullableTime(forecastDue, dateLayout)
	s.ActualStart = parseNullableTime(actualStart, dateLayout)
	s.CompletedOn = parseNullableTime(completedOn, dateLayout)
	s.IsAutoCompleted = intToBool(autoCompleted)
	s.RequiresBackfill = intToBool(requiresBackfill)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		s.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		s.UpdatedAt = t
	}
	return &s, nil
}
