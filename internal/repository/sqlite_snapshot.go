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

// SQLiteSnapshotRepo implements SnapshotRepo using a SQLite database.
type SQLiteSnapshotRepo struct {
	db db.DBTX
}

// NewSQLiteSnapshotRepo creates a new SQLiteSnapshotRepo.
func NewSQLiteSnapshotRepo(conn db.DBTX) *SQLiteSnapshotRepo {
	return &SQLiteSnapshotRepo{db: conn}
}

// Create inserts the snapshot header and all its rows. Callers run this
// inside a transaction; the repo itself does not manage one.
func (r *SQLiteSnapshotRepo) Create(ctx context.Context, s *domain.ProjectPlanSnapshot, rows []domain.ProjectPlanSnapshotRow) error {
	query := `INSERT INTO project_plan_snapshots (id, project_id, plan_version_id, version_no, taken_by, taken_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.ProjectID, s.PlanVersionID, s.VersionNo, s.TakenBy, s.TakenAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting plan snapshot: %w", err)
	}

	rowQuery := `INSERT INTO project_plan_snapshot_rows (id, snapshot_id, stage_code, planned_start, planned_due)
		VALUES (?, ?, ?, ?, ?)`
	for _, row := range rows {
		if _, err := r.db.ExecContext(ctx, rowQuery,
			row.ID, s.ID, row.StageCode,
			nullableTimeToString(row.PlannedStart, dateLayout),
			nullableTimeToString(row.PlannedDue, dateLayout)); err != nil {
			return fmt.Errorf("inserting snapshot row for stage %s: %w", row.StageCode, err)
		}
	}
	return nil
}

func (r *SQLiteSnapshotRepo) GetByID(ctx context.Context, id string) (*domain.ProjectPlanSnapshot, error) {
	query := `SELECT id, project_id, plan_version_id, version_no, taken_by, taken_at
		FROM project_plan_snapshots WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	s, err := scanSnapshot(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plan snapshot: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning plan snapshot: %w", err)
	}
	return s, nil
}

func (r *SQLiteSnapshotRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.ProjectPlanSnapshot, error) {
	query := `SELECT id, project_id, plan_version_id, version_no, taken_by, taken_at
		FROM project_plan_snapshots WHERE project_id = ? ORDER BY taken_at, version_no`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing plan snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.ProjectPlanSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning plan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan snapshots: %w", err)
	}
	return snaps, nil
}

func (r *SQLiteSnapshotRepo) ListRows(ctx context.Context, snapshotID string) ([]domain.ProjectPlanSnapshotRow, error) {
	query := `SELECT id, snapshot_id, stage_code, planned_start, planned_due
		FROM project_plan_snapshot_rows WHERE snapshot_id = ? ORDER BY stage_code`
	rows, err := r.db.QueryContext(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot rows: %w", err)
	}
	defer rows.Close()

	var out []domain.ProjectPlanSnapshotRow
	for rows.Next() {
		var row domain.ProjectPlanSnapshotRow
		var start, due sql.NullString
		if err := rows.Scan(&row.ID, &row.SnapshotID, &row.StageCode, &start, &due); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		row.PlannedStart = parseNullableTime(start, dateLayout)
		row.PlannedDue = parseNullableTime(due, dateLayout)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot rows: %w", err)
	}
	return out, nil
}

func scanSnapshot(scan func(dest ...any) error) (*domain.ProjectPlanSnapshot, error) {
	var s domain.ProjectPlanSnapshot
	var takenAt string
	if err := scan(&s.ID, &s.ProjectID, &s.PlanVersionID, &s.VersionNo, &s.TakenBy, &takenAt); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, takenAt); err == nil {
		s.TakenAt = t
	}
	return &s, nil
}
