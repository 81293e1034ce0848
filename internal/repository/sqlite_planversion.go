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

// planVersionColumns is the canonical SELECT column list for plan_versions.
const planVersionColumns = `id, project_id, version_no, status,
		anchor_date, anchor_stage_code, skip_weekends, transition_rule, pnc_applicable,
		owner_user_id, is_active, submitted_at, approved_at, approved_by,
		rejected_at, rejected_by, rejection_note, row_version, created_at, updated_at`

// SQLitePlanVersionRepo implements PlanVersionRepo using a SQLite database.
type SQLitePlanVersionRepo struct {
	db db.DBTX
}

// NewSQLitePlanVersionRepo creates a new SQLitePlanVersionRepo.
func NewSQLitePlanVersionRepo(conn db.DBTX) *SQLitePlanVersionRepo {
	return &SQLitePlanVersionRepo{db: conn}
}

func (r *SQLitePlanVersionRepo) Create(ctx context.Context, v *domain.PlanVersion) error {
	if v.RowVersion == 0 {
		v.RowVersion = 1
	}
	query := `INSERT INTO plan_versions (` + planVersionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		v.ID,
		v.ProjectID,
		v.VersionNo,
		string(v.Status),
		v.AnchorDate.Format(dateLayout),
		v.AnchorStageCode,
		boolToInt(v.SkipWeekends),
		string(v.TransitionRule),
		boolToInt(v.PncApplicable),
		v.OwnerUserID,
		boolToInt(v.IsActive),
		nullableTimeToString(v.SubmittedAt, time.RFC3339),
		nullableTimeToString(v.ApprovedAt, time.RFC3339),
		v.ApprovedBy,
		nullableTimeToString(v.RejectedAt, time.RFC3339),
		v.RejectedBy,
		v.RejectionNote,
		v.RowVersion,
		v.CreatedAt.Format(time.RFC3339),
		v.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("draft already exists for project %s owner %s: %w",
				v.ProjectID, v.OwnerUserID, domain.ErrIllegalTransition)
		}
		return fmt.Errorf("inserting plan version: %w", err)
	}
	return nil
}

func (r *SQLitePlanVersionRepo) GetByID(ctx context.Context, id string) (*domain.PlanVersion, error) {
	query := `SELECT ` + planVersionColumns + ` FROM plan_versions WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLitePlanVersionRepo) GetDraft(ctx context.Context, projectID, ownerUserID string) (*domain.PlanVersion, error) {
	query := `SELECT ` + planVersionColumns + ` FROM plan_versions
		WHERE project_id = ? AND owner_user_id = ? AND status = 'draft'`
	return r.scanOne(r.db.QueryRowContext(ctx, query, projectID, ownerUserID))
}

func (r *SQLitePlanVersionRepo) GetActive(ctx context.Context, projectID string) (*domain.PlanVersion, error) {
	query := `SELECT ` + planVersionColumns + ` FROM plan_versions
		WHERE project_id = ? AND is_active = 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, projectID))
}

func (r *SQLitePlanVersionRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.PlanVersion, error) {
	query := `SELECT ` + planVersionColumns + ` FROM plan_versions
		WHERE project_id = ? ORDER BY version_no`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing plan versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.PlanVersion
	for rows.Next() {
		v, err := scanPlanVersion(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning plan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan versions: %w", err)
	}
	return versions, nil
}

func (r *SQLitePlanVersionRepo) NextVersionNo(ctx context.Context, projectID string) (int, error) {
	var maxNo sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(version_no) FROM plan_versions WHERE project_id = ?`, projectID).Scan(&maxNo)
	if err != nil {
		return 0, fmt.Errorf("finding max version no: %w", err)
	}
	return int(maxNo.Int64) + 1, nil
}

// Update writes the row guarded by its optimistic row version.
func (r *SQLitePlanVersionRepo) Update(ctx context.Context, v *domain.PlanVersion) error {
	query := `UPDATE plan_versions SET
		status = ?, is_active = ?, submitted_at = ?, approved_at = ?, approved_by = ?,
		rejected_at = ?, rejected_by = ?, rejection_note = ?,
		anchor_date = ?, anchor_stage_code = ?, skip_weekends = ?, transition_rule = ?,
		pnc_applicable = ?, row_version = row_version + 1, updated_at = ?
		WHERE id = ? AND row_version = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(v.Status),
		boolToInt(v.IsActive),
		nullableTimeToString(v.SubmittedAt, time.RFC3339),
		nullableTimeToString(v.ApprovedAt, time.RFC3339),
		v.ApprovedBy,
		nullableTimeToString(v.RejectedAt, time.RFC3339),
		v.RejectedBy,
		v.RejectionNote,
		v.AnchorDate.Format(dateLayout),
		v.AnchorStageCode,
		boolToInt(v.SkipWeekends),
		string(v.TransitionRule),
		boolToInt(v.PncApplicable),
		v.UpdatedAt.Format(time.RFC3339),
		v.ID,
		v.RowVersion,
	)
	if err != nil {
		return fmt.Errorf("updating plan version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("plan version %s version %d: %w", v.ID, v.RowVersion, domain.ErrConcurrencyConflict)
	}
	v.RowVersion++
	return nil
}

func (r *SQLitePlanVersionRepo) scanOne(row *sql.Row) (*domain.PlanVersion, error) {
	v, err := scanPlanVersion(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plan version: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning plan version: %w", err)
	}
	return v, nil
}

func scanPlanVersion(scan func(dest ...any) error) (*domain.PlanVersion, error) {
	var v domain.PlanVersion
	var status, anchorDate, rule, createdAt, updatedAt string
	var submittedAt, approvedAt, rejectedAt sql.NullString
	var skipWeekends, pnc, isActive int

	err := scan(
		&v.ID, &v.ProjectID, &v.VersionNo, &status,
		&anchorDate, &v.AnchorStageCode, &skipWeekends, &rule, &pnc,
		&v.OwnerUserID, &isActive, &submittedAt, &approvedAt, &v.ApprovedBy,
		&rejectedAt, &v.RejectedBy, &v.RejectionNote, &v.RowVersion, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.Status = domain.PlanVersionStatus(status)
	v.TransitionRule = domain.TransitionRule(rule)
	v.SkipWeekends = intToBool(skipWeekends)
	v.PncApplicable = intToBool(pnc)
	v.IsActive = intToBool(isActive)
	if t, err := time.Parse(dateLayout, anchorDate); err == nil {
		v.AnchorDate = t
	}
	v.SubmittedAt = parseNullableTime(submittedAt, time.RFC3339)
	v.ApprovedAt = parseNullableTime(approvedAt, time.RFC3339)
	v.RejectedAt = parseNullableTime(rejectedAt, time.RFC3339)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		v.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		v.UpdatedAt = t
	}
	return &v, nil
}
