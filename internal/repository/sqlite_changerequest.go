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

// changeRequestColumns is the canonical SELECT column list for stage_change_requests.
const changeRequestColumns = `id, project_id, stage_code, decision_status,
		requested_status, requested_actual_start, requested_completed_on, reason,
		requested_by, requested_at, decided_by, decided_at, decision_note`

// SQLiteStageChangeRequestRepo implements StageChangeRequestRepo using a SQLite database.
type SQLiteStageChangeRequestRepo struct {
	db db.DBTX
}

// NewSQLiteStageChangeRequestRepo creates a new SQLiteStageChangeRequestRepo.
func NewSQLiteStageChangeRequestRepo(conn db.DBTX) *SQLiteStageChangeRequestRepo {
	return &SQLiteStageChangeRequestRepo{db: conn}
}

func (r *SQLiteStageChangeRequestRepo) Create(ctx context.Context, req *domain.StageChangeRequest) error {
	query := `INSERT INTO stage_change_requests (` + changeRequestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.ProjectID,
		req.StageCode,
		string(req.DecisionStatus),
		nullableStatusToString(req.RequestedStatus),
		nullableTimeToString(req.RequestedActualStart, dateLayout),
		nullableTimeToString(req.RequestedCompletedOn, dateLayout),
		req.Reason,
		req.RequestedBy,
		req.RequestedAt.Format(time.RFC3339),
		req.DecidedBy,
		nullableTimeToString(req.DecidedAt, time.RFC3339),
		req.DecisionNote,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pending request already exists for project %s stage %s: %w",
				req.ProjectID, req.StageCode, domain.ErrIllegalTransition)
		}
		return fmt.Errorf("inserting change request: %w", err)
	}
	return nil
}

func (r *SQLiteStageChangeRequestRepo) GetByID(ctx context.Context, id string) (*domain.StageChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM stage_change_requests WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteStageChangeRequestRepo) GetPending(ctx context.Context, projectID, stageCode string) (*domain.StageChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM stage_change_requests
		WHERE project_id = ? AND stage_code = ? AND decision_status = 'pending'`
	return r.scanOne(r.db.QueryRowContext(ctx, query, projectID, stageCode))
}

func (r *SQLiteStageChangeRequestRepo) ListByProject(ctx context.Context, projectID string) ([]*domain.StageChangeRequest, error) {
	query := `SELECT ` + changeRequestColumns + ` FROM stage_change_requests
		WHERE project_id = ? ORDER BY requested_at, stage_code`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing change requests: %w", err)
	}
	defer rows.Close()

	var reqs []*domain.StageChangeRequest
	for rows.Next() {
		req, err := scanChangeRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning change request: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change requests: %w", err)
	}
	return reqs, nil
}

func (r *SQLiteStageChangeRequestRepo) Update(ctx context.Context, req *domain.StageChangeRequest) error {
	query := `UPDATE stage_change_requests SET
		decision_status = ?, decided_by = ?, decided_at = ?, decision_note = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		string(req.DecisionStatus),
		req.DecidedBy,
		nullableTimeToString(req.DecidedAt, time.RFC3339),
		req.DecisionNote,
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("updating change request: %w", err)
	}
	return nil
}

func (r *SQLiteStageChangeRequestRepo) scanOne(row *sql.Row) (*domain.StageChangeRequest, error) {
	req, err := scanChangeRequest(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("change request: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning change request: %w", err)
	}
	return req, nil
}

func scanChangeRequest(scan func(dest ...any) error) (*domain.StageChangeRequest, error) {
	var req domain.StageChangeRequest
	var decision, requestedAt string
	var reqStatus, reqActualStart, reqCompletedOn, decidedAt sql.NullString

	err := scan(
		&req.ID, &req.ProjectID, &req.StageCode, &decision,
		&reqStatus, &reqActualStart, &reqCompletedOn, &req.Reason,
		&req.RequestedBy, &requestedAt, &req.DecidedBy, &decidedAt, &req.DecisionNote,
	)
	if err != nil {
		return nil, err
	}

	req.DecisionStatus = domain.DecisionStatus(decision)
	req.RequestedStatus = parseNullableStatus(reqStatus)
	req.RequestedActualStart = parseNullableTime(reqActualStart, dateLayout)
	req.RequestedCompletedOn = parseNullableTime(reqCompletedOn, dateLayout)
	if t, err := time.Parse(time.RFC3339, requestedAt); err == nil {
		req.RequestedAt = t
	}
	req.DecidedAt = parseNullableTime(decidedAt, time.RFC3339)
	return &req, nil
}
