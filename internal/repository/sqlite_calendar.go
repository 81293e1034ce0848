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

// SQLiteHolidayRepo implements HolidayRepo using a SQLite database.
type SQLiteHolidayRepo struct {
	db db.DBTX
}

// NewSQLiteHolidayRepo creates a new SQLiteHolidayRepo.
func NewSQLiteHolidayRepo(conn db.DBTX) *SQLiteHolidayRepo {
	return &SQLiteHolidayRepo{db: conn}
}

func (r *SQLiteHolidayRepo) Upsert(ctx context.Context, h *domain.Holiday) error {
	query := `INSERT INTO holidays (date, name) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET name = excluded.name`
	_, err := r.db.ExecContext(ctx, query, h.Date.Format(dateLayout), h.Name)
	if err != nil {
		return fmt.Errorf("upserting holiday: %w", err)
	}
	return nil
}

func (r *SQLiteHolidayRepo) List(ctx context.Context) ([]domain.Holiday, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, name FROM holidays ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("listing holidays: %w", err)
	}
	defer rows.Close()

	// Distinguish "no holidays" from "never loaded": an empty table
	// still yields a non-nil slice.
	holidays := []domain.Holiday{}
	for rows.Next() {
		var dateStr string
		var h domain.Holiday
		if err := rows.Scan(&dateStr, &h.Name); err != nil {
			return nil, fmt.Errorf("scanning holiday: %w", err)
		}
		t, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("parsing holiday date %q: %w", dateStr, err)
		}
		h.Date = t
		holidays = append(holidays, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating holidays: %w", err)
	}
	return holidays, nil
}

// SQLiteScheduleSettingsRepo implements ScheduleSettingsRepo using a SQLite database.
type SQLiteScheduleSettingsRepo struct {
	db db.DBTX
}

// NewSQLiteScheduleSettingsRepo creates a new SQLiteScheduleSettingsRepo.
func NewSQLiteScheduleSettingsRepo(conn db.DBTX) *SQLiteScheduleSettingsRepo {
	return &SQLiteScheduleSettingsRepo{db: conn}
}

func (r *SQLiteScheduleSettingsRepo) Get(ctx context.Context, projectID string) (*domain.ProjectScheduleSettings, error) {
	query := `SELECT project_id, template_version, include_weekends, skip_holidays,
		start_policy, transition_rule, anchor_start, anchor_stage_code, created_at, updated_at
		FROM project_schedule_settings WHERE project_id = ?`
	row := r.db.QueryRowContext(ctx, query, projectID)

	var s domain.ProjectScheduleSettings
	var includeWeekends, skipHolidays int
	var policy, rule, anchorStart, createdAt, updatedAt string
	err := row.Scan(&s.ProjectID, &s.TemplateVersion, &includeWeekends, &skipHolidays,
		&policy, &rule, &anchorStart, &s.AnchorStageCode, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("schedule settings for project %s: %w", projectID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning schedule settings: %w", err)
	}

	s.IncludeWeekends = intToBool(includeWeekends)
	s.SkipHolidays = intToBool(skipHolidays)
	s.StartPolicy = domain.StartPolicy(policy)
	s.TransitionRule = domain.TransitionRule(rule)
	if t, err := time.Parse(dateLayout, anchorStart); err == nil {
		s.AnchorStart = t
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		s.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		s.UpdatedAt = t
	}
	return &s, nil
}

func (r *SQLiteScheduleSettingsRepo) Upsert(ctx context.Context, s *domain.ProjectScheduleSettings) error {
	query := `INSERT INTO project_schedule_settings (
		project_id, template_version, include_weekends, skip_holidays,
		start_policy, transition_rule, anchor_start, anchor_stage_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			template_version = excluded.template_version,
			include_weekends = excluded.include_weekends,
			skip_holidays = excluded.skip_holidays,
			start_policy = excluded.start_policy,
			transition_rule = excluded.transition_rule,
			anchor_start = excluded.anchor_start,
			anchor_stage_code = excluded.anchor_stage_code,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		s.ProjectID,
		s.TemplateVersion,
		boolToInt(s.IncludeWeekends),
		boolToInt(s.SkipHolidays),
		string(s.StartPolicy),
		string(s.TransitionRule),
		s.AnchorStart.Format(dateLayout),
		s.AnchorStageCode,
		s.CreatedAt.Format(time.RFC3339),
		s.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting schedule settings: %w", err)
	}
	return nil
}
