package db

import (
	"database/sql"
	"fmt"
)

// Migrate runs all schema migrations. Every statement is IF NOT EXISTS,
// so the list is safe to re-run on an existing database.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS stage_templates (
		version        TEXT NOT NULL,
		code           TEXT NOT NULL,
		name           TEXT NOT NULL,
		sequence       INTEGER NOT NULL DEFAULT 0,
		optional       INTEGER NOT NULL DEFAULT 0,
		parallel_group TEXT NOT NULL DEFAULT '',
		duration_days  INTEGER,
		PRIMARY KEY (version, code)
	)`,

	`CREATE TABLE IF NOT EXISTS stage_dependency_templates (
		version               TEXT NOT NULL,
		from_stage_code       TEXT NOT NULL,
		depends_on_stage_code TEXT NOT NULL,
		PRIMARY KEY (version, from_stage_code, depends_on_stage_code)
	)`,

	`CREATE TABLE IF NOT EXISTS project_stages (
		id                       TEXT PRIMARY KEY,
		project_id               TEXT NOT NULL,
		stage_code               TEXT NOT NULL,
		status                   TEXT NOT NULL DEFAULT 'not_started'
		                         CHECK(status IN ('not_started','in_progress','completed','on_hold','skipped')),
		planned_start            TEXT,
		planned_due              TEXT,
		forecast_start           TEXT,
		forecast_due             TEXT,
		actual_start             TEXT,
		completed_on             TEXT,
		is_auto_completed        INTEGER NOT NULL DEFAULT 0,
		auto_completed_from_code TEXT NOT NULL DEFAULT '',
		requires_backfill        INTEGER NOT NULL DEFAULT 0,
		row_version              INTEGER NOT NULL DEFAULT 1,
		created_at               TEXT NOT NULL,
		updated_at               TEXT NOT NULL,
		UNIQUE (project_id, stage_code)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_project_stages_project ON project_stages(project_id)`,

	`CREATE TABLE IF NOT EXISTS plan_versions (
		id                TEXT PRIMARY KEY,
		project_id        TEXT NOT NULL,
		version_no        INTEGER NOT NULL,
		status            TEXT NOT NULL DEFAULT 'draft'
		                  CHECK(status IN ('draft','submitted','approved','rejected')),
		anchor_date       TEXT NOT NULL,
		anchor_stage_code TEXT NOT NULL,
		skip_weekends     INTEGER NOT NULL DEFAULT 1,
		transition_rule   TEXT NOT NULL DEFAULT 'next_working_day'
		                  CHECK(transition_rule IN ('next_working_day','same_day','next_calendar_day')),
		pnc_applicable    INTEGER NOT NULL DEFAULT 0,
		owner_user_id     TEXT NOT NULL,
		is_active         INTEGER NOT NULL DEFAULT 0,
		submitted_at      TEXT,
		approved_at       TEXT,
		approved_by       TEXT NOT NULL DEFAULT '',
		rejected_at       TEXT,
		rejected_by       TEXT NOT NULL DEFAULT '',
		rejection_note    TEXT NOT NULL DEFAULT '',
		row_version       INTEGER NOT NULL DEFAULT 1,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL,
		UNIQUE (project_id, version_no)
	)`,

	// One editable draft per (project, owner) at a time.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_plan_versions_one_draft
		ON plan_versions(project_id, owner_user_id) WHERE status = 'draft'`,

	`CREATE TABLE IF NOT EXISTS stage_plans (
		id              TEXT PRIMARY KEY,
		plan_version_id TEXT NOT NULL REFERENCES plan_versions(id) ON DELETE CASCADE,
		stage_code      TEXT NOT NULL,
		planned_start   TEXT,
		planned_due     TEXT,
		UNIQUE (plan_version_id, stage_code)
	)`,

	`CREATE TABLE IF NOT EXISTS holidays (
		date TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS project_schedule_settings (
		project_id        TEXT PRIMARY KEY,
		template_version  TEXT NOT NULL,
		include_weekends  INTEGER NOT NULL DEFAULT 0,
		skip_holidays     INTEGER NOT NULL DEFAULT 1,
		start_policy      TEXT NOT NULL DEFAULT 'same_day'
		                  CHECK(start_policy IN ('same_day','next_day')),
		transition_rule   TEXT NOT NULL DEFAULT 'next_working_day'
		                  CHECK(transition_rule IN ('next_working_day','same_day','next_calendar_day')),
		anchor_start      TEXT NOT NULL,
		anchor_stage_code TEXT NOT NULL,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS stage_shift_logs (
		id                 TEXT PRIMARY KEY,
		project_id         TEXT NOT NULL,
		stage_code         TEXT NOT NULL,
		old_forecast_due   TEXT,
		new_forecast_due   TEXT,
		delta_days         INTEGER NOT NULL DEFAULT 0,
		cause_stage_code   TEXT NOT NULL,
		cause_type         TEXT NOT NULL
		                   CHECK(cause_type IN ('actual_date_change','backfill','auto_backfill','manual_override')),
		created_on         TEXT NOT NULL,
		created_by_user_id TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_shift_logs_project ON stage_shift_logs(project_id, stage_code)`,

	`CREATE TABLE IF NOT EXISTS stage_change_requests (
		id                     TEXT PRIMARY KEY,
		project_id             TEXT NOT NULL,
		stage_code             TEXT NOT NULL,
		decision_status        TEXT NOT NULL DEFAULT 'pending'
		                       CHECK(decision_status IN ('pending','approved','rejected','superseded')),
		requested_status       TEXT,
		requested_actual_start TEXT,
		requested_completed_on TEXT,
		reason                 TEXT NOT NULL DEFAULT '',
		requested_by           TEXT NOT NULL,
		requested_at           TEXT NOT NULL,
		decided_by             TEXT NOT NULL DEFAULT '',
		decided_at             TEXT,
		decision_note          TEXT NOT NULL DEFAULT ''
	)`,

	// At most one pending request per (project, stage).
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_change_requests_one_pending
		ON stage_change_requests(project_id, stage_code) WHERE decision_status = 'pending'`,

	`CREATE TABLE IF NOT EXISTS stage_change_logs (
		id                TEXT PRIMARY KEY,
		project_id        TEXT NOT NULL,
		stage_code        TEXT NOT NULL,
		request_id        TEXT NOT NULL DEFAULT '',
		action            TEXT NOT NULL
		                  CHECK(action IN ('requested','approved','rejected','direct_apply','applied',
		                                   'superseded','auto_backfill','backfill','actuals_updated')),
		from_status       TEXT,
		to_status         TEXT,
		from_actual_start TEXT,
		to_actual_start   TEXT,
		from_completed_on TEXT,
		to_completed_on   TEXT,
		note              TEXT NOT NULL DEFAULT '',
		actor_id          TEXT NOT NULL,
		created_at        TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_change_logs_project ON stage_change_logs(project_id, stage_code)`,

	`CREATE TABLE IF NOT EXISTS project_plan_snapshots (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL,
		plan_version_id TEXT NOT NULL,
		version_no      INTEGER NOT NULL,
		taken_by        TEXT NOT NULL DEFAULT '',
		taken_at        TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS project_plan_snapshot_rows (
		id            TEXT PRIMARY KEY,
		snapshot_id   TEXT NOT NULL REFERENCES project_plan_snapshots(id) ON DELETE CASCADE,
		stage_code    TEXT NOT NULL,
		planned_start TEXT,
		planned_due   TEXT
	)`,
}
