package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/stageflow/internal/db"
	"github.com/alexanderramin/stageflow/internal/domain"
)

// SQLiteStageTemplateRepo implements StageTemplateRepo using a SQLite database.
type SQLiteStageTemplateRepo struct {
	db db.DBTX
}

// NewSQLiteStageTemplateRepo creates a new SQLiteStageTemplateRepo.
func NewSQLiteStageTemplateRepo(conn db.DBTX) *SQLiteStageTemplateRepo {
	return &SQLiteStageTemplateRepo{db: conn}
}

func (r *SQLiteStageTemplateRepo) CreateStage(ctx context.Context, t *domain.StageTemplate) error {
	query := `INSERT INTO stage_templates (version, code, name, sequence, optional, parallel_group, duration_days)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.Version,
		t.Code,
		t.Name,
		t.Sequence,
		boolToInt(t.Optional),
		t.ParallelGroup,
		nullableIntToValue(t.DurationDays),
	)
	if err != nil {
		return fmt.Errorf("inserting stage template: %w", err)
	}
	return nil
}

func (r *SQLiteStageTemplateRepo) CreateEdge(ctx context.Context, e *domain.StageDependencyTemplate) error {
	query := `INSERT INTO stage_dependency_templates (version, from_stage_code, depends_on_stage_code)
		VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, e.Version, e.FromStageCode, e.DependsOnStageCode)
	if err != nil {
		return fmt.Errorf("inserting dependency template: %w", err)
	}
	return nil
}

func (r *SQLiteStageTemplateRepo) LoadVersion(ctx context.Context, version string) (*TemplateGraphData, error) {
	stageRows, err := r.db.QueryContext(ctx,
		`SELECT version, code, name, sequence, optional, parallel_group, duration_days
		FROM stage_templates WHERE version = ? ORDER BY sequence, code`, version)
	if err != nil {
		return nil, fmt.Errorf("listing stage templates: %w", err)
	}
	defer stageRows.Close()

	data := &TemplateGraphData{Version: version}
	for stageRows.Next() {
		var t domain.StageTemplate
		var optional int
		var duration *int
		if err := stageRows.Scan(&t.Version, &t.Code, &t.Name, &t.Sequence, &optional, &t.ParallelGroup, &duration); err != nil {
			return nil, fmt.Errorf("scanning stage template: %w", err)
		}
		t.Optional = intToBool(optional)
		t.DurationDays = duration
		data.Stages = append(data.Stages, t)
	}
	if err := stageRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stage templates: %w", err)
	}
	if len(data.Stages) == 0 {
		return nil, fmt.Errorf("template version %s: %w", version, domain.ErrNotFound)
	}

	edgeRows, err := r.db.QueryContext(ctx,
		`SELECT version, from_stage_code, depends_on_stage_code
		FROM stage_dependency_templates WHERE version = ?
		ORDER BY from_stage_code, depends_on_stage_code`, version)
	if err != nil {
		return nil, fmt.Errorf("listing dependency templates: %w", err)
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var e domain.StageDependencyTemplate
		if err := edgeRows.Scan(&e.Version, &e.FromStageCode, &e.DependsOnStageCode); err != nil {
			return nil, fmt.Errorf("scanning dependency template: %w", err)
		}
		data.Edges = append(data.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dependency templates: %w", err)
	}

	return data, nil
}

func (r *SQLiteStageTemplateRepo) ListVersions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT version FROM stage_templates ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("listing template versions: %w", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning template version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating template versions: %w", err)
	}
	return versions, nil
}
