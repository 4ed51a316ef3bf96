package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-reports/internal/database"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no report exists for an id.
var ErrNotFound = errors.New("report not found")

type ReportRepository interface {
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, r *Report) error
	Get(ctx context.Context, id uuid.UUID) (*Report, error)
	List(ctx context.Context, reportModelID uuid.UUID) ([]Report, error)
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReportRepositoryImpl struct {
	DB *sql.DB
}

func NewReportRepository(db *database.PostgresDB) ReportRepository {
	return &ReportRepositoryImpl{DB: db.DB}
}

const reportColumns = "id, report_model_id, feature_id, custom_fields, created_by, created_at, updated_by, updated_at"

func (r *ReportRepositoryImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reports (
			id UUID PRIMARY KEY,
			report_model_id UUID NOT NULL REFERENCES report_models(id) ON DELETE CASCADE,
			feature_id TEXT NOT NULL,
			custom_fields JSONB NOT NULL DEFAULT '{}',
			created_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_by TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure reports schema: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS reports_report_model_id_idx
		ON reports (report_model_id)`)
	if err != nil {
		return fmt.Errorf("failed to ensure reports index: %w", err)
	}
	return nil
}

func (r *ReportRepositoryImpl) Create(ctx context.Context, report *Report) error {
	fields, err := json.Marshal(report.CustomFields)
	if err != nil {
		return fmt.Errorf("failed to marshal custom fields: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		report.ID, report.ReportModelID, report.FeatureID, fields,
		report.CreatedBy, report.CreatedAt, report.UpdatedBy, report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *ReportRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	return scanReport(row)
}

func (r *ReportRepositoryImpl) List(ctx context.Context, reportModelID uuid.UUID) ([]Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports`
	args := []any{}
	if reportModelID != uuid.Nil {
		query += ` WHERE report_model_id = $1`
		args = append(args, reportModelID)
	}
	query += ` ORDER BY created_at`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

func (r *ReportRepositoryImpl) Update(ctx context.Context, report *Report) error {
	fields, err := json.Marshal(report.CustomFields)
	if err != nil {
		return fmt.Errorf("failed to marshal custom fields: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE reports
		SET feature_id = $2, custom_fields = $3, updated_by = $4, updated_at = $5
		WHERE id = $1`,
		report.ID, report.FeatureID, fields, report.UpdatedBy, report.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReportRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*Report, error) {
	var r Report
	var fields []byte
	err := row.Scan(&r.ID, &r.ReportModelID, &r.FeatureID, &fields, &r.CreatedBy, &r.CreatedAt, &r.UpdatedBy, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan report: %w", err)
	}
	if err := json.Unmarshal(fields, &r.CustomFields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal custom fields: %w", err)
	}
	return &r, nil
}
