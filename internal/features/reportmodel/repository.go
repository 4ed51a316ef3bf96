package reportmodel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go-reports/internal/database"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no report model exists for an id.
	ErrNotFound = errors.New("report model not found")

	// ErrNameTaken is returned when a write collides with the unique
	// name index.
	ErrNameTaken = errors.New("report model name already taken")
)

type ReportModelRepository interface {
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, m *ReportModel) error
	Get(ctx context.Context, id uuid.UUID) (*ReportModel, error)
	FindByName(ctx context.Context, name string) (*ReportModel, error)
	List(ctx context.Context) ([]ReportModel, error)
	Update(ctx context.Context, m *ReportModel) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateTJSView(ctx context.Context, m *ReportModel) error
}

type ReportModelRepositoryImpl struct {
	DB *sql.DB
}

func NewReportModelRepository(db *database.PostgresDB) ReportModelRepository {
	return &ReportModelRepositoryImpl{DB: db.DB}
}

const reportModelColumns = "id, name, layer_id, custom_field_schema, created_by, created_at, updated_by, updated_at"

func (r *ReportModelRepositoryImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS report_models (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			layer_id TEXT NOT NULL,
			custom_field_schema JSONB NOT NULL DEFAULT '{}',
			created_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_by TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure report_models schema: %w", err)
	}
	return nil
}

func (r *ReportModelRepositoryImpl) Create(ctx context.Context, m *ReportModel) error {
	schema, err := json.Marshal(m.CustomFieldSchema)
	if err != nil {
		return fmt.Errorf("failed to marshal custom field schema: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO report_models (`+reportModelColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.Name, m.LayerID, schema, m.CreatedBy, m.CreatedAt, m.UpdatedBy, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create report model: %w", err)
	}
	return nil
}

func (r *ReportModelRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*ReportModel, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+reportModelColumns+` FROM report_models WHERE id = $1`, id)
	return scanReportModel(row)
}

func (r *ReportModelRepositoryImpl) FindByName(ctx context.Context, name string) (*ReportModel, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+reportModelColumns+` FROM report_models WHERE name = $1`, name)
	return scanReportModel(row)
}

func (r *ReportModelRepositoryImpl) List(ctx context.Context) ([]ReportModel, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+reportModelColumns+` FROM report_models ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list report models: %w", err)
	}
	defer rows.Close()

	models := []ReportModel{}
	for rows.Next() {
		m, err := scanReportModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, *m)
	}
	return models, rows.Err()
}

func (r *ReportModelRepositoryImpl) Update(ctx context.Context, m *ReportModel) error {
	schema, err := json.Marshal(m.CustomFieldSchema)
	if err != nil {
		return fmt.Errorf("failed to marshal custom field schema: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE report_models
		SET name = $2, layer_id = $3, custom_field_schema = $4, updated_by = $5, updated_at = $6
		WHERE id = $1`,
		m.ID, m.Name, m.LayerID, schema, m.UpdatedBy, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to update report model: %w", err)
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

func (r *ReportModelRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM report_models WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report model: %w", err)
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

// CreateTJSView materializes the model's reports as a flat SQL view, one
// column per schema field extracted from the JSONB payload. The view is
// dropped and recreated in one transaction because the column set may have
// changed since the last materialization.
func (r *ReportModelRepositoryImpl) CreateTJSView(ctx context.Context, m *ReportModel) error {
	viewName := pq.QuoteIdentifier(m.TJSViewName())

	fields := make([]string, 0, len(m.CustomFieldSchema))
	for field := range m.CustomFieldSchema {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	columns := []string{"r.feature_id", "r.created_by", "r.created_at", "r.updated_by", "r.updated_at"}
	for _, field := range fields {
		columns = append(columns, fmt.Sprintf(
			"r.custom_fields ->> %s AS %s",
			pq.QuoteLiteral(field), pq.QuoteIdentifier(field),
		))
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin view transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP VIEW IF EXISTS "+viewName); err != nil {
		return fmt.Errorf("failed to drop previous view: %w", err)
	}

	createStmt := fmt.Sprintf(
		"CREATE VIEW %s AS SELECT %s FROM reports r WHERE r.report_model_id = %s",
		viewName, strings.Join(columns, ", "), pq.QuoteLiteral(m.ID.String()),
	)
	if _, err := tx.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("failed to create view: %w", err)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReportModel(row rowScanner) (*ReportModel, error) {
	var m ReportModel
	var schema []byte
	err := row.Scan(&m.ID, &m.Name, &m.LayerID, &schema, &m.CreatedBy, &m.CreatedAt, &m.UpdatedBy, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan report model: %w", err)
	}
	if err := json.Unmarshal(schema, &m.CustomFieldSchema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal custom field schema: %w", err)
	}
	return &m, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
