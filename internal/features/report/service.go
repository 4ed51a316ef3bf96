package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "go-reports/internal/common/models"
	"go-reports/internal/features/audit"
	"go-reports/internal/features/reportmodel"
	"go-reports/internal/security"
	"go-reports/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReportService interface {
	List(ctx context.Context, reportModelID uuid.UUID) ([]Report, error)
	Get(ctx context.Context, id uuid.UUID) (*Report, error)
	Create(ctx context.Context, input *ReportInput, claims *utils.UserClaims) (*Report, error)
	Update(ctx context.Context, id uuid.UUID, input *ReportInput, claims *utils.UserClaims) (*Report, error)
	Delete(ctx context.Context, id uuid.UUID, claims *utils.UserClaims) error
}

type ReportServiceImpl struct {
	Repo            ReportRepository
	ReportModelRepo reportmodel.ReportModelRepository
	Authorizer      security.LayerAuthorizer
	AuditService    audit.AuditService
	Logger          *zap.Logger
}

func NewReportService(
	repo ReportRepository,
	reportModelRepo reportmodel.ReportModelRepository,
	authorizer security.LayerAuthorizer,
	auditService audit.AuditService,
	logger *zap.Logger,
) ReportService {
	return &ReportServiceImpl{
		Repo:            repo,
		ReportModelRepo: reportModelRepo,
		Authorizer:      authorizer,
		AuditService:    auditService,
		Logger:          logger,
	}
}

func (s *ReportServiceImpl) List(ctx context.Context, reportModelID uuid.UUID) ([]Report, error) {
	return s.Repo.List(ctx, reportModelID)
}

func (s *ReportServiceImpl) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.Repo.Get(ctx, id)
}

func (s *ReportServiceImpl) Create(ctx context.Context, input *ReportInput, claims *utils.UserClaims) (*Report, error) {
	model, err := s.authorizeWrite(ctx, input.ReportModelID, claims)
	if err != nil {
		return nil, err
	}
	if err := validateCustomFields(model.CustomFieldSchema, input.CustomFields); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &Report{
		ID:            uuid.New(),
		ReportModelID: input.ReportModelID,
		FeatureID:     input.FeatureID,
		CustomFields:  input.CustomFields,
		CreatedBy:     claims.Username,
		CreatedAt:     now,
		UpdatedBy:     claims.Username,
		UpdatedAt:     now,
	}
	if report.CustomFields == nil {
		report.CustomFields = map[string]any{}
	}
	if report.FeatureID == "" {
		return nil, common_models.NewFieldError("feature_id", "Feature id is required.")
	}

	if err := s.Repo.Create(ctx, report); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, claims.Username, common_models.AuditActionCreate, "reports", report.ID.String(), map[string]common_models.Change{
		"feature_id": {New: report.FeatureID},
	})

	return report, nil
}

func (s *ReportServiceImpl) Update(ctx context.Context, id uuid.UUID, input *ReportInput, claims *utils.UserClaims) (*Report, error) {
	current, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	model, err := s.authorizeWrite(ctx, current.ReportModelID, claims)
	if err != nil {
		return nil, err
	}
	if err := validateCustomFields(model.CustomFieldSchema, input.CustomFields); err != nil {
		return nil, err
	}

	updated := *current
	if input.FeatureID != "" {
		updated.FeatureID = input.FeatureID
	}
	updated.CustomFields = input.CustomFields
	if updated.CustomFields == nil {
		updated.CustomFields = map[string]any{}
	}
	updated.UpdatedBy = claims.Username
	updated.UpdatedAt = time.Now().UTC()

	if err := s.Repo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, claims.Username, common_models.AuditActionUpdate, "reports", id.String(), nil)

	return &updated, nil
}

func (s *ReportServiceImpl) Delete(ctx context.Context, id uuid.UUID, claims *utils.UserClaims) error {
	current, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.authorizeWrite(ctx, current.ReportModelID, claims); err != nil {
		return err
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, claims.Username, common_models.AuditActionDelete, "reports", id.String(), nil)
	return nil
}

// authorizeWrite resolves the report model and checks that the caller may
// write features on its layer.
func (s *ReportServiceImpl) authorizeWrite(ctx context.Context, reportModelID uuid.UUID, claims *utils.UserClaims) (*reportmodel.ReportModel, error) {
	model, err := s.ReportModelRepo.Get(ctx, reportModelID)
	if errors.Is(err, reportmodel.ErrNotFound) {
		return nil, common_models.NewFieldError("report_model_id",
			fmt.Sprintf("Report model %s does not exist.", reportModelID))
	}
	if err != nil {
		return nil, err
	}

	canWrite, err := s.Authorizer.CanWriteLayer(ctx, model.LayerID, claims.EffectivePrincipals())
	if err != nil {
		return nil, err
	}
	if !canWrite {
		return nil, security.ErrWriteForbidden
	}
	return model, nil
}

// validateCustomFields checks submitted values against the model's custom
// field schema. Schema entries of the form {"type": ..., "required": ...}
// are enforced; anything else in the free-form schema document is ignored.
func validateCustomFields(schema map[string]any, values map[string]any) error {
	for field, raw := range schema {
		spec, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		value, present := values[field]
		if required, _ := spec["required"].(bool); required && !present {
			return common_models.NewFieldError("custom_fields",
				fmt.Sprintf("Field %s is required.", field))
		}
		if !present || value == nil {
			continue
		}

		wantType, _ := spec["type"].(string)
		if wantType == "" {
			continue
		}
		if !matchesType(wantType, value) {
			return common_models.NewFieldError("custom_fields",
				fmt.Sprintf("Field %s must be of type %s.", field, wantType))
		}
	}
	return nil
}

func matchesType(wantType string, value any) bool {
	switch wantType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	default:
		// Unknown declared types are not enforced.
		return true
	}
}
