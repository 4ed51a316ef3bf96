package reportmodel

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "go-reports/internal/common/models"
	"go-reports/internal/features/audit"
	"go-reports/internal/security"
	"go-reports/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReportModelService interface {
	List(ctx context.Context) ([]ReportModel, error)
	Get(ctx context.Context, id uuid.UUID) (*ReportModel, error)
	Create(ctx context.Context, input *ReportModelInput, claims *utils.UserClaims) (*ReportModel, error)
	Update(ctx context.Context, id uuid.UUID, input *ReportModelInput, claims *utils.UserClaims) (*ReportModel, error)
	Delete(ctx context.Context, id uuid.UUID, claims *utils.UserClaims) error
	MaterializeTJSView(ctx context.Context, id uuid.UUID, claims *utils.UserClaims) (string, error)
}

type ReportModelServiceImpl struct {
	Repo         ReportModelRepository
	Authorizer   security.LayerAuthorizer
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewReportModelService(
	repo ReportModelRepository,
	authorizer security.LayerAuthorizer,
	auditService audit.AuditService,
	logger *zap.Logger,
) ReportModelService {
	return &ReportModelServiceImpl{
		Repo:         repo,
		Authorizer:   authorizer,
		AuditService: auditService,
		Logger:       logger,
	}
}

func (s *ReportModelServiceImpl) List(ctx context.Context) ([]ReportModel, error) {
	return s.Repo.List(ctx)
}

func (s *ReportModelServiceImpl) Get(ctx context.Context, id uuid.UUID) (*ReportModel, error) {
	return s.Repo.Get(ctx, id)
}

func (s *ReportModelServiceImpl) Create(ctx context.Context, input *ReportModelInput, claims *utils.UserClaims) (*ReportModel, error) {
	if err := s.validate(ctx, input, nil, claims); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &ReportModel{
		ID:                uuid.New(),
		Name:              input.Name,
		LayerID:           input.LayerID,
		CustomFieldSchema: input.CustomFieldSchema,
		CreatedBy:         claims.Username,
		CreatedAt:         now,
		UpdatedBy:         claims.Username,
		UpdatedAt:         now,
	}
	if m.CustomFieldSchema == nil {
		m.CustomFieldSchema = map[string]any{}
	}

	if err := s.Repo.Create(ctx, m); err != nil {
		if errors.Is(err, ErrNameTaken) {
			// Lost the race against a concurrent create; same answer as
			// the validation pre-check.
			return nil, nameTakenError(input.Name)
		}
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, claims.Username, common_models.AuditActionCreate, "report_models", m.ID.String(), map[string]common_models.Change{
		"name":     {New: m.Name},
		"layer_id": {New: m.LayerID},
	})

	s.Logger.Info("report model created",
		zap.String("id", m.ID.String()),
		zap.String("layer", m.LayerID),
		zap.String("username", claims.Username),
	)
	return m, nil
}

func (s *ReportModelServiceImpl) Update(ctx context.Context, id uuid.UUID, input *ReportModelInput, claims *utils.UserClaims) (*ReportModel, error) {
	current, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validate(ctx, input, current, claims); err != nil {
		return nil, err
	}

	updated := *current
	updated.Name = input.Name
	updated.LayerID = input.LayerID
	updated.CustomFieldSchema = input.CustomFieldSchema
	if updated.CustomFieldSchema == nil {
		updated.CustomFieldSchema = map[string]any{}
	}
	updated.UpdatedBy = claims.Username
	updated.UpdatedAt = time.Now().UTC()

	if err := s.Repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, ErrNameTaken) {
			return nil, nameTakenError(input.Name)
		}
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, claims.Username, common_models.AuditActionUpdate, "report_models", id.String(), map[string]common_models.Change{
		"name":     {Old: current.Name, New: updated.Name},
		"layer_id": {Old: current.LayerID, New: updated.LayerID},
	})

	return &updated, nil
}

func (s *ReportModelServiceImpl) Delete(ctx context.Context, id uuid.UUID, claims *utils.UserClaims) error {
	current, err := s.Repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, claims.Username, common_models.AuditActionDelete, "report_models", id.String(), map[string]common_models.Change{
		"name": {Old: current.Name},
	})

	return nil
}

func (s *ReportModelServiceImpl) MaterializeTJSView(ctx context.Context, id uuid.UUID, claims *utils.UserClaims) (string, error) {
	m, err := s.Repo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if err := s.Repo.CreateTJSView(ctx, m); err != nil {
		return "", err
	}

	_ = s.AuditService.LogChange(ctx, claims.Username, common_models.AuditActionTJSView, "report_models", id.String(), map[string]common_models.Change{
		"view": {New: m.TJSViewName()},
	})

	return m.TJSViewName(), nil
}

// validate applies the write-time invariants: required fields, name
// uniqueness, and the layer-admin check against the map server. Failures
// surface as field-level validation errors, distinct from the permission
// rejections raised by the HTTP layer.
func (s *ReportModelServiceImpl) validate(ctx context.Context, input *ReportModelInput, current *ReportModel, claims *utils.UserClaims) error {
	if input.Name == "" {
		return common_models.NewFieldError("name", "Name is required.")
	}
	if input.LayerID == "" {
		return common_models.NewFieldError("layer_id", "Layer id is required.")
	}

	existing, err := s.Repo.FindByName(ctx, input.Name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil && (current == nil || existing.ID != current.ID) {
		return nameTakenError(input.Name)
	}

	isAdmin, err := s.Authorizer.IsLayerAdmin(ctx, input.LayerID, claims.EffectivePrincipals())
	if err != nil {
		return err
	}
	if !isAdmin {
		return common_models.NewFieldError("layer_id",
			fmt.Sprintf("You're not admin on layer %s.", input.LayerID))
	}

	return nil
}

func nameTakenError(name string) error {
	return common_models.NewFieldError("name",
		fmt.Sprintf("Report model named %s already exists.", name))
}
