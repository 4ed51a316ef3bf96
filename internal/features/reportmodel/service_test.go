package reportmodel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	common_models "go-reports/internal/common/models"
	"go-reports/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	allowedLayer = "ALLOWED_LAYER"
	deniedLayer  = "DENIED_LAYER"
)

// memRepo is an in-memory ReportModelRepository.
type memRepo struct {
	mu     sync.Mutex
	models map[uuid.UUID]ReportModel
	views  []string
}

func newMemRepo() *memRepo {
	return &memRepo{models: make(map[uuid.UUID]ReportModel)}
}

func (r *memRepo) EnsureSchema(ctx context.Context) error { return nil }

func (r *memRepo) Create(ctx context.Context, m *ReportModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.models {
		if existing.Name == m.Name {
			return ErrNameTaken
		}
	}
	r.models[m.ID] = *m
	return nil
}

func (r *memRepo) Get(ctx context.Context, id uuid.UUID) (*ReportModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (r *memRepo) FindByName(ctx context.Context, name string) (*ReportModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.models {
		if m.Name == name {
			m := m
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) List(ctx context.Context) ([]ReportModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	models := []ReportModel{}
	for _, m := range r.models {
		models = append(models, m)
	}
	return models, nil
}

func (r *memRepo) Update(ctx context.Context, m *ReportModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[m.ID]; !ok {
		return ErrNotFound
	}
	r.models[m.ID] = *m
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[id]; !ok {
		return ErrNotFound
	}
	delete(r.models, id)
	return nil
}

func (r *memRepo) CreateTJSView(ctx context.Context, m *ReportModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, m.TJSViewName())
	return nil
}

// stubAuthorizer grants admin on a fixed layer set.
type stubAuthorizer struct {
	adminLayers map[string]bool
	err         error
}

func (a *stubAuthorizer) IsLayerAdmin(ctx context.Context, layerName string, principals []string) (bool, error) {
	return a.adminLayers[layerName], a.err
}

func (a *stubAuthorizer) CanWriteLayer(ctx context.Context, layerName string, principals []string) (bool, error) {
	return a.adminLayers[layerName], a.err
}

func (a *stubAuthorizer) AuthorizedLayers(ctx context.Context, principals []string) ([]string, error) {
	return nil, a.err
}

// nopAudit records entries without a database.
type nopAudit struct {
	mu      sync.Mutex
	entries []common_models.AuditAction
}

func (a *nopAudit) LogChange(ctx context.Context, actor string, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, action)
	return nil
}

func (a *nopAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newTestService() (ReportModelService, *memRepo, *nopAudit) {
	repo := newMemRepo()
	auditSvc := &nopAudit{}
	svc := NewReportModelService(
		repo,
		&stubAuthorizer{adminLayers: map[string]bool{allowedLayer: true}},
		auditSvc,
		zap.NewNop(),
	)
	return svc, repo, auditSvc
}

func adminClaims() *utils.UserClaims {
	return &utils.UserClaims{Username: "USER_ADMIN", Roles: []string{utils.RoleReportsAdmin}}
}

func TestCreateReportModel(t *testing.T) {
	svc, _, auditSvc := newTestService()

	m, err := svc.Create(context.Background(), &ReportModelInput{
		Name:              "new",
		LayerID:           allowedLayer,
		CustomFieldSchema: map[string]any{"test": "test"},
	}, adminClaims())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if m.ID == uuid.Nil {
		t.Error("expected generated id")
	}
	if m.CreatedBy != "USER_ADMIN" || m.UpdatedBy != "USER_ADMIN" {
		t.Errorf("audit principals = %q/%q, want USER_ADMIN", m.CreatedBy, m.UpdatedBy)
	}
	if m.CreatedAt.IsZero() || m.UpdatedAt.IsZero() {
		t.Error("expected audit timestamps to be set")
	}
	if len(auditSvc.entries) != 1 || auditSvc.entries[0] != common_models.AuditActionCreate {
		t.Errorf("audit entries = %v", auditSvc.entries)
	}
}

func TestCreateDuplicateName(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	input := &ReportModelInput{Name: "new", LayerID: allowedLayer}
	if _, err := svc.Create(ctx, input, adminClaims()); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	_, err := svc.Create(ctx, input, adminClaims())
	assertFieldError(t, err, "name", "Report model named new already exists.")
}

func TestCreateDeniedLayer(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), &ReportModelInput{
		Name:    "new",
		LayerID: deniedLayer,
	}, adminClaims())
	assertFieldError(t, err, "layer_id", "You're not admin on layer DENIED_LAYER.")
}

func TestCreateUpstreamFailurePropagates(t *testing.T) {
	repo := newMemRepo()
	upstream := errors.New("geoserver down")
	svc := NewReportModelService(repo, &stubAuthorizer{err: upstream}, &nopAudit{}, zap.NewNop())

	_, err := svc.Create(context.Background(), &ReportModelInput{Name: "new", LayerID: allowedLayer}, adminClaims())
	if !errors.Is(err, upstream) {
		t.Errorf("Create() error = %v, want %v", err, upstream)
	}
}

func TestUpdateRefreshesAuditFields(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	m, err := svc.Create(ctx, &ReportModelInput{Name: "new", LayerID: allowedLayer}, adminClaims())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	createdAt := m.CreatedAt
	time.Sleep(time.Millisecond)

	other := &utils.UserClaims{Username: "ANOTHER_USER", Roles: []string{utils.RoleReportsAdmin}}
	updated, err := svc.Update(ctx, m.ID, &ReportModelInput{
		Name:              "updated",
		LayerID:           allowedLayer,
		CustomFieldSchema: map[string]any{"changed": "changed"},
	}, other)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Name != "updated" {
		t.Errorf("Name = %q", updated.Name)
	}
	if updated.UpdatedBy != "ANOTHER_USER" {
		t.Errorf("UpdatedBy = %q, want ANOTHER_USER", updated.UpdatedBy)
	}
	if updated.CreatedBy != "USER_ADMIN" || !updated.CreatedAt.Equal(createdAt) {
		t.Error("create audit fields must not change on update")
	}
	if !updated.UpdatedAt.After(createdAt) {
		t.Error("UpdatedAt must be refreshed")
	}
}

func TestUpdateKeepingOwnNameIsAllowed(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	m, err := svc.Create(ctx, &ReportModelInput{Name: "same", LayerID: allowedLayer}, adminClaims())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Update(ctx, m.ID, &ReportModelInput{Name: "same", LayerID: allowedLayer}, adminClaims()); err != nil {
		t.Errorf("Update() with unchanged name error = %v", err)
	}
}

func TestUpdateToDeniedLayer(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	m, err := svc.Create(ctx, &ReportModelInput{Name: "new", LayerID: allowedLayer}, adminClaims())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = svc.Update(ctx, m.ID, &ReportModelInput{Name: "new", LayerID: deniedLayer}, adminClaims())
	assertFieldError(t, err, "layer_id", "You're not admin on layer DENIED_LAYER.")
}

func TestDelete(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	m, err := svc.Create(ctx, &ReportModelInput{Name: "new", LayerID: allowedLayer}, adminClaims())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, m.ID, adminClaims()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	if err := svc.Delete(ctx, uuid.New(), adminClaims()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() unknown id error = %v, want ErrNotFound", err)
	}
}

func TestMaterializeTJSView(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	m, err := svc.Create(ctx, &ReportModelInput{Name: "Pollution Survey 2021", LayerID: allowedLayer}, adminClaims())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	view, err := svc.MaterializeTJSView(ctx, m.ID, adminClaims())
	if err != nil {
		t.Fatalf("MaterializeTJSView() error = %v", err)
	}
	if view != "tjs_view_pollution_survey_2021" {
		t.Errorf("view = %q", view)
	}
	if len(repo.views) != 1 || repo.views[0] != view {
		t.Errorf("repo views = %v", repo.views)
	}
}

func assertFieldError(t *testing.T, err error, field, description string) {
	t.Helper()
	var validationErr *common_models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if len(validationErr.Errors) != 1 {
		t.Fatalf("field errors = %+v, want one", validationErr.Errors)
	}
	fe := validationErr.Errors[0]
	if fe.Location != "body" || fe.Name != field {
		t.Errorf("field error on %s/%s, want body/%s", fe.Location, fe.Name, field)
	}
	if len(fe.Description) != 1 || fe.Description[0] != description {
		t.Errorf("description = %v, want %q", fe.Description, description)
	}
}
