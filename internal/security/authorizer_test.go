package security

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

type stubACLSource struct {
	layers    []string
	rules     RuleSet
	layersErr error
	rulesErr  error
	aclCalls  int
}

func (s *stubACLSource) GetLayers(ctx context.Context) ([]string, error) {
	return s.layers, s.layersErr
}

func (s *stubACLSource) GetLayersACL(ctx context.Context) (RuleSet, error) {
	s.aclCalls++
	return s.rules, s.rulesErr
}

func TestIsLayerAdmin(t *testing.T) {
	source := &stubACLSource{
		rules: RuleSet{
			{Mode: AccessAdmin, LayerPattern: "roads", Principals: []string{"ROLE_GIS_ADMIN"}},
			{Mode: AccessWrite, LayerPattern: "rivers", Principals: []string{"ROLE_GIS_ADMIN"}},
		},
	}
	authorizer := NewLayerAuthorizer(source, zap.NewNop())

	ok, err := authorizer.IsLayerAdmin(context.Background(), "roads", []string{"jdoe", "ROLE_GIS_ADMIN"})
	if err != nil {
		t.Fatalf("IsLayerAdmin() error = %v", err)
	}
	if !ok {
		t.Error("expected admin grant on roads")
	}

	// Write rights alone must not read as admin.
	ok, err = authorizer.IsLayerAdmin(context.Background(), "rivers", []string{"ROLE_GIS_ADMIN"})
	if err != nil {
		t.Fatalf("IsLayerAdmin() error = %v", err)
	}
	if ok {
		t.Error("write rule must not grant admin")
	}
}

func TestIsLayerAdminRefetchesPerCall(t *testing.T) {
	source := &stubACLSource{}
	authorizer := NewLayerAuthorizer(source, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := authorizer.IsLayerAdmin(context.Background(), "roads", []string{"jdoe"}); err != nil {
			t.Fatalf("IsLayerAdmin() error = %v", err)
		}
	}
	if source.aclCalls != 3 {
		t.Errorf("expected 3 ACL fetches, got %d", source.aclCalls)
	}
}

func TestCanWriteLayer(t *testing.T) {
	source := &stubACLSource{
		rules: RuleSet{
			{Mode: AccessAdmin, LayerPattern: "roads", Principals: []string{"ROLE_GIS_ADMIN"}},
			{Mode: AccessWrite, LayerPattern: "rivers", Principals: []string{"ROLE_EDITOR"}},
		},
	}
	authorizer := NewLayerAuthorizer(source, zap.NewNop())

	// Admin rights imply write rights.
	ok, err := authorizer.CanWriteLayer(context.Background(), "roads", []string{"ROLE_GIS_ADMIN"})
	if err != nil {
		t.Fatalf("CanWriteLayer() error = %v", err)
	}
	if !ok {
		t.Error("admin rule should grant write")
	}

	ok, err = authorizer.CanWriteLayer(context.Background(), "rivers", []string{"ROLE_EDITOR"})
	if err != nil {
		t.Fatalf("CanWriteLayer() error = %v", err)
	}
	if !ok {
		t.Error("write rule should grant write")
	}

	ok, err = authorizer.CanWriteLayer(context.Background(), "rivers", []string{"ROLE_VIEWER"})
	if err != nil {
		t.Fatalf("CanWriteLayer() error = %v", err)
	}
	if ok {
		t.Error("viewer must not get write access")
	}
}

func TestAuthorizedLayers(t *testing.T) {
	source := &stubACLSource{
		layers: []string{"roads", "rivers", "cadastre"},
		rules: RuleSet{
			{Mode: AccessRead, LayerPattern: "roads", Principals: []string{"*"}},
			{Mode: AccessAdmin, LayerPattern: "rivers", Principals: []string{"ROLE_GIS_ADMIN"}},
			{Mode: AccessRead, LayerPattern: "cadastre", Principals: []string{"ROLE_CADASTRE"}},
		},
	}
	authorizer := NewLayerAuthorizer(source, zap.NewNop())

	got, err := authorizer.AuthorizedLayers(context.Background(), []string{"jdoe", "ROLE_GIS_ADMIN"})
	if err != nil {
		t.Fatalf("AuthorizedLayers() error = %v", err)
	}

	want := []string{"roads", "rivers"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AuthorizedLayers() = %v, want %v", got, want)
	}
}

func TestAuthorizerPropagatesSourceErrors(t *testing.T) {
	upstream := errors.New("geoserver down")

	authorizer := NewLayerAuthorizer(&stubACLSource{rulesErr: upstream}, zap.NewNop())
	if _, err := authorizer.IsLayerAdmin(context.Background(), "roads", []string{"jdoe"}); !errors.Is(err, upstream) {
		t.Errorf("IsLayerAdmin() error = %v, want wrapped %v", err, upstream)
	}

	authorizer = NewLayerAuthorizer(&stubACLSource{layersErr: upstream}, zap.NewNop())
	if _, err := authorizer.AuthorizedLayers(context.Background(), []string{"jdoe"}); !errors.Is(err, upstream) {
		t.Errorf("AuthorizedLayers() error = %v, want wrapped %v", err, upstream)
	}
}
