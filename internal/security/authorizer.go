package security

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrWriteForbidden signals that the acting principals lack write access on
// the layer a record is bound to.
var ErrWriteForbidden = errors.New("write access to layer denied")

// LayerAuthorizer answers layer-scoped authorization questions for a set of
// effective principals. The contract is transport independent; callers never
// see how the decision is reached.
type LayerAuthorizer interface {
	// IsLayerAdmin reports whether any of the principals administers the
	// given layer.
	IsLayerAdmin(ctx context.Context, layerName string, principals []string) (bool, error)

	// CanWriteLayer reports whether any of the principals may write
	// features on the given layer.
	CanWriteLayer(ctx context.Context, layerName string, principals []string) (bool, error)

	// AuthorizedLayers returns the names of all layers visible to the
	// principals, in the map server's listing order.
	AuthorizedLayers(ctx context.Context, principals []string) ([]string, error)
}

// ACLSource provides the raw material for authorization decisions: the
// map server's layer list and its layer ACL document.
type ACLSource interface {
	GetLayers(ctx context.Context) ([]string, error)
	GetLayersACL(ctx context.Context) (RuleSet, error)
}

type geoserverAuthorizer struct {
	source ACLSource
	logger *zap.Logger
}

// NewLayerAuthorizer builds the map-server backed authorizer. Decisions are
// never cached across requests; every call re-fetches the ACL document so
// upstream changes take effect immediately.
func NewLayerAuthorizer(source ACLSource, logger *zap.Logger) LayerAuthorizer {
	return &geoserverAuthorizer{source: source, logger: logger}
}

func (a *geoserverAuthorizer) IsLayerAdmin(ctx context.Context, layerName string, principals []string) (bool, error) {
	return a.matchMode(ctx, layerName, principals, AccessAdmin)
}

func (a *geoserverAuthorizer) CanWriteLayer(ctx context.Context, layerName string, principals []string) (bool, error) {
	// Admin rights imply write rights.
	return a.matchMode(ctx, layerName, principals, AccessWrite, AccessAdmin)
}

func (a *geoserverAuthorizer) matchMode(ctx context.Context, layerName string, principals []string, modes ...AccessMode) (bool, error) {
	rules, err := a.source.GetLayersACL(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch layer ACL: %w", err)
	}

	granted := rules.Match(layerName, principals, modes...)
	a.logger.Debug("layer access resolved",
		zap.String("layer", layerName),
		zap.Strings("principals", principals),
		zap.Bool("granted", granted),
	)
	return granted, nil
}

func (a *geoserverAuthorizer) AuthorizedLayers(ctx context.Context, principals []string) ([]string, error) {
	layers, err := a.source.GetLayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch layers: %w", err)
	}

	rules, err := a.source.GetLayersACL(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch layer ACL: %w", err)
	}

	authorized := make([]string, 0, len(layers))
	for _, layer := range layers {
		if rules.Match(layer, principals) {
			authorized = append(authorized, layer)
		}
	}
	return authorized, nil
}
