package layer

import (
	"errors"

	"go-reports/internal/geoserver"
	"go-reports/internal/security"
	"go-reports/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type LayerController struct {
	Authorizer security.LayerAuthorizer
	Logger     *zap.Logger
}

func NewLayerController(authorizer security.LayerAuthorizer, logger *zap.Logger) *LayerController {
	return &LayerController{Authorizer: authorizer, Logger: logger}
}

// List godoc
// @Summary      List authorized layers
// @Description  Layer names from the map server the caller is allowed to see
// @Tags         layers
// @Produce      json
// @Success      200  {array}  string
// @Router       /layers [get]
func (c *LayerController) List(ctx *fiber.Ctx) error {
	claims, _ := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if claims == nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	layers, err := c.Authorizer.AuthorizedLayers(ctx.Context(), claims.EffectivePrincipals())
	if err != nil {
		var statusErr *geoserver.StatusError
		if errors.As(err, &statusErr) {
			c.Logger.Error("map server error", zap.Error(err))
			return fiber.NewError(fiber.StatusBadGateway, "Map server unavailable")
		}
		c.Logger.Error("layer listing failed", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return ctx.JSON(layers)
}
