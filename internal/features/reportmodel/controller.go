package reportmodel

import (
	"errors"

	common_models "go-reports/internal/common/models"
	"go-reports/internal/geoserver"
	"go-reports/internal/security"
	"go-reports/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReportModelController struct {
	Service    ReportModelService
	Authorizer security.LayerAuthorizer
	Logger     *zap.Logger
}

func NewReportModelController(service ReportModelService, authorizer security.LayerAuthorizer, logger *zap.Logger) *ReportModelController {
	return &ReportModelController{
		Service:    service,
		Authorizer: authorizer,
		Logger:     logger,
	}
}

// List godoc
func (c *ReportModelController) List(ctx *fiber.Ctx) error {
	if err := c.authorizeStatic(ctx); err != nil {
		return c.renderError(ctx, err)
	}

	models, err := c.Service.List(ctx.Context())
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(models)
}

// Create godoc
func (c *ReportModelController) Create(ctx *fiber.Ctx) error {
	if err := c.authorizeStatic(ctx); err != nil {
		return c.renderError(ctx, err)
	}

	var input ReportModelInput
	if err := ctx.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	m, err := c.Service.Create(ctx.Context(), &input, claimsFrom(ctx))
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(m)
}

// Get godoc
func (c *ReportModelController) Get(ctx *fiber.Ctx) error {
	m, err := c.loadObject(ctx)
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(m)
}

// Update godoc
func (c *ReportModelController) Update(ctx *fiber.Ctx) error {
	m, err := c.loadObject(ctx)
	if err == nil {
		err = c.authorizeDynamic(ctx, m)
	}
	if err != nil {
		return c.renderError(ctx, err)
	}

	var input ReportModelInput
	if err := ctx.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	updated, err := c.Service.Update(ctx.Context(), m.ID, &input, claimsFrom(ctx))
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(updated)
}

// Delete godoc
func (c *ReportModelController) Delete(ctx *fiber.Ctx) error {
	m, err := c.loadObject(ctx)
	if err == nil {
		err = c.authorizeDynamic(ctx, m)
	}
	if err != nil {
		return c.renderError(ctx, err)
	}

	if err := c.Service.Delete(ctx.Context(), m.ID, claimsFrom(ctx)); err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// TJSView godoc
func (c *ReportModelController) TJSView(ctx *fiber.Ctx) error {
	m, err := c.loadObject(ctx)
	if err == nil {
		err = c.authorizeDynamic(ctx, m)
	}
	if err != nil {
		return c.renderError(ctx, err)
	}

	view, err := c.Service.MaterializeTJSView(ctx.Context(), m.ID, claimsFrom(ctx))
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"view": view})
}

// authorizeStatic enforces the role grants that do not depend on a record:
// reports admins may list, add and view, superusers may do everything.
func (c *ReportModelController) authorizeStatic(ctx *fiber.Ctx) error {
	claims := claimsFrom(ctx)
	if claims == nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}
	if claims.HasRole(utils.RoleReportsAdmin) || claims.HasRole(utils.RoleSuperuser) {
		return nil
	}
	return fiber.NewError(fiber.StatusForbidden, "Forbidden: Insufficient permissions")
}

// authorizeDynamic enforces the per-object edit/delete grant: superusers
// always pass, reports admins only when they administer the record's layer
// on the map server. The record creator has no special standing.
func (c *ReportModelController) authorizeDynamic(ctx *fiber.Ctx, m *ReportModel) error {
	claims := claimsFrom(ctx)
	if claims.HasRole(utils.RoleSuperuser) {
		return nil
	}

	isAdmin, err := c.Authorizer.IsLayerAdmin(ctx.Context(), m.LayerID, claims.EffectivePrincipals())
	if err != nil {
		return err
	}
	if !isAdmin {
		return fiber.NewError(fiber.StatusForbidden, "Forbidden: Insufficient permissions")
	}
	return nil
}

// loadObject resolves the item route: static role check first, then the
// record itself. Unknown and malformed ids both read as not found.
func (c *ReportModelController) loadObject(ctx *fiber.Ctx) (*ReportModel, error) {
	if err := c.authorizeStatic(ctx); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return nil, ErrNotFound
	}

	return c.Service.Get(ctx.Context(), id)
}

func (c *ReportModelController) renderError(ctx *fiber.Ctx, err error) error {
	var validationErr *common_models.ValidationError
	if errors.As(err, &validationErr) {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status": "error",
			"errors": validationErr.Errors,
		})
	}

	var statusErr *geoserver.StatusError
	if errors.As(err, &statusErr) {
		c.Logger.Error("map server error", zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "Map server unavailable")
	}

	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Report model not found")
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr
	}

	c.Logger.Error("report model request failed", zap.Error(err))
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

func claimsFrom(ctx *fiber.Ctx) *utils.UserClaims {
	claims, _ := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	return claims
}
