package report

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

type ReportController struct {
	Service ReportService
	Logger  *zap.Logger
}

func NewReportController(service ReportService, logger *zap.Logger) *ReportController {
	return &ReportController{Service: service, Logger: logger}
}

// List godoc
func (c *ReportController) List(ctx *fiber.Ctx) error {
	var reportModelID uuid.UUID
	if raw := ctx.Query("report_model_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid report_model_id")
		}
		reportModelID = id
	}

	reports, err := c.Service.List(ctx.Context(), reportModelID)
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(reports)
}

// Create godoc
func (c *ReportController) Create(ctx *fiber.Ctx) error {
	var input ReportInput
	if err := ctx.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	report, err := c.Service.Create(ctx.Context(), &input, claimsFrom(ctx))
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(report)
}

// Get godoc
func (c *ReportController) Get(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Report not found")
	}

	report, err := c.Service.Get(ctx.Context(), id)
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(report)
}

// Update godoc
func (c *ReportController) Update(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Report not found")
	}

	var input ReportInput
	if err := ctx.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	report, err := c.Service.Update(ctx.Context(), id, &input, claimsFrom(ctx))
	if err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.JSON(report)
}

// Delete godoc
func (c *ReportController) Delete(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Report not found")
	}

	if err := c.Service.Delete(ctx.Context(), id, claimsFrom(ctx)); err != nil {
		return c.renderError(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *ReportController) renderError(ctx *fiber.Ctx, err error) error {
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

	if errors.Is(err, security.ErrWriteForbidden) {
		return fiber.NewError(fiber.StatusForbidden, "Forbidden: Insufficient permissions")
	}
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Report not found")
	}

	c.Logger.Error("report request failed", zap.Error(err))
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

func claimsFrom(ctx *fiber.Ctx) *utils.UserClaims {
	claims, _ := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	return claims
}
