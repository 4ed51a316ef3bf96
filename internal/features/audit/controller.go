package audit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	AuditService AuditService
}

func NewAuditController(auditService AuditService) *AuditController {
	return &AuditController{AuditService: auditService}
}

// List godoc
func (c *AuditController) List(ctx *fiber.Ctx) error {
	page, _ := strconv.ParseInt(ctx.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(ctx.Query("limit", "50"), 10, 64)

	filters := map[string]interface{}{
		"module":    ctx.Query("module"),
		"record_id": ctx.Query("record_id"),
		"actor_id":  ctx.Query("actor"),
	}

	logs, err := c.AuditService.ListLogs(ctx.Context(), filters, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(logs)
}
