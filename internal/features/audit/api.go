package audit

import (
	"go-reports/internal/config"
	"go-reports/internal/middleware"
	"go-reports/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	AuditController *AuditController
	Config          *config.Config
}

func NewAuditApi(auditController *AuditController, config *config.Config) *AuditApi {
	return &AuditApi{
		AuditController: auditController,
		Config:          config,
	}
}

func (api *AuditApi) Setup(app *fiber.App) {
	group := app.Group("/audit_logs", middleware.SecurityMiddleware(api.Config.SkipAuth))

	group.Get("/", middleware.RequireRole(utils.RoleSuperuser), api.AuditController.List)
}
