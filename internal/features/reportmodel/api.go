package reportmodel

import (
	"go-reports/internal/config"
	"go-reports/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReportModelApi struct {
	ReportModelController *ReportModelController
	Config                *config.Config
}

func NewReportModelApi(reportModelController *ReportModelController, config *config.Config) *ReportModelApi {
	return &ReportModelApi{
		ReportModelController: reportModelController,
		Config:                config,
	}
}

func (api *ReportModelApi) Setup(app *fiber.App) {
	group := app.Group("/report_models", middleware.SecurityMiddleware(api.Config.SkipAuth))

	group.Get("/", api.ReportModelController.List)
	group.Post("/", api.ReportModelController.Create)
	group.Get("/:id", api.ReportModelController.Get)
	group.Put("/:id", api.ReportModelController.Update)
	group.Delete("/:id", api.ReportModelController.Delete)
	group.Post("/:id/tjs_view", api.ReportModelController.TJSView)
}
