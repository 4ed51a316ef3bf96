package report

import (
	"go-reports/internal/config"
	"go-reports/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReportApi struct {
	ReportController *ReportController
	Config           *config.Config
}

func NewReportApi(reportController *ReportController, config *config.Config) *ReportApi {
	return &ReportApi{
		ReportController: reportController,
		Config:           config,
	}
}

func (api *ReportApi) Setup(app *fiber.App) {
	group := app.Group("/reports", middleware.SecurityMiddleware(api.Config.SkipAuth))

	group.Get("/", api.ReportController.List)
	group.Post("/", api.ReportController.Create)
	group.Get("/:id", api.ReportController.Get)
	group.Put("/:id", api.ReportController.Update)
	group.Delete("/:id", api.ReportController.Delete)
}
