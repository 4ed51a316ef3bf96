package layer

import (
	"go-reports/internal/config"
	"go-reports/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type LayerApi struct {
	LayerController *LayerController
	Config          *config.Config
}

func NewLayerApi(layerController *LayerController, config *config.Config) *LayerApi {
	return &LayerApi{
		LayerController: layerController,
		Config:          config,
	}
}

func (api *LayerApi) Setup(app *fiber.App) {
	group := app.Group("/layers", middleware.SecurityMiddleware(api.Config.SkipAuth))

	group.Get("/", api.LayerController.List)
}
