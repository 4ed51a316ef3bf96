package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "go-reports/internal/common/api"
	"go-reports/internal/config"
	"go-reports/internal/database"
	"go-reports/internal/features/audit"
	"go-reports/internal/features/layer"
	"go-reports/internal/features/report"
	"go-reports/internal/features/reportmodel"
	"go-reports/internal/features/system"
	"go-reports/internal/geoserver"
	"go-reports/internal/logger"
	"go-reports/internal/middleware"
	"go-reports/internal/security"

	_ "go-reports/docs" // Import swagger docs

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d routes\n", len(routes))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeSchemas ensures the relational tables and indexes exist before
// the server accepts requests. Report models must exist first; reports
// reference them.
func InitializeSchemas(lc fx.Lifecycle, reportModelRepo reportmodel.ReportModelRepository, reportRepo report.ReportRepository) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			if err := reportModelRepo.EnsureSchema(ctx); err != nil {
				return err
			}
			return reportRepo.EnsureSchema(ctx)
		},
	})
}

// @title           Geo Reports Admin API
// @version         1.0
// @description     Admin API for report models bound to map-server layers.

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Databases
			database.NewPostgres,
			database.NewMongo,

			// Map server client and authorizer
			geoserver.NewClient,
			func(c *geoserver.Client) security.ACLSource { return c },
			security.NewLayerAuthorizer,

			// Initialize Repositories
			audit.NewAuditRepository,
			reportmodel.NewReportModelRepository,
			report.NewReportRepository,

			// Initialize Services
			audit.NewAuditService,
			reportmodel.NewReportModelService,
			report.NewReportService,

			// Initialize Controllers
			audit.NewAuditController,
			reportmodel.NewReportModelController,
			report.NewReportController,
			layer.NewLayerController,

			// Initialize API Routes
			AsRoute(audit.NewAuditApi),
			AsRoute(reportmodel.NewReportModelApi),
			AsRoute(report.NewReportApi),
			AsRoute(layer.NewLayerApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			RegisterAllRoutesWithAnnotation,
			InitializeSchemas,
			StartServer,
		),
	)

	app.Run()
}
