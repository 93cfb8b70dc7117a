package server

import (
	"log"

	"chemviz-dashboard/internal/bootstrap"
	"chemviz-dashboard/internal/config"
	"chemviz-dashboard/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:    10 * 1024 * 1024, // 10MB
		ErrorHandler: serverutils.ErrorHandler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Content-Disposition",
	}))

	app.Use(otelfiber.Middleware())
	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	api := app.Group("/api", requireRestored(c))
	jwtMiddleware := serverutils.JwtMiddleware(cfg.App.DashboardSecret, c.CurrentUser)

	c.AuthController.RegisterRoutes(api, jwtMiddleware)
	c.DashboardController.RegisterRoutes(api, jwtMiddleware)
	c.HistoryController.RegisterRoutes(api, jwtMiddleware)
	c.ChartController.RegisterRoutes(api, jwtMiddleware)

	c.ViewStateHandler.RegisterRoutes(api, jwtMiddleware)
}

// requireRestored holds everything but the session probe until the persisted
// session has been read.
func requireRestored(c *bootstrap.Container) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if c.Sessions.Loading() && ctx.Path() != "/api/auth/session" {
			return ctx.Status(fiber.StatusServiceUnavailable).
				JSON(serverutils.ErrorResponse(fiber.StatusServiceUnavailable, "Loading..."))
		}
		return ctx.Next()
	}
}
