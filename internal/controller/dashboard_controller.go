// FILE: internal/controller/dashboard_controller.go
package controller

import (
	"chemviz-dashboard/internal/dashboard"
	"chemviz-dashboard/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type IDashboardController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	Get(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	Sort(ctx *fiber.Ctx) error
}

type dashboardController struct {
	dc *dashboard.Controller
}

func NewDashboardController(dc *dashboard.Controller) IDashboardController {
	return &dashboardController{dc: dc}
}

func (c *dashboardController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/dashboard", jwtMiddleware)
	h.Get("/", c.Get)
	h.Post("/refresh", c.Refresh)
	h.Post("/upload", c.Upload)
	h.Post("/sort/:key", c.Sort)
}

// Get also switches the viewer to the dashboard page.
func (c *dashboardController) Get(ctx *fiber.Ctx) error {
	if err := c.dc.Navigate(dashboard.PageDashboard); err != nil {
		return failure(ctx, err, err.Error())
	}
	return ctx.JSON(serverutils.SuccessResponse("Dashboard", dashboardView(c.dc)))
}

func (c *dashboardController) Refresh(ctx *fiber.Ctx) error {
	if err := c.dc.LoadLatest(ctx.UserContext()); err != nil {
		return failure(ctx, err, dashboard.MsgLoadFailed)
	}
	return ctx.JSON(serverutils.SuccessResponse("Dashboard", dashboardView(c.dc)))
}

func (c *dashboardController) Upload(ctx *fiber.Ctx) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		err = c.dc.UploadFile(ctx.UserContext(), "", nil)
		return failure(ctx, err, dashboard.MsgNoFileSelected)
	}

	f, err := fh.Open()
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Could not read uploaded file"))
	}
	defer f.Close()

	if err := c.dc.UploadFile(ctx.UserContext(), fh.Filename, f); err != nil {
		st := c.dc.State()
		if st.Upload.Status == dashboard.UploadError {
			return failure(ctx, err, st.Upload.Error)
		}
		// upload went through, the reload after it failed
		return failure(ctx, err, dashboard.MsgLoadFailed)
	}
	return ctx.JSON(serverutils.SuccessResponse("Dataset uploaded", dashboardView(c.dc)))
}

func (c *dashboardController) Sort(ctx *fiber.Ctx) error {
	if err := c.dc.SortBy(ctx.Params("key")); err != nil {
		return failure(ctx, err, err.Error())
	}
	return ctx.JSON(serverutils.SuccessResponse("Sorted", dashboardView(c.dc)))
}
