// FILE: internal/controller/history_controller.go
package controller

import (
	"context"
	"fmt"
	"strings"

	"chemviz-dashboard/internal/dashboard"
	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type IHistoryController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	List(ctx *fiber.Ctx) error
	Refresh(ctx *fiber.Ctx) error
	Select(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Report(ctx *fiber.Ctx) error
}

type historyController struct {
	dc *dashboard.Controller
}

func NewHistoryController(dc *dashboard.Controller) IHistoryController {
	return &historyController{dc: dc}
}

func (c *historyController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/history", jwtMiddleware)
	h.Get("/", c.List)
	h.Post("/refresh", c.Refresh)
	h.Post("/:id/select", c.Select)
	h.Delete("/:id", c.Delete)
	h.Get("/:id/report", c.Report)
}

func datasetID(ctx *fiber.Ctx) (entity.DatasetID, error) {
	id, err := ctx.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, &dashboard.ValidationError{Field: "id", Message: "Invalid dataset id"}
	}
	return entity.DatasetID(id), nil
}

// List switches the viewer to the history page and loads it when it was
// just entered.
func (c *historyController) List(ctx *fiber.Ctx) error {
	entering := c.dc.State().Page != dashboard.PageHistory
	if err := c.dc.Navigate(dashboard.PageHistory); err != nil {
		return failure(ctx, err, err.Error())
	}
	if entering {
		// a failure leaves an empty list with its own message
		_ = c.dc.LoadHistory(ctx.UserContext())
	}
	return ctx.JSON(serverutils.SuccessResponse("History", historyView(c.dc)))
}

func (c *historyController) Refresh(ctx *fiber.Ctx) error {
	if err := c.dc.LoadHistory(ctx.UserContext()); err != nil {
		return failure(ctx, err, dashboard.MsgHistoryFailed)
	}
	return ctx.JSON(serverutils.SuccessResponse("History", historyView(c.dc)))
}

func (c *historyController) Select(ctx *fiber.Ctx) error {
	id, err := datasetID(ctx)
	if err != nil {
		return failure(ctx, err, err.Error())
	}
	if err := c.dc.SelectHistoryEntry(ctx.UserContext(), id); err != nil {
		return failure(ctx, err, dashboard.MsgDetailFailed)
	}
	return ctx.JSON(serverutils.SuccessResponse("Dataset selected", historyView(c.dc)))
}

func (c *historyController) Delete(ctx *fiber.Ctx) error {
	id, err := datasetID(ctx)
	if err != nil {
		return failure(ctx, err, err.Error())
	}
	if err := c.dc.DeleteDataset(ctx.UserContext(), id); err != nil {
		return failure(ctx, err, c.dc.State().HistoryError)
	}
	return ctx.JSON(serverutils.SuccessResponse("Dataset deleted", historyView(c.dc)))
}

func (c *historyController) Report(ctx *fiber.Ctx) error {
	id, err := datasetID(ctx)
	if err != nil {
		return failure(ctx, err, err.Error())
	}
	if err := c.dc.RequestReport(ctx.UserContext(), id, attachment{ctx: ctx}); err != nil {
		return failure(ctx, err, c.dc.State().ReportError)
	}
	return nil
}

// attachment answers the request with the report as a file download.
type attachment struct {
	ctx *fiber.Ctx
}

func (a attachment) Download(_ context.Context, filename string, data []byte) error {
	name := strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(filename)
	a.ctx.Set(fiber.HeaderContentType, "application/pdf")
	a.ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return a.ctx.Send(data)
}
