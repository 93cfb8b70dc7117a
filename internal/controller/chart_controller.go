// FILE: internal/controller/chart_controller.go
package controller

import (
	"bytes"
	"errors"

	"chemviz-dashboard/internal/dashboard"
	"chemviz-dashboard/internal/pkg/serverutils"
	"chemviz-dashboard/internal/widget"

	"github.com/gofiber/fiber/v2"
)

type IChartController interface {
	RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler)
	Render(ctx *fiber.Ctx) error
}

type chartController struct {
	dc *dashboard.Controller
}

func NewChartController(dc *dashboard.Controller) IChartController {
	return &chartController{dc: dc}
}

func (c *chartController) RegisterRoutes(r fiber.Router, jwtMiddleware fiber.Handler) {
	h := r.Group("/charts", jwtMiddleware)
	h.Get("/:name.svg", c.Render)
}

// Render draws a chart of the dashboard dataset, or of the selected history
// entry with ?source=history.
func (c *chartController) Render(ctx *fiber.Ctx) error {
	st := c.dc.State()
	ds := st.Dataset
	if ctx.Query("source") == "history" {
		ds = st.Detail
	}
	if ds == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "No dataset to chart"))
	}

	var buf bytes.Buffer
	var err error
	switch ctx.Params("name") {
	case "type-distribution":
		err = widget.RenderTypeDistribution(&buf, widget.TypeDistribution(ds.TypeDistribution))
	case "metrics-by-type":
		metric, perr := widget.ParseMetric(ctx.Query("metric"))
		if perr != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, perr.Error()))
		}
		err = widget.RenderMetricsByType(&buf, c.dc.Averages(ds), metric)
	case "trend":
		err = widget.RenderTrend(&buf, widget.Trend(ds.Records))
	default:
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Unknown chart"))
	}

	if errors.Is(err, widget.ErrNoChartData) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "No data to chart"))
	}
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "image/svg+xml")
	return ctx.Send(buf.Bytes())
}
