package widget

import (
	"errors"
	"fmt"
	"io"

	"chemviz-dashboard/internal/dashboard"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNoChartData = errors.New("nothing to chart")

const (
	chartWidth  = 640
	chartHeight = 320
)

// Metric is one of the three numeric record fields.
type Metric string

const (
	MetricFlowrate    Metric = "flowrate"
	MetricPressure    Metric = "pressure"
	MetricTemperature Metric = "temperature"
)

func ParseMetric(s string) (Metric, error) {
	switch m := Metric(s); m {
	case MetricFlowrate, MetricPressure, MetricTemperature:
		return m, nil
	case "":
		return MetricFlowrate, nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

var metricLabels = map[Metric]string{
	MetricFlowrate:    "Flowrate (L/min)",
	MetricPressure:    "Pressure (bar)",
	MetricTemperature: "Temp (°C)",
}

var metricColors = map[Metric]drawing.Color{
	MetricFlowrate:    drawing.ColorFromHex("3b82f6"),
	MetricPressure:    drawing.ColorFromHex("f59e0b"),
	MetricTemperature: drawing.ColorFromHex("ef4444"),
}

var palette = []drawing.Color{
	drawing.ColorFromHex("00c8a0"),
	drawing.ColorFromHex("3b82f6"),
	drawing.ColorFromHex("f59e0b"),
	drawing.ColorFromHex("a78bfa"),
	drawing.ColorFromHex("ef4444"),
	drawing.ColorFromHex("06b6d4"),
	drawing.ColorFromHex("ec4899"),
	drawing.ColorFromHex("10b981"),
	drawing.ColorFromHex("8b5cf6"),
	drawing.ColorFromHex("f97316"),
}

// RenderTypeDistribution draws the type counts as a pie, in the given order.
func RenderTypeDistribution(w io.Writer, counts []TypeCount) error {
	if len(counts) == 0 {
		return ErrNoChartData
	}

	values := make([]chart.Value, 0, len(counts))
	for i, c := range counts {
		values = append(values, chart.Value{
			Value: float64(c.Count),
			Label: fmt.Sprintf("%s (%d)", c.Type, c.Count),
			Style: chart.Style{
				FillColor:   palette[i%len(palette)],
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 2,
			},
		})
	}

	pie := chart.PieChart{
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}
	return pie.Render(chart.SVG, w)
}

// RenderMetricsByType draws one bar per equipment type for metric.
func RenderMetricsByType(w io.Writer, averages []dashboard.TypeAverage, metric Metric) error {
	if len(averages) == 0 {
		return ErrNoChartData
	}

	maxVal := 0.0
	bars := make([]chart.Value, 0, len(averages))
	for _, a := range averages {
		v := metricValue(a, metric)
		if v > maxVal {
			maxVal = v
		}
		bars = append(bars, chart.Value{
			Value: v,
			Label: a.EquipmentType,
			Style: chart.Style{
				FillColor:   metricColors[metric],
				StrokeColor: metricColors[metric],
			},
		})
	}

	bc := chart.BarChart{
		Title:    metricLabels[metric],
		Width:    chartWidth,
		Height:   chartHeight,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: headroom(maxVal)},
		},
		Bars: bars,
	}
	return bc.Render(chart.SVG, w)
}

func metricValue(a dashboard.TypeAverage, m Metric) float64 {
	switch m {
	case MetricPressure:
		return a.Pressure
	case MetricTemperature:
		return a.Temperature
	}
	return a.Flowrate
}

// RenderTrend draws the three parameters across all records.
func RenderTrend(w io.Writer, ts TrendSeries) error {
	n := len(ts.Labels)
	if n == 0 {
		return ErrNoChartData
	}

	xs := make([]float64, n)
	ticks := make([]chart.Tick, n)
	maxVal := 0.0
	for i := range xs {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: ts.Labels[i]}
		for _, v := range []float64{ts.Flowrate[i], ts.Pressure[i], ts.Temperature[i]} {
			if v > maxVal {
				maxVal = v
			}
		}
	}

	series := func(m Metric, ys []float64) chart.ContinuousSeries {
		return chart.ContinuousSeries{
			Name:    metricLabels[m],
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: metricColors[m],
				StrokeWidth: 2,
				DotColor:    metricColors[m],
				DotWidth:    3,
			},
		}
	}

	ch := chart.Chart{
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			// half a step of margin keeps a single record off the edges
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(n) - 0.5},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: headroom(maxVal)},
		},
		Series: []chart.Series{
			series(MetricFlowrate, ts.Flowrate),
			series(MetricPressure, ts.Pressure),
			series(MetricTemperature, ts.Temperature),
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.SVG, w)
}

func headroom(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	return maxVal * 1.1
}
