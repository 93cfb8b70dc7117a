package widget

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"chemviz-dashboard/internal/dashboard"
	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/table"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func sample() *entity.Dataset {
	return &entity.Dataset{
		DatasetSummary: entity.DatasetSummary{
			Id:               4,
			Name:             "plant.csv",
			UploadedAt:       time.Date(2024, 3, 5, 14, 7, 0, 0, time.Local),
			TotalRecords:     3,
			AvgFlowrate:      120.456,
			AvgPressure:      6.1,
			AvgTemperature:   110,
			TypeDistribution: map[string]int{"Pump": 1, "Valve": 1, "Compressor": 1},
		},
		Records: []entity.EquipmentRecord{
			{EquipmentName: "Pump-1", EquipmentType: "Pump", Flowrate: 120.04, Pressure: 5.26, Temperature: 110},
			{EquipmentName: "Heat-Exchanger-Primary", EquipmentType: "Compressor", Flowrate: 100, Pressure: 6, Temperature: 100},
			{EquipmentName: "Valve-1", EquipmentType: "Valve", Flowrate: 141.3, Pressure: 7, Temperature: 120},
		},
	}
}

func TestSummaryCards(t *testing.T) {
	assert.Nil(t, SummaryCards(nil))

	cards := SummaryCards(&sample().DatasetSummary)
	require.Len(t, cards, 4)
	assert.Equal(t, Card{Label: "Total Equipment", Value: "3"}, cards[0])
	assert.Equal(t, Card{Label: "Avg Flowrate", Value: "120.46", Unit: "L/min"}, cards[1])
	assert.Equal(t, "6.10", cards[2].Value)
	assert.Equal(t, "°C", cards[3].Unit)
}

func TestTypeDistributionOrder(t *testing.T) {
	got := TypeDistribution(map[string]int{"Valve": 2, "Pump": 5, "Compressor": 2, "HX": 1})
	assert.Equal(t, []TypeCount{
		{"Pump", 5},
		{"Compressor", 2},
		{"Valve", 2},
		{"HX", 1},
	}, got)
}

func TestTrendLabel(t *testing.T) {
	assert.Equal(t, "Pump-1", TrendLabel("Pump-1"))
	assert.Equal(t, "exactly16chars!!", TrendLabel("exactly16chars!!"))
	assert.Equal(t, "Heat-Exchanger…", TrendLabel("Heat-Exchanger-Primary"))
}

func TestTableHeadersAndRows(t *testing.T) {
	headers := TableHeaders(table.SortState{Key: table.KeyPressure, Direction: table.Descending})
	require.Len(t, headers, 5)
	for _, h := range headers {
		if h.Key == table.KeyPressure {
			assert.True(t, h.Active)
			assert.Equal(t, "↓", h.Arrow)
		} else {
			assert.Empty(t, h.Arrow)
		}
	}

	rows := TableRows(sample().Records)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].Number)
	assert.Equal(t, "120.0", rows[0].Flowrate)
	assert.Equal(t, "5.3", rows[0].Pressure)
	assert.Equal(t, 3, rows[2].Number)
}

func TestFormatUploadedAt(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 0, 0, time.Local)
	assert.Equal(t, "Mar 5, 2024, 02:07 PM", FormatUploadedAt(at))
}

func TestBuildDashboardEmptyState(t *testing.T) {
	v := BuildDashboard(dashboard.ViewState{}, nil)
	assert.Equal(t, EmptyDashboard, v.EmptyMessage)

	v = BuildDashboard(dashboard.ViewState{Error: dashboard.MsgLoadFailed}, nil)
	assert.Empty(t, v.EmptyMessage)

	v = BuildDashboard(dashboard.ViewState{Loading: true}, nil)
	assert.Empty(t, v.EmptyMessage)
}

func TestHistoryItems(t *testing.T) {
	ds := sample()
	sel := entity.DatasetID(4)
	st := dashboard.ViewState{
		History:           []entity.HistoryEntry{ds.DatasetSummary, {Id: 2, Name: "old.csv", TypeDistribution: map[string]int{}}},
		SelectedHistoryID: &sel,
		ReportLoadingID:   &sel,
	}

	items := HistoryItems(st)
	require.Len(t, items, 2)
	assert.True(t, items[0].Selected)
	assert.True(t, items[0].ReportLoading)
	assert.Equal(t, 3, items[0].Types)
	assert.False(t, items[1].Selected)

	v := BuildHistory(dashboard.ViewState{History: []entity.HistoryEntry{}}, nil)
	assert.Equal(t, EmptyHistory, v.EmptyMessage)
}

func TestPrintDataset(t *testing.T) {
	ds := sample()
	view := BuildDataset(ds, ds.Records, dashboard.GroupAverages(ds.Records), table.DefaultSortState())

	var buf bytes.Buffer
	PrintDashboard(&buf, BuildDashboard(dashboard.ViewState{}, view))
	out := buf.String()

	assert.Contains(t, out, "plant.csv")
	assert.Contains(t, out, "Avg Flowrate")
	assert.Contains(t, out, "120.46 L/min")
	assert.Contains(t, out, "Equipment Name ↑")
	assert.True(t, strings.Contains(out, "Heat-Exchanger-Primary"))
}

func TestRenderCharts(t *testing.T) {
	ds := sample()

	var buf bytes.Buffer
	require.NoError(t, RenderTypeDistribution(&buf, TypeDistribution(ds.TypeDistribution)))
	assert.Contains(t, buf.String(), "<svg")

	buf.Reset()
	require.NoError(t, RenderMetricsByType(&buf, dashboard.GroupAverages(ds.Records), MetricPressure))
	assert.Contains(t, buf.String(), "<svg")

	buf.Reset()
	require.NoError(t, RenderTrend(&buf, Trend(ds.Records[:1])))
	assert.Contains(t, buf.String(), "<svg")

	assert.ErrorIs(t, RenderTrend(&buf, Trend(nil)), ErrNoChartData)
	assert.ErrorIs(t, RenderTypeDistribution(&buf, nil), ErrNoChartData)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricFlowrate, m)

	_, err = ParseMetric("density")
	assert.Error(t, err)
}
