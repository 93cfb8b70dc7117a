// Package widget turns controller state into what the screens show. Nothing
// here fetches or mutates; every function is a pure mapping.
package widget

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"chemviz-dashboard/internal/dashboard"
	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/table"
)

const (
	EmptyDashboard = "Upload a CSV file to see your dashboard."
	EmptyHistory   = "No datasets uploaded yet. Go to the Dashboard to upload your first CSV."

	uploadedAtLayout = "Jan 2, 2006, 03:04 PM"
	trendLabelMax    = 16
	trendLabelKeep   = 14
)

type Card struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// SummaryCards shows the record count and the three averages to two decimals.
func SummaryCards(s *entity.DatasetSummary) []Card {
	if s == nil {
		return nil
	}
	return []Card{
		{Label: "Total Equipment", Value: strconv.Itoa(s.TotalRecords)},
		{Label: "Avg Flowrate", Value: fmt.Sprintf("%.2f", s.AvgFlowrate), Unit: "L/min"},
		{Label: "Avg Pressure", Value: fmt.Sprintf("%.2f", s.AvgPressure), Unit: "bar"},
		{Label: "Avg Temperature", Value: fmt.Sprintf("%.2f", s.AvgTemperature), Unit: "°C"},
	}
}

type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// TypeDistribution orders types by count, largest first, then by name.
func TypeDistribution(dist map[string]int) []TypeCount {
	out := make([]TypeCount, 0, len(dist))
	for t, n := range dist {
		out = append(out, TypeCount{Type: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// TrendLabel shortens long equipment names for the trend axis.
func TrendLabel(name string) string {
	r := []rune(name)
	if len(r) > trendLabelMax {
		return string(r[:trendLabelKeep]) + "…"
	}
	return name
}

type TrendSeries struct {
	Labels      []string  `json:"labels"`
	Flowrate    []float64 `json:"flowrate"`
	Pressure    []float64 `json:"pressure"`
	Temperature []float64 `json:"temperature"`
}

// Trend plots every record in the order given.
func Trend(records []entity.EquipmentRecord) TrendSeries {
	ts := TrendSeries{
		Labels:      make([]string, 0, len(records)),
		Flowrate:    make([]float64, 0, len(records)),
		Pressure:    make([]float64, 0, len(records)),
		Temperature: make([]float64, 0, len(records)),
	}
	for _, r := range records {
		ts.Labels = append(ts.Labels, TrendLabel(r.EquipmentName))
		ts.Flowrate = append(ts.Flowrate, r.Flowrate)
		ts.Pressure = append(ts.Pressure, r.Pressure)
		ts.Temperature = append(ts.Temperature, r.Temperature)
	}
	return ts
}

type Header struct {
	Key    table.Key `json:"key"`
	Title  string    `json:"title"`
	Active bool      `json:"active"`
	Arrow  string    `json:"arrow,omitempty"`
}

var columnTitles = map[table.Key]string{
	table.KeyEquipmentName: "Equipment Name",
	table.KeyEquipmentType: "Type",
	table.KeyFlowrate:      "Flowrate",
	table.KeyPressure:      "Pressure",
	table.KeyTemperature:   "Temperature",
}

func TableHeaders(st table.SortState) []Header {
	out := make([]Header, 0, len(table.Columns))
	for _, k := range table.Columns {
		h := Header{Key: k, Title: columnTitles[k]}
		if k == st.Key {
			h.Active = true
			h.Arrow = "↑"
			if st.Direction == table.Descending {
				h.Arrow = "↓"
			}
		}
		out = append(out, h)
	}
	return out
}

type Row struct {
	Number        int    `json:"number"`
	EquipmentName string `json:"equipment_name"`
	EquipmentType string `json:"equipment_type"`
	Flowrate      string `json:"flowrate"`
	Pressure      string `json:"pressure"`
	Temperature   string `json:"temperature"`
}

// TableRows numbers rows from 1 and shows values to one decimal.
func TableRows(records []entity.EquipmentRecord) []Row {
	out := make([]Row, 0, len(records))
	for i, r := range records {
		out = append(out, Row{
			Number:        i + 1,
			EquipmentName: r.EquipmentName,
			EquipmentType: r.EquipmentType,
			Flowrate:      fmt.Sprintf("%.1f", r.Flowrate),
			Pressure:      fmt.Sprintf("%.1f", r.Pressure),
			Temperature:   fmt.Sprintf("%.1f", r.Temperature),
		})
	}
	return out
}

func FormatUploadedAt(t time.Time) string {
	return t.Local().Format(uploadedAtLayout)
}

// DatasetView is everything drawn for one dataset.
type DatasetView struct {
	Id           entity.DatasetID        `json:"id"`
	Name         string                  `json:"name"`
	UploadedAt   string                  `json:"uploaded_at"`
	Cards        []Card                  `json:"cards"`
	Distribution []TypeCount             `json:"distribution"`
	Averages     []dashboard.TypeAverage `json:"averages"`
	Trend        TrendSeries             `json:"trend"`
	Headers      []Header                `json:"headers"`
	Rows         []Row                   `json:"rows"`
}

// BuildDataset takes records already in table order; the trend keeps the
// order the backend sent.
func BuildDataset(ds *entity.Dataset, sorted []entity.EquipmentRecord, averages []dashboard.TypeAverage, st table.SortState) *DatasetView {
	if ds == nil {
		return nil
	}
	return &DatasetView{
		Id:           ds.Id,
		Name:         ds.Name,
		UploadedAt:   FormatUploadedAt(ds.UploadedAt),
		Cards:        SummaryCards(&ds.DatasetSummary),
		Distribution: TypeDistribution(ds.TypeDistribution),
		Averages:     averages,
		Trend:        Trend(ds.Records),
		Headers:      TableHeaders(st),
		Rows:         TableRows(sorted),
	}
}

type DashboardView struct {
	Loading      bool                  `json:"loading"`
	Error        string                `json:"error,omitempty"`
	Upload       dashboard.UploadState `json:"upload"`
	Dataset      *DatasetView          `json:"dataset"`
	EmptyMessage string                `json:"empty_message,omitempty"`
}

func BuildDashboard(st dashboard.ViewState, dataset *DatasetView) DashboardView {
	v := DashboardView{
		Loading: st.Loading,
		Error:   st.Error,
		Upload:  st.Upload,
		Dataset: dataset,
	}
	if dataset == nil && !st.Loading && st.Error == "" {
		v.EmptyMessage = EmptyDashboard
	}
	return v
}

type HistoryItem struct {
	Id            entity.DatasetID `json:"id"`
	Name          string           `json:"name"`
	UploadedAt    string           `json:"uploaded_at"`
	Records       int              `json:"records"`
	Types         int              `json:"types"`
	Selected      bool             `json:"selected"`
	ReportLoading bool             `json:"report_loading"`
}

func HistoryItems(st dashboard.ViewState) []HistoryItem {
	out := make([]HistoryItem, 0, len(st.History))
	for _, h := range st.History {
		out = append(out, HistoryItem{
			Id:            h.Id,
			Name:          h.Name,
			UploadedAt:    FormatUploadedAt(h.UploadedAt),
			Records:       h.TotalRecords,
			Types:         len(h.TypeDistribution),
			Selected:      st.Selected(h.Id),
			ReportLoading: st.ReportLoadingID != nil && *st.ReportLoadingID == h.Id,
		})
	}
	return out
}

type HistoryView struct {
	Loading       bool          `json:"loading"`
	Error         string        `json:"error,omitempty"`
	Items         []HistoryItem `json:"items"`
	EmptyMessage  string        `json:"empty_message,omitempty"`
	DetailLoading bool          `json:"detail_loading"`
	DetailError   string        `json:"detail_error,omitempty"`
	Detail        *DatasetView  `json:"detail"`
	ReportError   string        `json:"report_error,omitempty"`
}

func BuildHistory(st dashboard.ViewState, detail *DatasetView) HistoryView {
	v := HistoryView{
		Loading:       st.HistoryLoading,
		Error:         st.HistoryError,
		Items:         HistoryItems(st),
		DetailLoading: st.DetailLoading,
		DetailError:   st.DetailError,
		Detail:        detail,
		ReportError:   st.ReportError,
	}
	if len(v.Items) == 0 && !st.HistoryLoading {
		v.EmptyMessage = EmptyHistory
	}
	return v
}
