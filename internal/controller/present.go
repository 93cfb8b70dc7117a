package controller

import (
	"chemviz-dashboard/internal/dashboard"
	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/widget"
)

func datasetView(dc *dashboard.Controller, st dashboard.ViewState, ds *entity.Dataset) *widget.DatasetView {
	if ds == nil {
		return nil
	}
	return widget.BuildDataset(ds, dc.SortedRecords(ds), dc.Averages(ds), st.Sort)
}

func dashboardView(dc *dashboard.Controller) widget.DashboardView {
	st := dc.State()
	return widget.BuildDashboard(st, datasetView(dc, st, st.Dataset))
}

func historyView(dc *dashboard.Controller) widget.HistoryView {
	st := dc.State()
	return widget.BuildHistory(st, datasetView(dc, st, st.Detail))
}
