package dashboard

import (
	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/table"
)

type Page string

const (
	PageDashboard Page = "dashboard"
	PageHistory   Page = "history"
)

type UploadStatus string

const (
	UploadIdle      UploadStatus = "idle"
	UploadUploading UploadStatus = "uploading"
	UploadSuccess   UploadStatus = "success"
	UploadError     UploadStatus = "error"
)

type UploadState struct {
	Status   UploadStatus `json:"status"`
	FileName string       `json:"file_name,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// ViewState is everything the widgets render. It lives only in memory.
type ViewState struct {
	Page Page `json:"page"`

	// dashboard
	Dataset *entity.Dataset `json:"dataset"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`
	Upload  UploadState     `json:"upload"`

	// history
	History           []entity.HistoryEntry `json:"history"`
	HistoryLoading    bool                  `json:"history_loading"`
	HistoryError      string                `json:"history_error,omitempty"`
	SelectedHistoryID *entity.DatasetID     `json:"selected_history_id"`
	Detail            *entity.Dataset       `json:"detail"`
	DetailLoading     bool                  `json:"detail_loading"`
	DetailError       string                `json:"detail_error,omitempty"`
	ReportLoadingID   *entity.DatasetID     `json:"report_loading_id"`
	ReportError       string                `json:"report_error,omitempty"`

	Sort table.SortState `json:"sort"`

	// Version increases with every published change.
	Version uint64 `json:"version"`
}

func defaultDashboardState(s *ViewState) {
	s.Dataset = nil
	s.Loading = false
	s.Error = ""
	s.Upload = UploadState{Status: UploadIdle}
	s.Sort = table.DefaultSortState()
}

func defaultHistoryState(s *ViewState) {
	s.History = []entity.HistoryEntry{}
	s.HistoryLoading = false
	s.HistoryError = ""
	s.SelectedHistoryID = nil
	s.Detail = nil
	s.DetailLoading = false
	s.DetailError = ""
	s.ReportLoadingID = nil
	s.ReportError = ""
	s.Sort = table.DefaultSortState()
}

func initialState() ViewState {
	s := ViewState{Page: PageDashboard}
	defaultDashboardState(&s)
	defaultHistoryState(&s)
	return s
}

// clone copies the slices and pointers a caller could otherwise mutate.
// Datasets are shared: they are never modified after being fetched.
func (s ViewState) clone() ViewState {
	out := s
	out.History = append([]entity.HistoryEntry(nil), s.History...)
	if s.SelectedHistoryID != nil {
		id := *s.SelectedHistoryID
		out.SelectedHistoryID = &id
	}
	if s.ReportLoadingID != nil {
		id := *s.ReportLoadingID
		out.ReportLoadingID = &id
	}
	return out
}

// Selected reports whether id is the selected history entry.
func (s ViewState) Selected(id entity.DatasetID) bool {
	return s.SelectedHistoryID != nil && *s.SelectedHistoryID == id
}
