// FILE: internal/dashboard/controller.go
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/pkg/logger"
	"chemviz-dashboard/internal/table"
	"chemviz-dashboard/pkg/chemapi"
)

// Controller owns the ViewState and is the only writer of it. Every mutation
// happens under mu and is published as a snapshot once mu is released. The
// lock is never held across a backend call.
//
// Each fetch takes a sequence number before it starts. A response whose
// sequence number is no longer current is dropped, so a slow answer can never
// overwrite a newer one.
type Controller struct {
	api        DatasetAPI
	states     StatePublisher
	events     EventPublisher
	aggregates *AggregateCache
	logger     logger.ILogger

	mu         sync.Mutex
	state      ViewState
	latestSeq  uint64
	historySeq uint64
	detailSeq  uint64
}

func NewController(api DatasetAPI, states StatePublisher, events EventPublisher, log logger.ILogger) *Controller {
	if states == nil {
		states = nopStatePublisher{}
	}
	if events == nil {
		events = nopEventPublisher{}
	}
	return &Controller{
		api:        api,
		states:     states,
		events:     events,
		aggregates: NewAggregateCache(),
		logger:     log,
		state:      initialState(),
	}
}

// State returns a snapshot of the current ViewState.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// update applies fn and publishes the result.
func (c *Controller) update(fn func(s *ViewState)) {
	c.mu.Lock()
	fn(&c.state)
	c.state.Version++
	snap := c.state.clone()
	c.mu.Unlock()

	c.states.PublishState(snap)
}

// begin bumps the sequence counter, applies fn and publishes. The returned
// sequence number is what the matching finish call must present.
func (c *Controller) begin(counter *uint64, fn func(s *ViewState)) uint64 {
	c.mu.Lock()
	*counter++
	seq := *counter
	fn(&c.state)
	c.state.Version++
	snap := c.state.clone()
	c.mu.Unlock()

	c.states.PublishState(snap)
	return seq
}

// finish applies fn only if seq is still the current value of counter.
func (c *Controller) finish(counter *uint64, seq uint64, fn func(s *ViewState)) bool {
	c.mu.Lock()
	if *counter != seq {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	c.state.Version++
	snap := c.state.clone()
	c.mu.Unlock()

	c.states.PublishState(snap)
	return true
}

// --- Dashboard ---

// LoadLatest shows the newest dataset. The history lists newest first, so the
// first entry is the latest upload. An empty history is not an error.
func (c *Controller) LoadLatest(ctx context.Context) error {
	seq := c.begin(&c.latestSeq, func(s *ViewState) {
		s.Loading = true
		s.Error = ""
	})

	ds, err := c.fetchLatest(ctx)
	if err != nil {
		c.logger.Error("DASHBOARD", "Failed to load latest dataset", map[string]interface{}{
			"error": err.Error(),
		})
	}

	applied := c.finish(&c.latestSeq, seq, func(s *ViewState) {
		s.Loading = false
		if err != nil {
			s.Dataset = nil
			s.Error = MsgLoadFailed
			return
		}
		s.Dataset = ds
	})
	if !applied {
		c.logger.Debug("DASHBOARD", "Discarded superseded latest dataset response", nil)
	}
	return err
}

func (c *Controller) fetchLatest(ctx context.Context) (*entity.Dataset, error) {
	history, err := c.api.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if len(history) == 0 {
		return nil, nil
	}

	ds, err := c.api.Detail(ctx, history[0].Id)
	if err != nil {
		return nil, fmt.Errorf("get dataset %d: %w", history[0].Id, err)
	}
	c.checkSummary(ds)
	return ds, nil
}

// checkSummary logs datasets whose summary disagrees with their records. The
// dataset is still shown as the backend sent it.
func (c *Controller) checkSummary(ds *entity.Dataset) {
	if err := ds.Validate(); err != nil {
		c.logger.Warn("DASHBOARD", "Dataset summary does not match its records", map[string]interface{}{
			"dataset_id": ds.Id,
			"error":      err.Error(),
		})
	}
}

// UploadFile sends a CSV to the backend and reloads the dashboard on success.
// Files without a lowercase .csv extension are rejected without any network
// call.
func (c *Controller) UploadFile(ctx context.Context, fileName string, body io.Reader) error {
	name := filepath.Base(fileName)
	if body == nil || fileName == "" {
		c.update(func(s *ViewState) {
			s.Upload = UploadState{Status: UploadError, Error: MsgNoFileSelected}
		})
		return &ValidationError{Field: "file", Message: MsgNoFileSelected}
	}
	if !strings.HasSuffix(name, ".csv") {
		c.update(func(s *ViewState) {
			s.Upload = UploadState{Status: UploadError, FileName: name, Error: MsgCSVOnly}
		})
		return &ValidationError{Field: "file", Message: MsgCSVOnly}
	}

	c.update(func(s *ViewState) {
		s.Upload = UploadState{Status: UploadUploading, FileName: name}
	})

	ds, err := c.api.Upload(ctx, name, body)
	if err != nil {
		msg := uploadErrorMessage(err)
		c.logger.Warn("DASHBOARD", "Upload rejected", map[string]interface{}{
			"file":  name,
			"error": err.Error(),
		})
		c.update(func(s *ViewState) {
			s.Upload = UploadState{Status: UploadError, FileName: name, Error: msg}
		})
		return err
	}

	c.logger.Info("DASHBOARD", "Dataset uploaded", map[string]interface{}{
		"file":       name,
		"dataset_id": ds.Id,
		"records":    ds.TotalRecords,
	})
	c.update(func(s *ViewState) {
		s.Upload = UploadState{Status: UploadSuccess, FileName: name}
	})
	c.events.PublishDatasetUploaded(ctx, ds)

	return c.LoadLatest(ctx)
}

// uploadErrorMessage prefers the backend's "error" field verbatim.
func uploadErrorMessage(err error) string {
	var reqErr *chemapi.RequestError
	if errors.As(err, &reqErr) {
		if msg := reqErr.ErrorField(); msg != "" {
			return msg
		}
	}
	return MsgUploadFailed
}

// --- History ---

// LoadHistory lists past uploads. A failure leaves an empty list.
func (c *Controller) LoadHistory(ctx context.Context) error {
	seq := c.begin(&c.historySeq, func(s *ViewState) {
		s.HistoryLoading = true
		s.HistoryError = ""
	})

	history, err := c.api.History(ctx)
	if err != nil {
		c.logger.Error("DASHBOARD", "Failed to load history", map[string]interface{}{
			"error": err.Error(),
		})
	}

	c.finish(&c.historySeq, seq, func(s *ViewState) {
		s.HistoryLoading = false
		if err != nil {
			s.History = []entity.HistoryEntry{}
			s.HistoryError = MsgHistoryFailed
			return
		}
		if history == nil {
			history = []entity.HistoryEntry{}
		}
		s.History = history
	})
	return err
}

// SelectHistoryEntry fetches the full dataset behind a history entry. Only
// the most recent selection can land in the view.
func (c *Controller) SelectHistoryEntry(ctx context.Context, id entity.DatasetID) error {
	seq := c.begin(&c.detailSeq, func(s *ViewState) {
		s.SelectedHistoryID = &id
		s.Detail = nil
		s.DetailLoading = true
		s.DetailError = ""
	})

	ds, err := c.api.Detail(ctx, id)
	if err != nil {
		c.logger.Error("DASHBOARD", "Failed to load dataset detail", map[string]interface{}{
			"dataset_id": id,
			"error":      err.Error(),
		})
	} else {
		c.checkSummary(ds)
	}

	applied := c.finish(&c.detailSeq, seq, func(s *ViewState) {
		s.DetailLoading = false
		if err != nil {
			s.Detail = nil
			s.DetailError = MsgDetailFailed
			return
		}
		s.Detail = ds
	})
	if !applied {
		c.logger.Debug("DASHBOARD", "Discarded superseded detail response", map[string]interface{}{
			"dataset_id": id,
		})
	}
	return err
}

// DeleteDataset removes a dataset on the backend, then drops it from the
// history list. Deleting the selected entry clears the selection.
func (c *Controller) DeleteDataset(ctx context.Context, id entity.DatasetID) error {
	if err := c.api.Delete(ctx, id); err != nil {
		msg := withBackendMessage(MsgDeleteFailed, err)
		c.logger.Error("DASHBOARD", "Failed to delete dataset", map[string]interface{}{
			"dataset_id": id,
			"error":      err.Error(),
		})
		c.update(func(s *ViewState) {
			s.HistoryError = msg
		})
		return fmt.Errorf("delete dataset %d: %w", id, err)
	}

	c.mu.Lock()
	// a history reload still in flight would bring the entry back
	c.historySeq++
	c.state.HistoryLoading = false
	for i, h := range c.state.History {
		if h.Id == id {
			c.state.History = append(c.state.History[:i:i], c.state.History[i+1:]...)
			break
		}
	}
	if c.state.Selected(id) {
		// a detail fetch still in flight for this entry must not land
		c.detailSeq++
		c.state.SelectedHistoryID = nil
		c.state.Detail = nil
		c.state.DetailLoading = false
		c.state.DetailError = ""
	}
	c.state.HistoryError = ""
	c.state.Version++
	snap := c.state.clone()
	c.mu.Unlock()
	c.states.PublishState(snap)

	c.logger.Info("DASHBOARD", "Dataset deleted", map[string]interface{}{
		"dataset_id": id,
	})
	c.events.PublishDatasetDeleted(ctx, id)
	return nil
}

// RequestReport fetches the PDF report for id and hands it to dl.
func (c *Controller) RequestReport(ctx context.Context, id entity.DatasetID, dl Downloader) error {
	c.update(func(s *ViewState) {
		s.ReportLoadingID = &id
		s.ReportError = ""
	})

	err := c.fetchReport(ctx, id, dl)
	if err != nil {
		c.logger.Error("DASHBOARD", "Failed to download report", map[string]interface{}{
			"dataset_id": id,
			"error":      err.Error(),
		})
	}

	c.update(func(s *ViewState) {
		if s.ReportLoadingID != nil && *s.ReportLoadingID == id {
			s.ReportLoadingID = nil
		}
		if err != nil {
			s.ReportError = withBackendMessage(MsgReportFailed, err)
		}
	})
	return err
}

func (c *Controller) fetchReport(ctx context.Context, id entity.DatasetID, dl Downloader) error {
	report, err := c.api.Report(ctx, id)
	if err != nil {
		return fmt.Errorf("get report %d: %w", id, err)
	}
	if err := dl.Download(ctx, report.Filename, report.Data); err != nil {
		return fmt.Errorf("save report %s: %w", report.Filename, err)
	}

	c.logger.Info("DASHBOARD", "Report downloaded", map[string]interface{}{
		"dataset_id": id,
		"filename":   report.Filename,
		"bytes":      len(report.Data),
	})
	c.events.PublishReportDownloaded(ctx, id, report.Filename)
	return nil
}

// --- Navigation & table ---

// Navigate switches pages. The page being left starts fresh on return.
func (c *Controller) Navigate(page Page) error {
	if page != PageDashboard && page != PageHistory {
		return &ValidationError{Field: "page", Message: fmt.Sprintf("unknown page %q", page)}
	}

	c.mu.Lock()
	if c.state.Page == page {
		c.mu.Unlock()
		return nil
	}
	switch c.state.Page {
	case PageDashboard:
		c.latestSeq++
		defaultDashboardState(&c.state)
	case PageHistory:
		c.historySeq++
		c.detailSeq++
		defaultHistoryState(&c.state)
	}
	c.state.Page = page
	c.state.Version++
	snap := c.state.clone()
	c.mu.Unlock()

	c.states.PublishState(snap)
	return nil
}

// Reset discards everything, as on logout. Responses still in flight are
// dropped when they arrive.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.latestSeq++
	c.historySeq++
	c.detailSeq++
	version := c.state.Version
	c.state = initialState()
	c.state.Version = version + 1
	snap := c.state.clone()
	c.mu.Unlock()

	c.aggregates.Flush()
	c.states.PublishState(snap)
}

// SortBy toggles the table sort on key.
func (c *Controller) SortBy(key string) error {
	k, err := table.ParseKey(key)
	if err != nil {
		return &ValidationError{Field: "sort_key", Message: err.Error()}
	}
	c.update(func(s *ViewState) {
		s.Sort = s.Sort.Toggle(k)
	})
	return nil
}

// SortedRecords returns ds's records in the current table order.
func (c *Controller) SortedRecords(ds *entity.Dataset) []entity.EquipmentRecord {
	if ds == nil {
		return []entity.EquipmentRecord{}
	}
	st := c.State().Sort
	rows, err := table.Sort(ds.Records, st.Key, st.Direction)
	if err != nil {
		return append([]entity.EquipmentRecord{}, ds.Records...)
	}
	return rows
}

// Averages returns per-type averages of ds, memoized per dataset.
func (c *Controller) Averages(ds *entity.Dataset) []TypeAverage {
	return c.aggregates.For(ds)
}
