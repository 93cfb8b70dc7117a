package dashboard

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/pkg/logger"
	"chemviz-dashboard/internal/table"
	"chemviz-dashboard/pkg/chemapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu sync.Mutex

	history    []entity.HistoryEntry
	historyErr error
	datasets   map[entity.DatasetID]*entity.Dataset
	detailErr  error
	deleteErr  error
	uploadErr  error
	uploaded   *entity.Dataset
	report     *chemapi.Report
	reportErr  error

	// gates block Detail for an id until closed
	gates map[entity.DatasetID]chan struct{}
	// historyGate blocks History until closed
	historyGate chan struct{}

	calls       []string
	detailCalls []entity.DatasetID
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		datasets: make(map[entity.DatasetID]*entity.Dataset),
		gates:    make(map[entity.DatasetID]chan struct{}),
	}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) History(ctx context.Context) ([]entity.HistoryEntry, error) {
	f.record("history")
	f.mu.Lock()
	gate := f.historyGate
	history := append([]entity.HistoryEntry(nil), f.history...)
	historyErr := f.historyErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if historyErr != nil {
		return nil, historyErr
	}
	return history, nil
}

func (f *fakeAPI) Detail(ctx context.Context, id entity.DatasetID) (*entity.Dataset, error) {
	f.record("detail")
	f.mu.Lock()
	f.detailCalls = append(f.detailCalls, id)
	gate := f.gates[id]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	ds, ok := f.datasets[id]
	if !ok {
		return nil, &chemapi.RequestError{Method: "GET", Path: "/dataset/", Status: 404}
	}
	return ds, nil
}

func (f *fakeAPI) Delete(ctx context.Context, id entity.DatasetID) error {
	f.record("delete")
	return f.deleteErr
}

func (f *fakeAPI) Report(ctx context.Context, id entity.DatasetID) (*chemapi.Report, error) {
	f.record("report")
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	return f.report, nil
}

func (f *fakeAPI) Upload(ctx context.Context, fileName string, body io.Reader) (*entity.Dataset, error) {
	f.record("upload")
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.uploaded, nil
}

type recordingStates struct {
	mu     sync.Mutex
	states []ViewState
}

func (r *recordingStates) PublishState(s ViewState) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

type recordingEvents struct {
	mu       sync.Mutex
	uploaded []entity.DatasetID
	deleted  []entity.DatasetID
	reports  []string
}

func (r *recordingEvents) PublishDatasetUploaded(_ context.Context, ds *entity.Dataset) {
	r.mu.Lock()
	r.uploaded = append(r.uploaded, ds.Id)
	r.mu.Unlock()
}

func (r *recordingEvents) PublishDatasetDeleted(_ context.Context, id entity.DatasetID) {
	r.mu.Lock()
	r.deleted = append(r.deleted, id)
	r.mu.Unlock()
}

func (r *recordingEvents) PublishReportDownloaded(_ context.Context, _ entity.DatasetID, filename string) {
	r.mu.Lock()
	r.reports = append(r.reports, filename)
	r.mu.Unlock()
}

type memoryDownloader struct {
	filename string
	data     []byte
	err      error
}

func (m *memoryDownloader) Download(_ context.Context, filename string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.filename = filename
	m.data = data
	return nil
}

func sampleDataset(id entity.DatasetID) *entity.Dataset {
	return &entity.Dataset{
		DatasetSummary: entity.DatasetSummary{
			Id:               id,
			Name:             "sample.csv",
			UploadedAt:       time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC),
			TotalRecords:     3,
			AvgFlowrate:      20,
			AvgPressure:      5,
			AvgTemperature:   100,
			TypeDistribution: map[string]int{"Pump": 2, "Valve": 1},
		},
		Records: []entity.EquipmentRecord{
			{Id: 1, EquipmentName: "Pump-1", EquipmentType: "Pump", Flowrate: 10, Pressure: 4, Temperature: 90},
			{Id: 2, EquipmentName: "Valve-1", EquipmentType: "Valve", Flowrate: 20, Pressure: 5, Temperature: 100},
			{Id: 3, EquipmentName: "Pump-2", EquipmentType: "Pump", Flowrate: 30, Pressure: 6, Temperature: 110},
		},
	}
}

func newTestController(api *fakeAPI) (*Controller, *recordingStates, *recordingEvents) {
	states := &recordingStates{}
	events := &recordingEvents{}
	return NewController(api, states, events, logger.NewNopLogger()), states, events
}

func TestLoadLatestWithEmptyHistoryShowsEmptyDashboard(t *testing.T) {
	api := newFakeAPI()
	c, _, _ := newTestController(api)

	err := c.LoadLatest(context.Background())
	require.NoError(t, err)

	st := c.State()
	assert.Nil(t, st.Dataset)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	assert.Equal(t, 1, api.callCount())
}

func TestLoadLatestFetchesFirstHistoryEntry(t *testing.T) {
	api := newFakeAPI()
	api.history = []entity.HistoryEntry{{Id: 5}, {Id: 7}}
	api.datasets[5] = sampleDataset(5)
	api.datasets[7] = sampleDataset(7)
	c, _, _ := newTestController(api)

	require.NoError(t, c.LoadLatest(context.Background()))

	assert.Equal(t, []entity.DatasetID{5}, api.detailCalls)
	require.NotNil(t, c.State().Dataset)
	assert.Equal(t, entity.DatasetID(5), c.State().Dataset.Id)
}

func TestLoadLatestFailureSetsErrorMessage(t *testing.T) {
	api := newFakeAPI()
	api.historyErr = &chemapi.RequestError{Method: "GET", Path: "/history/", Status: 500}
	c, states, _ := newTestController(api)

	err := c.LoadLatest(context.Background())
	require.Error(t, err)

	st := c.State()
	assert.Nil(t, st.Dataset)
	assert.Equal(t, MsgLoadFailed, st.Error)
	assert.False(t, st.Loading)

	// loading is published before the result
	require.Len(t, states.states, 2)
	assert.True(t, states.states[0].Loading)
	assert.False(t, states.states[1].Loading)
	assert.Less(t, states.states[0].Version, states.states[1].Version)
}

func TestLoadLatestFailureAfterSuccessClearsDataset(t *testing.T) {
	api := newFakeAPI()
	api.history = []entity.HistoryEntry{{Id: 5}}
	api.datasets[5] = sampleDataset(5)
	c, _, _ := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.LoadLatest(ctx))
	require.NotNil(t, c.State().Dataset)

	api.historyErr = &chemapi.RequestError{Method: "GET", Path: "/history/", Status: 500}
	require.Error(t, c.LoadLatest(ctx))

	st := c.State()
	assert.Nil(t, st.Dataset)
	assert.Equal(t, MsgLoadFailed, st.Error)
	assert.False(t, st.Loading)
}

func TestOverlappingLoadLatestKeepsNewestCall(t *testing.T) {
	api := newFakeAPI()
	api.history = []entity.HistoryEntry{{Id: 5}}
	api.datasets[5] = sampleDataset(5)
	api.datasets[7] = sampleDataset(7)
	gate := make(chan struct{})
	api.gates[5] = gate
	c, _, _ := newTestController(api)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- c.LoadLatest(ctx)
	}()

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.detailCalls) == 1
	}, time.Second, 5*time.Millisecond)

	api.mu.Lock()
	api.history = []entity.HistoryEntry{{Id: 7}, {Id: 5}}
	api.mu.Unlock()

	require.NoError(t, c.LoadLatest(ctx))
	close(gate)
	require.NoError(t, <-done)

	st := c.State()
	require.NotNil(t, st.Dataset)
	assert.Equal(t, entity.DatasetID(7), st.Dataset.Id)
	assert.False(t, st.Loading)
}

func TestUploadRejectsNonCSVWithoutNetworkCall(t *testing.T) {
	tests := []string{"data.txt", "data.CSV", "data.csv.bak", "csv"}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			api := newFakeAPI()
			c, _, _ := newTestController(api)

			err := c.UploadFile(context.Background(), name, strings.NewReader("a,b"))

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, MsgCSVOnly, vErr.Message)
			assert.Equal(t, 0, api.callCount())
			assert.Equal(t, UploadError, c.State().Upload.Status)
			assert.Equal(t, MsgCSVOnly, c.State().Upload.Error)
		})
	}
}

func TestUploadSuccessReloadsLatest(t *testing.T) {
	api := newFakeAPI()
	ds := sampleDataset(9)
	api.uploaded = ds
	api.history = []entity.HistoryEntry{ds.DatasetSummary}
	api.datasets[9] = ds
	c, _, events := newTestController(api)

	err := c.UploadFile(context.Background(), "/tmp/plant.csv", strings.NewReader("x"))
	require.NoError(t, err)

	st := c.State()
	assert.Equal(t, UploadSuccess, st.Upload.Status)
	assert.Equal(t, "plant.csv", st.Upload.FileName)
	require.NotNil(t, st.Dataset)
	assert.Equal(t, entity.DatasetID(9), st.Dataset.Id)
	assert.Equal(t, []entity.DatasetID{9}, events.uploaded)
	assert.Equal(t, []string{"upload", "history", "detail"}, api.calls)
}

func TestUploadFailureUsesBackendErrorField(t *testing.T) {
	api := newFakeAPI()
	api.uploadErr = &chemapi.RequestError{
		Method:  "POST",
		Path:    "/upload/",
		Status:  400,
		Payload: []byte(`{"error":"Missing required columns: Flowrate"}`),
	}
	c, _, _ := newTestController(api)

	err := c.UploadFile(context.Background(), "plant.csv", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, "Missing required columns: Flowrate", c.State().Upload.Error)

	api.uploadErr = errors.New("connection refused")
	err = c.UploadFile(context.Background(), "plant.csv", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, MsgUploadFailed, c.State().Upload.Error)
}

func TestLoadHistoryFailureLeavesEmptyList(t *testing.T) {
	api := newFakeAPI()
	api.history = []entity.HistoryEntry{{Id: 1}}
	c, _, _ := newTestController(api)
	require.NoError(t, c.LoadHistory(context.Background()))
	require.Len(t, c.State().History, 1)

	api.historyErr = errors.New("boom")
	require.Error(t, c.LoadHistory(context.Background()))

	st := c.State()
	assert.NotNil(t, st.History)
	assert.Empty(t, st.History)
	assert.Equal(t, MsgHistoryFailed, st.HistoryError)
	assert.False(t, st.HistoryLoading)
}

func TestDeleteSelectedEntryClearsSelection(t *testing.T) {
	api := newFakeAPI()
	api.history = []entity.HistoryEntry{{Id: 5}, {Id: 7}, {Id: 8}}
	api.datasets[7] = sampleDataset(7)
	c, _, events := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.LoadHistory(ctx))
	require.NoError(t, c.SelectHistoryEntry(ctx, 7))
	require.NotNil(t, c.State().Detail)

	require.NoError(t, c.DeleteDataset(ctx, 7))

	st := c.State()
	require.Len(t, st.History, 2)
	assert.Equal(t, entity.DatasetID(5), st.History[0].Id)
	assert.Equal(t, entity.DatasetID(8), st.History[1].Id)
	assert.Nil(t, st.SelectedHistoryID)
	assert.Nil(t, st.Detail)
	assert.Equal(t, []entity.DatasetID{7}, events.deleted)
}

func TestDeleteOtherEntryKeepsSelection(t *testing.T) {
	api := newFakeAPI()
	api.history = []entity.HistoryEntry{{Id: 5}, {Id: 7}}
	api.datasets[5] = sampleDataset(5)
	c, _, _ := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.LoadHistory(ctx))
	require.NoError(t, c.SelectHistoryEntry(ctx, 5))
	require.NoError(t, c.DeleteDataset(ctx, 7))

	st := c.State()
	require.Len(t, st.History, 1)
	assert.True(t, st.Selected(5))
	assert.NotNil(t, st.Detail)
}

func TestDeleteFailureKeepsHistoryAndReportsError(t *testing.T) {
	api := newFakeAPI()
	api.history = []entity.HistoryEntry{{Id: 5}}
	api.deleteErr = &chemapi.RequestError{Method: "DELETE", Path: "/dataset/5/delete/", Status: 404, Payload: []byte(`{"error":"Not found"}`)}
	c, _, events := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.LoadHistory(ctx))
	err := c.DeleteDataset(ctx, 5)
	require.Error(t, err)

	st := c.State()
	assert.Len(t, st.History, 1)
	assert.Equal(t, MsgDeleteFailed+" Not found", st.HistoryError)
	assert.Empty(t, events.deleted)
}

func TestDeleteDiscardsInFlightHistoryReload(t *testing.T) {
	api := newFakeAPI()
	api.history = []entity.HistoryEntry{{Id: 5}, {Id: 7}}
	c, _, _ := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.LoadHistory(ctx))

	gate := make(chan struct{})
	api.mu.Lock()
	api.historyGate = gate
	api.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- c.LoadHistory(ctx)
	}()
	require.Eventually(t, func() bool {
		return api.callCount() == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.DeleteDataset(ctx, 5))
	close(gate)
	require.NoError(t, <-done)

	st := c.State()
	require.Len(t, st.History, 1)
	assert.Equal(t, entity.DatasetID(7), st.History[0].Id)
	assert.False(t, st.HistoryLoading)
}

func TestStaleDetailResponseIsDiscarded(t *testing.T) {
	api := newFakeAPI()
	api.datasets[1] = sampleDataset(1)
	api.datasets[2] = sampleDataset(2)
	gate := make(chan struct{})
	api.gates[1] = gate
	c, _, _ := newTestController(api)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- c.SelectHistoryEntry(ctx, 1)
	}()

	// wait until the first request is in flight
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.detailCalls) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.SelectHistoryEntry(ctx, 2))
	close(gate)
	require.NoError(t, <-done)

	st := c.State()
	assert.True(t, st.Selected(2))
	require.NotNil(t, st.Detail)
	assert.Equal(t, entity.DatasetID(2), st.Detail.Id)
	assert.False(t, st.DetailLoading)
}

func TestSelectFailureLeavesNoDetail(t *testing.T) {
	api := newFakeAPI()
	c, _, _ := newTestController(api)

	err := c.SelectHistoryEntry(context.Background(), 42)
	require.Error(t, err)

	st := c.State()
	assert.Nil(t, st.Detail)
	assert.Equal(t, MsgDetailFailed, st.DetailError)
}

func TestRequestReportHandsBytesToDownloader(t *testing.T) {
	api := newFakeAPI()
	api.report = &chemapi.Report{Filename: "report_3.pdf", Data: []byte("%PDF-1.4")}
	c, _, events := newTestController(api)
	dl := &memoryDownloader{}

	require.NoError(t, c.RequestReport(context.Background(), 3, dl))

	assert.Equal(t, "report_3.pdf", dl.filename)
	assert.Equal(t, []byte("%PDF-1.4"), dl.data)
	assert.Nil(t, c.State().ReportLoadingID)
	assert.Empty(t, c.State().ReportError)
	assert.Equal(t, []string{"report_3.pdf"}, events.reports)
}

func TestRequestReportFailureSetsReportError(t *testing.T) {
	api := newFakeAPI()
	api.reportErr = &chemapi.RequestError{Method: "GET", Path: "/dataset/3/report/", Status: 500}
	c, states, _ := newTestController(api)

	err := c.RequestReport(context.Background(), 3, &memoryDownloader{})
	require.Error(t, err)

	st := c.State()
	assert.Nil(t, st.ReportLoadingID)
	assert.Equal(t, MsgReportFailed, st.ReportError)

	require.NotEmpty(t, states.states)
	require.NotNil(t, states.states[0].ReportLoadingID)
	assert.Equal(t, entity.DatasetID(3), *states.states[0].ReportLoadingID)
}

func TestNavigateResetsPageBeingLeft(t *testing.T) {
	api := newFakeAPI()
	api.history = []entity.HistoryEntry{{Id: 5}}
	api.datasets[5] = sampleDataset(5)
	c, _, _ := newTestController(api)
	ctx := context.Background()

	require.NoError(t, c.LoadLatest(ctx))
	require.NoError(t, c.SortBy("flowrate"))
	require.NoError(t, c.Navigate(PageHistory))

	st := c.State()
	assert.Equal(t, PageHistory, st.Page)
	assert.Nil(t, st.Dataset)
	assert.Equal(t, table.DefaultSortState(), st.Sort)

	require.NoError(t, c.LoadHistory(ctx))
	require.NoError(t, c.SelectHistoryEntry(ctx, 5))
	require.NoError(t, c.Navigate(PageDashboard))

	st = c.State()
	assert.Empty(t, st.History)
	assert.Nil(t, st.SelectedHistoryID)
	assert.Nil(t, st.Detail)

	var vErr *ValidationError
	assert.ErrorAs(t, c.Navigate("settings"), &vErr)
}

func TestSortByTogglesDirection(t *testing.T) {
	c, _, _ := newTestController(newFakeAPI())

	require.NoError(t, c.SortBy("pressure"))
	assert.Equal(t, table.SortState{Key: table.KeyPressure, Direction: table.Ascending}, c.State().Sort)

	require.NoError(t, c.SortBy("pressure"))
	assert.Equal(t, table.Descending, c.State().Sort.Direction)

	var vErr *ValidationError
	assert.ErrorAs(t, c.SortBy("colour"), &vErr)
}

func TestSortedRecordsFollowsSortState(t *testing.T) {
	c, _, _ := newTestController(newFakeAPI())
	ds := sampleDataset(1)

	require.NoError(t, c.SortBy("flowrate"))
	require.NoError(t, c.SortBy("flowrate"))

	rows := c.SortedRecords(ds)
	require.Len(t, rows, 3)
	assert.Equal(t, []float64{30, 20, 10}, []float64{rows[0].Flowrate, rows[1].Flowrate, rows[2].Flowrate})
	// input untouched
	assert.Equal(t, 10.0, ds.Records[0].Flowrate)
}

func TestResetClearsEverythingAndDropsInFlight(t *testing.T) {
	api := newFakeAPI()
	api.datasets[1] = sampleDataset(1)
	gate := make(chan struct{})
	api.gates[1] = gate
	c, _, _ := newTestController(api)

	done := make(chan error, 1)
	go func() {
		done <- c.SelectHistoryEntry(context.Background(), 1)
	}()
	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.detailCalls) == 1
	}, time.Second, 5*time.Millisecond)

	before := c.State().Version
	c.Reset()
	close(gate)
	require.NoError(t, <-done)

	st := c.State()
	assert.Nil(t, st.Detail)
	assert.Nil(t, st.SelectedHistoryID)
	assert.Equal(t, PageDashboard, st.Page)
	assert.Greater(t, st.Version, before)
}
