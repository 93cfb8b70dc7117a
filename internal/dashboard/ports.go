package dashboard

import (
	"context"
	"io"

	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/pkg/chemapi"
)

// DatasetAPI is the part of the backend the controller calls.
type DatasetAPI interface {
	History(ctx context.Context) ([]entity.HistoryEntry, error)
	Detail(ctx context.Context, id entity.DatasetID) (*entity.Dataset, error)
	Delete(ctx context.Context, id entity.DatasetID) error
	Report(ctx context.Context, id entity.DatasetID) (*chemapi.Report, error)
	Upload(ctx context.Context, fileName string, body io.Reader) (*entity.Dataset, error)
}

var _ DatasetAPI = (*chemapi.Client)(nil)

// StatePublisher receives every ViewState snapshot after a change.
type StatePublisher interface {
	PublishState(state ViewState)
}

// EventPublisher announces completed user actions to the outside world.
type EventPublisher interface {
	PublishDatasetUploaded(ctx context.Context, ds *entity.Dataset)
	PublishDatasetDeleted(ctx context.Context, id entity.DatasetID)
	PublishReportDownloaded(ctx context.Context, id entity.DatasetID, filename string)
}

// Downloader hands a report to the user: a file on disk for the terminal
// client, an attachment response for the browser.
type Downloader interface {
	Download(ctx context.Context, filename string, data []byte) error
}

type nopStatePublisher struct{}

func (nopStatePublisher) PublishState(ViewState) {}

type nopEventPublisher struct{}

func (nopEventPublisher) PublishDatasetUploaded(context.Context, *entity.Dataset)              {}
func (nopEventPublisher) PublishDatasetDeleted(context.Context, entity.DatasetID)              {}
func (nopEventPublisher) PublishReportDownloaded(context.Context, entity.DatasetID, string) {}
