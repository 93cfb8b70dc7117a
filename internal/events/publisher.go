package events

import (
	"context"

	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/pkg/logger"
	pkgEvents "chemviz-dashboard/pkg/events"
	pktNats "chemviz-dashboard/pkg/nats"
)

// Publisher announces dashboard activity to other processes.
type Publisher interface {
	PublishDatasetUploaded(ctx context.Context, ds *entity.Dataset)
	PublishDatasetDeleted(ctx context.Context, id entity.DatasetID)
	PublishReportDownloaded(ctx context.Context, id entity.DatasetID, filename string)
	PublishSessionStarted(ctx context.Context, username string)
	PublishSessionEnded(ctx context.Context, username string)
}

// bus is the part of pkg/nats.Publisher we need.
type bus interface {
	Publish(ctx context.Context, event pkgEvents.Event) error
}

// NatsPublisher implements Publisher using NATS. A nil bus turns every
// method into a no-op, which is how events are switched off.
type NatsPublisher struct {
	publisher bus
	logger    logger.ILogger
}

func NewNatsPublisher(publisher *pktNats.Publisher, logger logger.ILogger) *NatsPublisher {
	p := &NatsPublisher{logger: logger}
	if publisher != nil {
		p.publisher = publisher
	}
	return p
}

func (p *NatsPublisher) publish(ctx context.Context, evt pkgEvents.BaseEvent) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+evt.Type+" event", map[string]interface{}{"error": err.Error()})
	}
}

func (p *NatsPublisher) PublishDatasetUploaded(ctx context.Context, ds *entity.Dataset) {
	p.publish(ctx, pkgEvents.New(pkgEvents.DatasetUploaded, map[string]interface{}{
		"dataset_id":    ds.Id,
		"name":          ds.Name,
		"total_records": ds.TotalRecords,
		"uploaded_at":   ds.UploadedAt,
	}))
}

func (p *NatsPublisher) PublishDatasetDeleted(ctx context.Context, id entity.DatasetID) {
	p.publish(ctx, pkgEvents.New(pkgEvents.DatasetDeleted, map[string]interface{}{
		"dataset_id": id,
	}))
}

func (p *NatsPublisher) PublishReportDownloaded(ctx context.Context, id entity.DatasetID, filename string) {
	p.publish(ctx, pkgEvents.New(pkgEvents.ReportDownloaded, map[string]interface{}{
		"dataset_id": id,
		"filename":   filename,
	}))
}

func (p *NatsPublisher) PublishSessionStarted(ctx context.Context, username string) {
	p.publish(ctx, pkgEvents.New(pkgEvents.SessionStarted, map[string]interface{}{
		"username": username,
	}))
}

func (p *NatsPublisher) PublishSessionEnded(ctx context.Context, username string) {
	p.publish(ctx, pkgEvents.New(pkgEvents.SessionEnded, map[string]interface{}{
		"username": username,
	}))
}
