// FILE: internal/service/state_bus_service.go
package service

import (
	"context"
	"encoding/json"

	"chemviz-dashboard/internal/dashboard"
	"chemviz-dashboard/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const ViewStateTopic = "chemviz.view_state"

// StateDelivery pushes a message to every connected viewer. Implemented by
// the WebSocket hub.
type StateDelivery interface {
	Broadcast(kind string, payload interface{})
}

type statePublisherService struct {
	topic     string
	publisher message.Publisher
	logger    logger.ILogger
}

// NewStatePublisherService puts every controller snapshot on the in-process
// bus, decoupling the controller from slow viewers.
func NewStatePublisherService(topic string, publisher message.Publisher, log logger.ILogger) dashboard.StatePublisher {
	return &statePublisherService{
		topic:     topic,
		publisher: publisher,
		logger:    log,
	}
}

func (s *statePublisherService) PublishState(state dashboard.ViewState) {
	payload, err := json.Marshal(state)
	if err != nil {
		s.logger.Error("STATE_BUS", "Failed to marshal view state", map[string]interface{}{"error": err.Error()})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		s.logger.Error("STATE_BUS", "Failed to publish view state", map[string]interface{}{
			"version": state.Version,
			"error":   err.Error(),
		})
	}
}

type IStateConsumerService interface {
	Consume(ctx context.Context) error
}

type stateConsumerService struct {
	subscriber message.Subscriber
	topic      string
	delivery   StateDelivery
	logger     logger.ILogger

	// only touched by the consuming goroutine
	lastVersion uint64
}

func NewStateConsumerService(subscriber message.Subscriber, topic string, delivery StateDelivery, log logger.ILogger) IStateConsumerService {
	return &stateConsumerService{
		subscriber: subscriber,
		topic:      topic,
		delivery:   delivery,
		logger:     log,
	}
}

// Consume forwards snapshots to the viewers until ctx is done. The bus may
// reorder messages; a snapshot older than one already delivered is dropped.
func (s *stateConsumerService) Consume(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(msg)
		}
	}()
	return nil
}

func (s *stateConsumerService) processMessage(msg *message.Message) {
	defer msg.Ack()

	var state dashboard.ViewState
	if err := json.Unmarshal(msg.Payload, &state); err != nil {
		s.logger.Error("STATE_BUS", "Failed to unmarshal view state", map[string]interface{}{"error": err.Error()})
		return
	}
	if state.Version <= s.lastVersion {
		return
	}
	s.lastVersion = state.Version
	s.delivery.Broadcast("view_state", state)
}
