package nats

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// StreamName is the JetStream stream holding dashboard events.
	StreamName = "CHEMVIZ_EVENTS"

	subjectPrefix = "chemviz.events."

	// AllEvents matches every dashboard event subject.
	AllEvents = subjectPrefix + ">"
)

// Subject is the subject an event of type eventType is published on.
func Subject(eventType string) string {
	return subjectPrefix + strings.ToLower(eventType)
}

func connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}
