// Package events fans canvas changes out to live subscribers, one topic per
// session.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/branch-canvas/internal/session"
	"github.com/ziadkadry99/branch-canvas/internal/viewport"
)

// Type identifies what changed.
type Type string

const (
	NodeCreated   Type = "node.created"
	NodeUpdated   Type = "node.updated"
	NodeDeleted   Type = "node.deleted"
	SendStarted   Type = "send.started"
	SendCompleted Type = "send.completed"
	ViewChanged   Type = "view.changed"
	CanvasLoaded  Type = "canvas.loaded"
	CanvasReset   Type = "canvas.reset"
)

// Event is a change to a session's canvas.
type Event struct {
	Type      Type                  `json:"type"`
	SessionID string                `json:"sessionId"`
	NodeID    string                `json:"nodeId,omitempty"`
	Node      *session.SnapshotNode `json:"node,omitempty"`
	Removed   []string              `json:"removed,omitempty"`
	View      *viewport.View        `json:"view,omitempty"`
	RootID    string                `json:"rootNodeId,omitempty"`
}

// Topic is the topic events of a session are published on.
func Topic(sessionID string) string {
	return "canvas." + sessionID
}

// Bus is an in-process pub/sub for canvas events.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger zerolog.Logger
}

// NewBus creates a Bus. Events are delivered in publish order.
func NewBus(logger zerolog.Logger) *Bus {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: true,
	}, NewZerologAdapter(logger))
	return &Bus{pubSub: pubSub, logger: logger}
}

// Publish sends e to the subscribers of its session.
func (b *Bus) Publish(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", string(e.Type))
	if err := b.pubSub.Publish(Topic(e.SessionID), msg); err != nil {
		return fmt.Errorf("publishing %s: %w", e.Type, err)
	}
	return nil
}

// SubscriberBuffer is how many events a subscriber may fall behind before
// its subscription is ended.
const SubscriberBuffer = 16

// Subscribe streams the events of a session until ctx is done. A consumer
// that falls more than SubscriberBuffer events behind has its channel
// closed; it must subscribe again and reload the canvas. Publishing never
// waits on a consumer.
func (b *Bus) Subscribe(ctx context.Context, sessionID string) (<-chan Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, Topic(sessionID))
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", sessionID, err)
	}

	out := make(chan Event, SubscriberBuffer)
	go func() {
		open := true
		defer func() {
			if open {
				close(out)
			}
		}()
		// Messages are acked as soon as they arrive and drained until the
		// subscription ends, even after out was closed.
		for msg := range messages {
			msg.Ack()
			if !open {
				continue
			}
			var e Event
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				b.logger.Warn().Err(err).Str("session", sessionID).Msg("dropping undecodable event")
				continue
			}
			select {
			case out <- e:
			default:
				b.logger.Warn().Str("session", sessionID).Msg("subscriber too slow, ending subscription")
				close(out)
				open = false
			}
		}
	}()
	return out, nil
}

// Close shuts the bus down and ends every subscription.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
