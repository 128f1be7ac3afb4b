package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Room events only matter while the rooms they describe are alive
const (
	roomEventRetention = 6 * time.Hour
	roomEventDedupe    = 2 * time.Minute
)

// NATSClient is the JetStream connection room events are published on
type NATSClient struct {
	servers       string
	nc            *nats.Conn
	js            nats.JetStreamContext
	reconnectWait time.Duration
	maxReconnects int
}

// NewNATSClient creates a client for a comma separated server list
func NewNATSClient(servers string) *NATSClient {
	return &NATSClient{
		servers:       servers,
		reconnectWait: 2 * time.Second,
		maxReconnects: -1,
	}
}

// Connect dials the servers and opens a JetStream context. The dial timeout
// follows the ctx deadline when there is one.
func (c *NATSClient) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name("chisato-rooms"),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			entry := log.WithField("servers", c.servers)
			if err != nil {
				entry = entry.WithError(err)
			}
			entry.Warn("Room event bus disconnected, events stay local until reconnect")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("server", nc.ConnectedUrlRedacted()).Info("Room event bus reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			entry := log.WithError(err)
			if sub != nil {
				entry = entry.WithField("subject", sub.Subject)
			}
			entry.Error("Room event bus async error")
		}),
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	nc, err := nats.Connect(c.servers, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c.nc = nc
	c.js = js
	log.WithField("server", nc.ConnectedUrlRedacted()).Info("Connected to room event bus")
	return nil
}

// Close drains pending publishes before closing
func (c *NATSClient) Close() error {
	if c.nc == nil {
		return nil
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	log.Info("Room event bus closed")
	return nil
}

// IsConnected reports whether publishes can currently reach a server
func (c *NATSClient) IsConnected() bool {
	return c.nc != nil && c.nc.IsConnected()
}

// ensureStream creates the stream or widens its subjects to cover every room subject
func (c *NATSClient) ensureStream(name string, subjects []string) error {
	if c.js == nil {
		return fmt.Errorf("not connected to NATS JetStream")
	}

	cfg := &nats.StreamConfig{
		Name:        name,
		Description: "Temporary voice room lifecycle events",
		Subjects:    subjects,
		Retention:   nats.LimitsPolicy,
		Discard:     nats.DiscardOld,
		MaxAge:      roomEventRetention,
		Duplicates:  roomEventDedupe,
		Storage:     nats.FileStorage,
		Replicas:    1,
	}

	info, err := c.js.StreamInfo(name)
	switch {
	case err == nil && sameSubjects(info.Config.Subjects, subjects):
		log.WithField("stream", name).Debug("Room event stream up to date")
		return nil
	case err == nil:
		if _, err := c.js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("failed to update stream %s: %w", name, err)
		}
		log.WithFields(log.Fields{"stream": name, "subjects": subjects}).Info("Updated room event stream subjects")
		return nil
	case !isStreamNotFound(err):
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	if _, err := c.js.AddStream(cfg); err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	log.WithFields(log.Fields{"stream": name, "subjects": subjects}).Info("Created room event stream")
	return nil
}

// Publish stores data on subject. msgID lets JetStream drop a retried duplicate.
func (c *NATSClient) Publish(ctx context.Context, subject, msgID string, data []byte) error {
	if c.js == nil {
		return fmt.Errorf("not connected to NATS JetStream")
	}

	ack, err := c.js.Publish(subject, data, nats.Context(ctx), nats.MsgId(msgID))
	if err != nil {
		return fmt.Errorf("failed to publish message to subject %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"subject":   subject,
		"msg_id":    msgID,
		"sequence":  ack.Sequence,
		"duplicate": ack.Duplicate,
	}).Debug("Published room event to NATS")
	return nil
}

func isStreamNotFound(err error) bool {
	return errors.Is(err, nats.ErrStreamNotFound)
}

func sameSubjects(have, want []string) bool {
	if len(have) != len(want) {
		return false
	}
	seen := make(map[string]bool, len(have))
	for _, s := range have {
		seen[s] = true
	}
	for _, s := range want {
		if !seen[s] {
			return false
		}
	}
	return true
}
