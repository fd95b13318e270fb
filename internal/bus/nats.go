// Package bus publishes export lifecycle events over NATS. An engine run
// without a configured NATS URL uses the no-op publisher.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/reelworks/reeledit/pkg/schema"
)

// Subjects for export events.
const (
	SubjectExportLifecycle = "reeledit.exports.lifecycle"
	SubjectExportDone      = "reeledit.exports.done"
)

// Publisher is what the export manager emits events through.
type Publisher interface {
	ExportStage(ev schema.ExportLifecycleEvent) error
	ExportDone(ev schema.ExportDone) error
}

// Client is the NATS-backed Publisher.
type Client struct{ nc *nats.Conn }

// Connect dials NATS with unbounded reconnects.
func Connect(url string) (*Client, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats at %s: %w", url, err)
	}
	return &Client{nc: nc}, nil
}

// Close drains the connection.
func (c *Client) Close() {
	if c.nc != nil {
		_ = c.nc.Drain()
	}
}

func (c *Client) ExportStage(ev schema.ExportLifecycleEvent) error {
	return c.publishJSON(SubjectExportLifecycle, ev)
}

func (c *Client) ExportDone(ev schema.ExportDone) error {
	return c.publishJSON(SubjectExportDone, ev)
}

func (c *Client) publishJSON(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if err := c.nc.Publish(subject, b); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Nop discards events. Used when no NATS URL is configured.
type Nop struct{}

func (Nop) ExportStage(schema.ExportLifecycleEvent) error { return nil }
func (Nop) ExportDone(schema.ExportDone) error            { return nil }
