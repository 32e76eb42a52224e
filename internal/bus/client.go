package bus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rillaudio/livecaptions/internal/config"
)

// Client wraps a NATS connection used for the runtime's control-plane
// traffic — node directory changes, fallback/engine-swap/config-reload
// events. The audio data plane never touches this client; it stays on raw
// Go channels (spec.md §5).
type Client struct {
	conn *nats.Conn
	log  *slog.Logger
}

// Connect dials the configured NATS servers.
func Connect(ctx context.Context, cfg config.BusConfig, log *slog.Logger) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}

	options := []nats.Option{
		nats.Name("live-captiond"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}
	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to control bus", slog.String("servers", url))
	return &Client{conn: conn, log: log}, nil
}

// Close drains and closes the connection.
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	c.log.Info("closing control bus connection")
	_ = c.conn.Drain()
	c.conn.Close()
}

// Healthy reports whether the underlying connection is up.
func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

// Conn exposes the underlying NATS connection for publish/subscribe.
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.log
}

// PublishJSON marshals v and publishes it to subject, logging (not
// returning) any error — control-plane publish failures are observability
// noise, never fatal to the pipeline that produced the event.
func (c *Client) PublishJSON(subject string, v any) {
	if c == nil || c.conn == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("failed to marshal control message", slog.String("subject", subject), slog.String("error", err.Error()))
		return
	}
	if err := c.conn.Publish(subject, data); err != nil {
		c.log.Warn("failed to publish control message", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}
