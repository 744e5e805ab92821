package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/fanloremedia/fanlore/internal/config"
)

// Client wraps NATS and JetStream connections
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *zap.Logger
	cfg    config.NATSConfig
}

// NewClient creates a new NATS client with JetStream
func NewClient(cfg config.NATSConfig, logger *zap.Logger) (*Client, func(), error) {
	opts := []nats.Option{
		nats.Name("fanlore-sync"),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &Client{
		nc:     nc,
		js:     js,
		logger: logger.Named("nats"),
		cfg:    cfg,
	}

	if err := client.initializeStream(context.Background()); err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to initialize stream: %w", err)
	}

	cleanup := func() {
		if err := nc.Drain(); err != nil {
			logger.Error("failed to drain NATS connection", zap.Error(err))
		}
		nc.Close()
	}

	logger.Info("NATS client initialized", zap.String("url", cfg.URL))

	return client, cleanup, nil
}

// initializeStream creates the catalog event stream.
func (c *Client) initializeStream(ctx context.Context) error {
	stream := jetstream.StreamConfig{
		Name:        c.cfg.StreamName,
		Description: "Stream for catalog sync events",
		Subjects: []string{
			"catalog.>",
		},
		Retention:    jetstream.LimitsPolicy,
		MaxAge:       30 * 24 * time.Hour,
		MaxConsumers: -1,
		Replicas:     1,
		Storage:      jetstream.FileStorage,
		Discard:      jetstream.DiscardOld,
		MaxMsgs:      -1,
		MaxBytes:     -1,
	}

	if _, err := c.js.CreateOrUpdateStream(ctx, stream); err != nil {
		return fmt.Errorf("failed to create catalog stream: %w", err)
	}

	c.logger.Info("JetStream stream initialized", zap.String("stream", c.cfg.StreamName))
	return nil
}

// JetStream returns the JetStream context
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// IsConnected checks if the client is connected
func (c *Client) IsConnected() bool {
	return c.nc.IsConnected()
}

// Health checks the health of the NATS connection
func (c *Client) Health() error {
	if !c.IsConnected() {
		return fmt.Errorf("NATS client is not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := c.js.AccountInfo(ctx); err != nil {
		return fmt.Errorf("failed to get JetStream account info: %w", err)
	}
	return nil
}

// Close closes the NATS connection
func (c *Client) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}
