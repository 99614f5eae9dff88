package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"pbv-lab/internal/observability"
	"pbv-lab/internal/profile"
)

// Config configures connection and reconnect behavior.
type Config struct {
	// ReconnectDelay is the first wait after a dropped connection.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval between ping frames.
	PingInterval time.Duration
	// ReadTimeout closes a connection that stays silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout bounds subscribe, ping and close writes.
	WriteTimeout time.Duration
	// Subscribe is written as a text frame after every connect.
	Subscribe []byte
}

// DefaultConfig returns default connection settings.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Client reads ticks from a websocket endpoint and reconnects with
// exponential backoff when the connection drops.
type Client struct {
	endpoint string
	config   Config
	log      logrus.FieldLogger
	metrics  *observability.Metrics
}

// NewClient creates a client for endpoint. A nil config uses DefaultConfig,
// and non-positive durations fall back to their defaults.
func NewClient(endpoint string, config *Config) *Client {
	cfg := DefaultConfig()
	if config != nil {
		cfg = withDefaults(*config)
	}
	return &Client{
		endpoint: endpoint,
		config:   cfg,
		log:      logrus.StandardLogger(),
	}
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = def.MaxReconnectDelay
	}
	if cfg.MaxReconnectDelay < cfg.ReconnectDelay {
		cfg.MaxReconnectDelay = cfg.ReconnectDelay
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return cfg
}

// WithLogger sets the logger.
func (c *Client) WithLogger(log logrus.FieldLogger) *Client {
	c.log = log.WithField("endpoint", c.endpoint)
	return c
}

// WithMetrics counts received ticks.
func (c *Client) WithMetrics(m *observability.Metrics) *Client {
	c.metrics = m
	return c
}

// handlerError marks an error returned by the caller's handler, which ends Run.
type handlerError struct{ err error }

func (e *handlerError) Error() string { return e.err.Error() }
func (e *handlerError) Unwrap() error { return e.err }

// Run delivers ticks to handle until ctx is done or handle returns an
// error. Malformed messages are logged and skipped. Connection failures,
// including the first dial, are retried.
func (c *Client) Run(ctx context.Context, handle func(Tick) error) error {
	delay := c.config.ReconnectDelay

	for {
		delivered, err := c.session(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var herr *handlerError
		if errors.As(err, &herr) {
			return herr.err
		}

		// A session that delivered data resets the backoff.
		if delivered > 0 {
			delay = c.config.ReconnectDelay
		}
		c.log.WithError(err).WithField("retry_in", delay).Warn("feed disconnected")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.config.MaxReconnectDelay {
			delay = c.config.MaxReconnectDelay
		}
	}
}

// session runs one connection and returns the number of ticks delivered.
func (c *Client) session(ctx context.Context, handle func(Tick) error) (int, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	if len(c.config.Subscribe) > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, c.config.Subscribe); err != nil {
			return 0, fmt.Errorf("write subscribe: %w", err)
		}
	}
	c.log.Info("feed connected")

	// The keepalive goroutine is the only writer once reading starts.
	done := make(chan struct{})
	defer close(done)
	go c.keepalive(ctx, conn, done)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	})

	delivered := 0
	for {
		_ = conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return delivered, fmt.Errorf("read: %w", err)
		}

		t, err := DecodeTick(data)
		if err != nil {
			c.log.WithError(err).Warn("skipping malformed tick")
			continue
		}
		if c.metrics != nil {
			c.metrics.RecordTick()
		}
		if err := handle(t); err != nil {
			return delivered, &handlerError{err}
		}
		delivered++
	}
}

// keepalive pings the server and closes the connection when ctx is done.
func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.config.WriteTimeout))
			conn.Close()
			return
		case <-ticker.C:
			// A failed ping surfaces as a read error.
			_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.config.WriteTimeout))
		}
	}
}

// Watch feeds every tick into a rolling window and passes the resulting
// histogram to emit. The histogram is nil until the window has filled.
// The window survives reconnects.
func Watch(ctx context.Context, c *Client, p profile.Params, emit func(Tick, *profile.Histogram) error) error {
	rolling, err := profile.NewRolling(p)
	if err != nil {
		return err
	}
	return c.Run(ctx, func(t Tick) error {
		h, err := rolling.Push(t.Price, t.Volume)
		if err != nil {
			return fmt.Errorf("histogram: %w", err)
		}
		return emit(t, h)
	})
}
