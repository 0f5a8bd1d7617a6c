package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gridctl/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds
)

// Logger receives asynchronous write failures.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// server is the part of influxdb2.Client the recorder needs.
type server interface {
	Ping(ctx context.Context) (bool, error)
	Close()
}

// pointWriter is the part of api.WriteAPI the recorder needs.
type pointWriter interface {
	WritePoint(p *write.Point)
	Flush()
}

// Client records one construct's controller history. Every point it writes
// is tagged with that construct's ID. Writes are batched in the background
// and are silently dropped after Close.
//
// All methods are safe for concurrent use.
type Client struct {
	server      server
	points      pointWriter
	constructID string
	logger      Logger
	now         func() time.Time

	mu     sync.RWMutex
	closed bool
}

func newClient(s server, w pointWriter, constructID string, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{
		server:      s,
		points:      w,
		constructID: constructID,
		logger:      logger,
		now:         time.Now,
	}
}

// Connect pings the configured server and returns a recorder scoped to
// constructID. Failed batches are reported to logger.
func Connect(cfg config.InfluxDBConfig, constructID string, logger Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if constructID == "" {
		return nil, ErrNoConstruct
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	// #nosec G115 -- both values are positive here
	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(batchSize)).
		SetFlushInterval(uint(flushInterval) * 1000)
	s := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, s); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	w := s.WriteAPI(cfg.Org, cfg.Bucket)
	c := newClient(s, w, constructID, logger)
	go c.drain(w.Errors())
	return c, nil
}

// drain logs write errors until the write API is closed.
func (c *Client) drain(errs <-chan error) {
	for err := range errs {
		c.logger.Warn("InfluxDB write failed", "construct_id", c.constructID, "error", err)
	}
}

// Close flushes pending points and releases the server connection. Later
// writes are dropped.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.points.Flush()
	c.server.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.server); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

func ping(ctx context.Context, s server) error {
	healthy, err := s.Ping(ctx)
	if err != nil {
		return err
	}
	if !healthy {
		return ErrUnhealthy
	}
	return nil
}
