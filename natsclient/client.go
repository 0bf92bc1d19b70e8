// Package natsclient manages the NATS connection and JetStream handles used
// by the object-store storage backend.
package natsclient

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/falaki/spark/errors"
)

// Client wraps a NATS connection with its JetStream context
type Client struct {
	url    string
	conn   *nats.Conn
	js     jetstream.JetStream
	logger *slog.Logger

	maxReconnects int
	reconnectWait time.Duration
	username      string
	password      string
	token         string
}

// Option configures a Client
type Option func(*Client)

// WithLogger attaches a structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithReconnects sets the reconnect policy. A negative maxReconnects means
// retry forever.
func WithReconnects(maxReconnects int, wait time.Duration) Option {
	return func(c *Client) {
		c.maxReconnects = maxReconnects
		if wait > 0 {
			c.reconnectWait = wait
		}
	}
}

// WithUserInfo sets username and password authentication
func WithUserInfo(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithToken sets token authentication
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// Connect establishes a NATS connection and its JetStream context
func Connect(url string, opts ...Option) (*Client, error) {
	c := &Client{
		url:           url,
		logger:        slog.Default(),
		maxReconnects: 10,
		reconnectWait: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	natsOpts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.Timeout(5 * time.Second),
	}
	if c.username != "" {
		natsOpts = append(natsOpts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		natsOpts = append(natsOpts, nats.Token(c.token))
	}

	conn, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsclient", "Connect", "NATS connection")
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapFatal(err, "natsclient", "Connect", "JetStream context creation")
	}

	c.conn = conn
	c.js = js
	c.logger.Debug("connected to NATS", "url", url)
	return c, nil
}

// JetStream returns the JetStream context
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// CreateObjectBucket creates a new object store bucket. IsBucketExists
// distinguishes the occupied-bucket conflict from other failures.
func (c *Client) CreateObjectBucket(
	ctx context.Context, cfg jetstream.ObjectStoreConfig,
) (jetstream.ObjectStore, error) {
	bucket, err := c.js.CreateObjectStore(ctx, cfg)
	if err != nil {
		if IsBucketExists(err) {
			return nil, err
		}
		return nil, errors.WrapTransient(err, "natsclient", "CreateObjectBucket", "bucket creation")
	}
	return bucket, nil
}

// OpenObjectBucket opens an existing object store bucket
func (c *Client) OpenObjectBucket(ctx context.Context, name string) (jetstream.ObjectStore, error) {
	bucket, err := c.js.ObjectStore(ctx, name)
	if err != nil {
		if IsBucketNotFound(err) {
			return nil, err
		}
		return nil, errors.WrapTransient(err, "natsclient", "OpenObjectBucket", "bucket open")
	}
	return bucket, nil
}

// DeleteObjectBucket removes an object store bucket
func (c *Client) DeleteObjectBucket(ctx context.Context, name string) error {
	if err := c.js.DeleteObjectStore(ctx, name); err != nil && !IsBucketNotFound(err) {
		return errors.WrapTransient(err, "natsclient", "DeleteObjectBucket", "bucket deletion")
	}
	return nil
}

// IsBucketExists reports whether err means the bucket already exists
func IsBucketExists(err error) bool {
	return stderrors.Is(err, jetstream.ErrBucketExists)
}

// IsBucketNotFound reports whether err means the bucket does not exist
func IsBucketNotFound(err error) bool {
	return stderrors.Is(err, jetstream.ErrBucketNotFound)
}

// Close drains and closes the connection
func (c *Client) Close() {
	if c.conn != nil {
		if err := c.conn.Drain(); err != nil {
			c.logger.Warn("NATS drain failed", "error", err)
			c.conn.Close()
		}
	}
}
