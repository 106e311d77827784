package redis

import (
	"context"
	"time"

	"github.com/gomodule/redigo/redis"
)

// A ping is set to the server with this period to test for the health of
// the connection and server.
const healthCheckPeriod = time.Minute

// Client is a thin redigo wrapper shared by the pubsub control channel, the
// redis frame feed and the redis snapshot store.
type Client struct {
	network  string
	address  string
	password string
	pool     *redis.Pool
}

func NewClient(network, address, password string) (*Client, error) {
	c := &Client{
		network:  network,
		address:  address,
		password: password,
	}
	c.pool = &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 5 * time.Minute,
		Dial:        c.dial,
	}
	if err := c.Check(); err != nil {
		_ = c.pool.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) dial() (redis.Conn, error) {
	return redis.Dial(c.network, c.address,
		// Read timeout on server should be greater than ping period.
		redis.DialReadTimeout(healthCheckPeriod+10*time.Second),
		redis.DialWriteTimeout(10*time.Second),
		redis.DialPassword(c.password))
}

// ListenChannels blocks receiving messages from channels until ctx is
// cancelled or the connection fails.
func (c *Client) ListenChannels(ctx context.Context,
	onStart func() error,
	onMessage func(channel string, data []byte) error,
	channels ...string) error {

	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	psc := redis.PubSubConn{Conn: conn}

	if err := psc.Subscribe(redis.Args{}.AddFlat(channels)...); err != nil {
		return err
	}

	done := make(chan error, 1)

	// Start a goroutine to receive notifications from the server.
	go func() {
		for {
			switch n := psc.Receive().(type) {
			case error:
				done <- n
				return
			case redis.Message:
				if err := onMessage(n.Channel, n.Data); err != nil {
					done <- err
					return
				}
			case redis.Subscription:
				switch n.Count {
				case len(channels):
					// Notify application when all channels are subscribed.
					if err := onStart(); err != nil {
						done <- err
						return
					}
				case 0:
					// Return from the goroutine when all channels are unsubscribed.
					done <- nil
					return
				}
			}
		}
	}()

	ticker := time.NewTicker(healthCheckPeriod)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ticker.C:
			// Send ping to test health of connection and server. If
			// corresponding pong is not received, then receive on the
			// connection will timeout and the receive goroutine will exit.
			if err = psc.Ping(""); err != nil {
				break loop
			}
		case <-ctx.Done():
			break loop
		case err := <-done:
			// Return error from the receive goroutine.
			return err
		}
	}

	// Signal the receiving goroutine to exit by unsubscribing from all channels.
	if err := psc.Unsubscribe(); err != nil {
		return err
	}

	// Wait for goroutine to complete.
	return <-done
}

func (c *Client) Check() error {
	conn := c.pool.Get()
	defer conn.Close()

	_, err := conn.Do("PING")
	return err
}

func (c *Client) Publish(channel string, message []byte) error {
	conn := c.pool.Get()
	defer conn.Close()

	_, err := conn.Do("PUBLISH", channel, message)
	return err
}

func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = redis.DoContext(conn, ctx, "SET", key, value)
	return err
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	return redis.Bytes(redis.DoContext(conn, ctx, "GET", key))
}

func (c *Client) Close() error {
	return c.pool.Close()
}
