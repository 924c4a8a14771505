// Package transport maintains the persistent platform connection that
// issues one-time login nonces
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
	"tradebot/internal/core"
	apperrors "tradebot/pkg/errors"
	"tradebot/pkg/retry"

	"github.com/gorilla/websocket"
)

// Client implements core.ITransport over a websocket connection to a
// platform connection-manager endpoint. The connection is dialed lazily and
// redialed with backoff after a failure.
type Client struct {
	url           string
	reconnectWait time.Duration
	logger        core.ILogger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient creates a transport client.
func NewClient(url string, reconnectWait time.Duration, logger core.ILogger) *Client {
	if reconnectWait <= 0 {
		reconnectWait = 5 * time.Second
	}
	return &Client{
		url:           url,
		reconnectWait: reconnectWait,
		logger:        logger.WithField("component", "transport"),
	}
}

type nonceRequest struct {
	Type string `json:"type"`
}

type nonceResponse struct {
	Type  string `json:"type"`
	Nonce string `json:"nonce"`
	Error string `json:"error,omitempty"`
}

// RequestNonce asks the connection manager for a fresh one-time login
// nonce. A dropped connection is retried with backoff before failing.
func (c *Client) RequestNonce(ctx context.Context) ([]byte, error) {
	var nonce []byte

	err := retry.Do(ctx, retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: c.reconnectWait,
		MaxBackoff:     4 * c.reconnectWait,
	}, c.isTransient, func() error {
		var reqErr error
		nonce, reqErr = c.requestOnce(ctx)
		return reqErr
	})
	if err != nil {
		return nil, err
	}
	return nonce, nil
}

func (c *Client) requestOnce(ctx context.Context) ([]byte, error) {
	conn, err := c.connection(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTransportDisconnected, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	if err := conn.WriteJSON(nonceRequest{Type: "webapi_nonce"}); err != nil {
		c.dropConn()
		return nil, fmt.Errorf("%w: write: %v", apperrors.ErrTransportDisconnected, err)
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropConn()
		return nil, fmt.Errorf("%w: read: %v", apperrors.ErrTransportDisconnected, err)
	}

	var resp nonceResponse
	if err := json.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse nonce response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNonceUnavailable, resp.Error)
	}
	if resp.Nonce == "" {
		return nil, apperrors.ErrNonceUnavailable
	}

	return []byte(resp.Nonce), nil
}

func (c *Client) connection(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Connected to platform connection manager", "url", c.url)
	c.conn = conn
	return conn, nil
}

func (c *Client) dropConn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close shuts the connection down.
func (c *Client) Close() error {
	c.dropConn()
	return nil
}

// isTransient retries only connection-level failures; a platform-reported
// error or a malformed response fails immediately.
func (c *Client) isTransient(err error) bool {
	return errors.Is(err, apperrors.ErrTransportDisconnected)
}
