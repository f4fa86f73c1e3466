// Package contentstore adds product pictures to an IPFS node through its
// HTTP API.
package contentstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
)

const defaultCheckTimeout = 3 * time.Second

// Client talks to one IPFS HTTP API endpoint.
type Client struct {
	sh           *shell.Shell
	endpoint     string
	checkTimeout time.Duration
	logger       *slog.Logger
}

// New returns a client for the API at endpoint, e.g. "localhost:5001" or
// "http://127.0.0.1:5001".
func New(endpoint string, checkTimeout time.Duration, logger *slog.Logger) (*Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("contentstore: endpoint required")
	}
	if checkTimeout <= 0 {
		checkTimeout = defaultCheckTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		sh:           shell.NewShell(trimmed),
		endpoint:     trimmed,
		checkTimeout: checkTimeout,
		logger:       logger,
	}, nil
}

// Add stores data and returns its content identifier.
func (c *Client) Add(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("contentstore: empty payload")
	}
	type result struct {
		cid string
		err error
	}
	done := make(chan result, 1)
	go func() {
		cid, err := c.sh.Add(bytes.NewReader(data), shell.Pin(true))
		done <- result{cid: cid, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("contentstore: add: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("contentstore: add: %w", res.err)
		}
		c.logger.Info("content stored", slog.String("cid", res.cid), slog.Int("bytes", len(data)))
		return res.cid, nil
	}
}

// Available reports whether the node answers a swarm peers query within the
// check timeout.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()
	if _, err := c.sh.SwarmPeers(ctx); err != nil {
		c.logger.Warn("content store unreachable", slog.String("endpoint", c.endpoint), slog.Any("error", err))
		return false
	}
	return true
}
