// Package blockchain talks to the guild's deposit token contract over
// Ethereum JSON-RPC.
package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	rpcTimeout    = 10 * time.Second
	maxRetries    = 3
	retryInterval = 500 * time.Millisecond
)

// Client wraps read calls against ERC-20 contracts with retry and failover.
type Client struct {
	failoverClient *FailoverClient
	parsedABI      abi.ABI
}

// NewClient dials rpcURLs and prepares the ERC-20 ABI.
func NewClient(rpcURLs []string) (*Client, error) {
	failoverClient, err := NewFailoverClient(rpcURLs)
	if err != nil {
		return nil, err
	}

	parsedABI, err := parseERC20ABI()
	if err != nil {
		failoverClient.Close()
		return nil, err
	}

	return &Client{
		failoverClient: failoverClient,
		parsedABI:      parsedABI,
	}, nil
}

func parseERC20ABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}
	return parsed, nil
}

// Close closes all RPC connections.
func (c *Client) Close() {
	c.failoverClient.Close()
}

// GetHealthyEndpoint returns a connected endpoint and its URL.
func (c *Client) GetHealthyEndpoint() (*ethclient.Client, string, error) {
	return c.failoverClient.GetClient()
}

// GetEndpointsHealth reports the health of every configured endpoint.
func (c *Client) GetEndpointsHealth() map[string]bool {
	return c.failoverClient.EndpointsHealth()
}

// ChainID asks a healthy endpoint for its chain id without retrying.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	client, url, err := c.failoverClient.GetClient()
	if err != nil {
		return nil, err
	}
	id, err := client.ChainID(ctx)
	if err != nil {
		c.failoverClient.MarkUnhealthy(url, err)
		return nil, fmt.Errorf("chain id from %s: %w", url, err)
	}
	return id, nil
}

// retryWithBackoff runs fn with exponential backoff, marking the endpoint in
// use unhealthy after each failure so the next attempt fails over. fn must
// fetch its endpoint through GetClient on every attempt.
func (c *Client) retryWithBackoff(ctx context.Context, fn func(client *ethclient.Client) error) error {
	var lastErr error

	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := retryInterval * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		client, url, err := c.failoverClient.GetClient()
		if err != nil {
			lastErr = err
			continue
		}

		if err := fn(client); err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.failoverClient.MarkUnhealthy(url, err)
			continue
		}
		return nil
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
