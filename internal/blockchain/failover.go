package blockchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	unhealthyDuration = 5 * time.Minute // cooldown before a failed endpoint is redialed
	dialTimeout       = 5 * time.Second
)

// ErrNoHealthyEndpoint is returned when every RPC endpoint is down.
var ErrNoHealthyEndpoint = errors.New("no healthy RPC endpoints available")

type endpoint struct {
	url           string
	client        *ethclient.Client
	healthy       bool
	lastError     error
	lastErrorTime time.Time
	mu            sync.RWMutex
}

// FailoverClient spreads calls over several RPC endpoints and fails over
// when one of them errors.
type FailoverClient struct {
	endpoints    []*endpoint
	currentIndex int
	mu           sync.Mutex
}

// dialEndpoint connects to url and proves the connection with a chain ID call.
func dialEndpoint(url string) (*ethclient.Client, error) {
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if _, err := client.ChainID(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// NewFailoverClient dials every URL. At least one must answer.
func NewFailoverClient(urls []string) (*FailoverClient, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one RPC URL is required")
	}

	fc := &FailoverClient{endpoints: make([]*endpoint, 0, len(urls))}

	healthyCount := 0
	for _, url := range urls {
		client, err := dialEndpoint(url)
		fc.endpoints = append(fc.endpoints, &endpoint{
			url:           url,
			client:        client,
			healthy:       err == nil,
			lastError:     err,
			lastErrorTime: time.Now(),
		})

		if err != nil {
			slog.Warn("Failed to connect to RPC endpoint, will retry later", "url", url, "error", err)
			continue
		}
		healthyCount++
		slog.Info("Connected to RPC endpoint", "url", url)
	}

	if healthyCount == 0 {
		return nil, ErrNoHealthyEndpoint
	}
	return fc, nil
}

// GetClient returns the first healthy endpoint in round-robin order, redialing
// endpoints whose cooldown has expired.
func (fc *FailoverClient) GetClient() (*ethclient.Client, string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	for i := range fc.endpoints {
		idx := (fc.currentIndex + i) % len(fc.endpoints)
		ep := fc.endpoints[idx]

		ep.mu.RLock()
		healthy, client := ep.healthy, ep.client
		canRetry := time.Since(ep.lastErrorTime) > unhealthyDuration
		ep.mu.RUnlock()

		if healthy && client != nil {
			fc.currentIndex = idx
			return client, ep.url, nil
		}
		if healthy || !canRetry {
			continue
		}

		newClient, err := dialEndpoint(ep.url)
		if err != nil {
			ep.mu.Lock()
			ep.lastError = err
			ep.lastErrorTime = time.Now()
			ep.mu.Unlock()
			continue
		}

		ep.mu.Lock()
		if ep.client != nil {
			ep.client.Close()
		}
		ep.client = newClient
		ep.healthy = true
		ep.lastError = nil
		ep.mu.Unlock()

		fc.currentIndex = idx
		slog.Info("Reconnected to RPC endpoint", "url", ep.url)
		return newClient, ep.url, nil
	}

	return nil, "", ErrNoHealthyEndpoint
}

// MarkUnhealthy takes url out of rotation until its cooldown expires.
func (fc *FailoverClient) MarkUnhealthy(url string, err error) {
	for _, ep := range fc.endpoints {
		if ep.url != url {
			continue
		}
		ep.mu.Lock()
		ep.healthy = false
		ep.lastError = err
		ep.lastErrorTime = time.Now()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()

		slog.Warn("Marked RPC endpoint as unhealthy, will retry after cooldown",
			"url", url,
			"error", err,
			"retry_after", unhealthyDuration)
		return
	}
}

// EndpointsHealth reports the health flag of every endpoint by URL.
func (fc *FailoverClient) EndpointsHealth() map[string]bool {
	health := make(map[string]bool, len(fc.endpoints))
	for _, ep := range fc.endpoints {
		ep.mu.RLock()
		health[ep.url] = ep.healthy
		ep.mu.RUnlock()
	}
	return health
}

// Close closes every open connection.
func (fc *FailoverClient) Close() {
	for _, ep := range fc.endpoints {
		ep.mu.Lock()
		if ep.client != nil {
			ep.client.Close()
			ep.client = nil
		}
		ep.mu.Unlock()
	}
}
