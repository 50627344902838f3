// Package graph is an HTTP client for the guild's GraphQL data source.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/matrixise/guild-dashboard/internal/datasource"
	"github.com/matrixise/guild-dashboard/internal/units"
	"github.com/tidwall/gjson"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// ErrGraphQL is returned when the endpoint answers with a GraphQL error payload.
var ErrGraphQL = errors.New("graphql error")

// Client queries a GraphQL endpoint over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client for endpoint. A zero timeout uses the default.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Do posts a query document and returns the "data" object of the response.
func (c *Client) Do(ctx context.Context, query string) (gjson.Result, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, fmt.Errorf("unexpected status %d from data source", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.New("malformed response: not valid JSON")
	}

	doc := gjson.ParseBytes(body)
	if errs := doc.Get("errors"); errs.Exists() && len(errs.Array()) > 0 {
		messages := make([]string, 0, len(errs.Array()))
		for _, e := range errs.Array() {
			messages = append(messages, e.Get("message").String())
		}
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(messages, "; "))
	}

	data := doc.Get("data")
	if !data.IsObject() {
		return gjson.Result{}, errors.New("malformed response: missing data")
	}
	return data, nil
}

// Members returns active members holding shares.
func (c *Client) Members(ctx context.Context) (datasource.MemberSet, error) {
	ids, err := c.ids(ctx, membersQuery, "members")
	if err != nil {
		return nil, fmt.Errorf("members: %w", err)
	}
	return datasource.MemberSet(ids), nil
}

// Proposals returns every proposal identifier.
func (c *Client) Proposals(ctx context.Context) (datasource.ProposalSet, error) {
	ids, err := c.ids(ctx, proposalsQuery, "proposals")
	if err != nil {
		return nil, fmt.Errorf("proposals: %w", err)
	}
	return datasource.ProposalSet(ids), nil
}

func (c *Client) ids(ctx context.Context, query, field string) ([]string, error) {
	data, err := c.Do(ctx, query)
	if err != nil {
		return nil, err
	}

	list := data.Get(field)
	if !list.IsArray() {
		return nil, fmt.Errorf("malformed response: %s is not a list", field)
	}

	ids := make([]string, 0, len(list.Array()))
	for _, item := range list.Array() {
		id := item.Get("id")
		if !id.Exists() {
			return nil, fmt.Errorf("malformed response: %s entry without id", field)
		}
		ids = append(ids, id.String())
	}
	return ids, nil
}

// Metadata returns the treasury snapshot.
func (c *Client) Metadata(ctx context.Context) (datasource.TreasuryMetadata, error) {
	data, err := c.Do(ctx, metadataQuery)
	if err != nil {
		return datasource.TreasuryMetadata{}, fmt.Errorf("metadata: %w", err)
	}

	md, err := decodeMetadata(data.Get("meta"))
	if err != nil {
		return datasource.TreasuryMetadata{}, fmt.Errorf("metadata: %w", err)
	}
	return md, nil
}

func decodeMetadata(meta gjson.Result) (datasource.TreasuryMetadata, error) {
	if !meta.IsObject() {
		return datasource.TreasuryMetadata{}, errors.New("malformed response: meta is missing")
	}

	bankValue, err := decodeBaseUnits(meta.Get("guildBankValue"), "guildBankValue")
	if err != nil {
		return datasource.TreasuryMetadata{}, err
	}
	shareValue, err := decodeBaseUnits(meta.Get("shareValue"), "shareValue")
	if err != nil {
		return datasource.TreasuryMetadata{}, err
	}

	rate, err := units.ParseRate(scalarText(meta.Get("exchangeRate")))
	if err != nil {
		return datasource.TreasuryMetadata{}, fmt.Errorf("malformed response: exchangeRate: %w", err)
	}

	shares := meta.Get("totalShares")
	totalShares, ok := new(big.Int).SetString(scalarText(shares), 10)
	if !ok || totalShares.Sign() < 0 || !totalShares.IsUint64() {
		return datasource.TreasuryMetadata{}, fmt.Errorf("malformed response: totalShares %q", scalarText(shares))
	}

	return datasource.TreasuryMetadata{
		GuildBankValue: bankValue,
		ExchangeRate:   rate,
		TotalShares:    totalShares.Uint64(),
		ShareValue:     shareValue,
	}, nil
}

// decodeBaseUnits reads a BigInt scalar, serialized by subgraphs as a string.
func decodeBaseUnits(field gjson.Result, name string) (*big.Int, error) {
	raw := scalarText(field)
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("malformed response: %s %q", name, raw)
	}
	return v, nil
}

// scalarText returns the literal text of a string or number field. Numbers
// keep their raw JSON form, gjson's String would round them through float64.
func scalarText(field gjson.Result) string {
	if field.Type == gjson.Number {
		return field.Raw
	}
	return field.String()
}
