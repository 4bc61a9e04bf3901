// Package outline talks to Outline-style management endpoints. Each region
// carries its own endpoint and optionally a pinned CA certificate.
package outline

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sergeyzhinskiy/telegramvpnbot/internal/domain"
	"github.com/sergeyzhinskiy/telegramvpnbot/internal/ports"
)

const maxResponseBytes = 1 << 20

type Client struct {
	DataLimitBytes int64
	RequestTimeout time.Duration
	Clock          ports.Clock

	// HTTPClient, when set, is used for every region and pinned
	// certificates are ignored. Tests use it.
	HTTPClient *http.Client

	mu      sync.Mutex
	clients map[domain.RegionCode]*http.Client
}

var _ ports.Provisioner = (*Client)(nil)

func NewClient(dataLimitBytes int64) *Client {
	return &Client{DataLimitBytes: dataLimitBytes}
}

type apiRequest struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type apiResponse struct {
	Result struct {
		ID        string `json:"id"`
		AccessKey string `json:"access_key"`
	} `json:"result"`
}

// CreateKey provisions an access key at the region's endpoint. The key is
// named after its duration and issue date, capped at the configured data
// limit, and set to expire days from now.
func (c *Client) CreateKey(ctx context.Context, region domain.Region, days int) (ports.ProvisionedKey, error) {
	now := c.clock().Now()
	expiresAt := now.AddDate(0, 0, days)

	payload := apiRequest{
		Method: "create_key",
		Params: map[string]any{
			"name":        fmt.Sprintf("VPN_%ddays_%s", days, now.Format("20060102")),
			"data_limit":  map[string]any{"bytes": c.DataLimitBytes},
			"expiry_date": expiresAt.Unix(),
		},
	}

	var decoded apiResponse
	if err := c.call(ctx, region, payload, &decoded); err != nil {
		return ports.ProvisionedKey{}, err
	}
	if decoded.Result.AccessKey == "" {
		return ports.ProvisionedKey{}, fmt.Errorf("%w: create key response missing access key", domain.ErrProvisioning)
	}

	return ports.ProvisionedKey{
		ID:        decoded.Result.ID,
		AccessKey: decoded.Result.AccessKey,
		ExpiresAt: expiresAt,
	}, nil
}

// DeleteKey revokes a provisioned key at the region's endpoint.
func (c *Client) DeleteKey(ctx context.Context, region domain.Region, keyID string) error {
	payload := apiRequest{
		Method: "delete_key",
		Params: map[string]any{"id": keyID},
	}

	// Deletion success is the status code alone; providers may answer with
	// an empty body.
	return c.call(ctx, region, payload, nil)
}

func (c *Client) call(ctx context.Context, region domain.Region, payload apiRequest, out *apiResponse) error {
	if !region.Provisionable() {
		return fmt.Errorf("%w: region %s has no endpoint", domain.ErrProvisioning, region.Code)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode %s request: %v", domain.ErrProvisioning, payload.Method, err)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, region.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create %s request: %v", domain.ErrProvisioning, payload.Method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient, err := c.clientFor(region)
	if err != nil {
		return err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrProvisioning, payload.Method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s: status %d", domain.ErrProvisioning, payload.Method, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", domain.ErrProvisioning, payload.Method, err)
	}

	return nil
}

// clientFor returns the region's HTTP client, building one with the pinned
// CA when the region carries a certificate.
func (c *Client) clientFor(region domain.Region) (*http.Client, error) {
	if c.HTTPClient != nil {
		return c.HTTPClient, nil
	}
	if region.CertPEM == "" {
		return http.DefaultClient, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[region.Code]; ok {
		return client, nil
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(region.CertPEM)) {
		return nil, fmt.Errorf("%w: region %s certificate is not valid PEM", domain.ErrProvisioning, region.Code)
	}

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
		},
	}

	if c.clients == nil {
		c.clients = map[domain.RegionCode]*http.Client{}
	}
	c.clients[region.Code] = client
	return client, nil
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	timeout := c.RequestTimeout
	if timeout <= 0 {
		timeout = domain.ProvisionTimeout
	}

	return context.WithTimeout(ctx, timeout)
}

func (c *Client) clock() ports.Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return ports.SystemClock{}
}
