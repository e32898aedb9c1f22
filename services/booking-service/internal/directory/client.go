// Package directory reads provider profiles, including their booked-slot index,
// from the booking-service public API.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrNotFound = errors.New("provider not found")

// Source is anything that can look providers up.
type Source interface {
	List(ctx context.Context) ([]model.Provider, error)
	Provider(ctx context.Context, id string) (model.Provider, error)
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for baseURL. A nil httpClient gets a traced client with a 5s timeout.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type listResponse struct {
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	Providers []model.Provider `json:"providers"`
}

type providerResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Provider model.Provider `json:"provider"`
}

func (c *HTTPClient) List(ctx context.Context) ([]model.Provider, error) {
	var out listResponse
	if err := c.get(ctx, "/api/v1/public/providers", &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("list providers: %s", out.Message)
	}
	return out.Providers, nil
}

func (c *HTTPClient) Provider(ctx context.Context, id string) (model.Provider, error) {
	var out providerResponse
	if err := c.get(ctx, "/api/v1/public/providers/"+url.PathEscape(id), &out); err != nil {
		return model.Provider{}, err
	}
	if !out.Success {
		return model.Provider{}, fmt.Errorf("get provider %s: %s", id, out.Message)
	}
	return out.Provider, nil
}

// Refresh re-reads a provider. The HTTP client has no cache, so this equals Provider.
func (c *HTTPClient) Refresh(ctx context.Context, id string) (model.Provider, error) {
	return c.Provider(ctx, id)
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("directory %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("directory %s: decode: %w", path, err)
	}
	return nil
}
