// Package transport submits booking requests to the booking-service API.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/auth"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const BookPath = "/api/v1/user/book-appointment"

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// SubmitBooking posts req with the caller's token. A response carrying a decodable
// acknowledgement is returned as such even on a non-2xx status, so server-side
// rejections reach the caller as Success=false rather than as errors.
func (c *Client) SubmitBooking(ctx context.Context, req model.BookingRequest, credential string) (model.BookingAck, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.BookingAck{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+BookPath, bytes.NewReader(body))
	if err != nil {
		return model.BookingAck{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(auth.TokenHeader, credential)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return model.BookingAck{}, err
	}
	defer resp.Body.Close()

	var ack model.BookingAck
	decodeErr := json.NewDecoder(resp.Body).Decode(&ack)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if decodeErr != nil {
			return model.BookingAck{}, fmt.Errorf("decode booking response: %w", decodeErr)
		}
		return ack, nil
	}
	if decodeErr == nil && ack.Message != "" {
		ack.Success = false
		return ack, nil
	}
	return model.BookingAck{}, fmt.Errorf("booking request: unexpected status %d", resp.StatusCode)
}
