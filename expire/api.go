package expire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	gobreaker "github.com/sony/gobreaker/v2"
)

// HeaderApiKey carries the expiration API key.
const HeaderApiKey = "x-api-key"

type expireRequest struct {
	LivePinID        string `json:"livePinId"`
	ExpirationReason string `json:"expirationReason"`
}

// APIClient expires PINs through the PIN service's HTTP API.
// Calls go through a circuit breaker so an unavailable service fails the remaining PINs quickly.
type APIClient struct {
	Log    logger.Logger
	URL    string
	APIKey string
	Reason string
	Client *http.Client
	cb     *gobreaker.CircuitBreaker[interface{}]
}

// NewAPIClient returns a client that opens its breaker after maxConsecutiveFailures failures in a row.
func NewAPIClient(log logger.Logger, url string, apiKey string, reason string, client *http.Client, maxConsecutiveFailures uint32) *APIClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxConsecutiveFailures == 0 {
		maxConsecutiveFailures = 5
	}
	c := &APIClient{Log: log, URL: url, APIKey: apiKey, Reason: reason, Client: client}
	c.cb = gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "expire-api",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker ", name, " changed from ", from.String(), " to ", to.String())
		},
	})
	return c
}

// Expire posts one expiration request.
func (c *APIClient) Expire(ctx context.Context, livePinID string) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.post(ctx, livePinID)
	})
	return err
}

func (c *APIClient) post(ctx context.Context, livePinID string) error {
	body, err := json.Marshal(expireRequest{LivePinID: livePinID, ExpirationReason: c.Reason})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderApiKey, c.APIKey)
	resp, err := c.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "error calling expiration API")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := ioutil.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("expiration API returned %v: %s", resp.Status, bytes.TrimSpace(msg))
	}
	return nil
}
