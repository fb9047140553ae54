package clean

import (
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
)

// RuleDocumentError is returned when the rule document cannot be fetched or parsed.
type RuleDocumentError struct {
	URL string
	Err error
}

func (e *RuleDocumentError) Error() string {
	return fmt.Sprintf("error loading cleaning rules from %v: %v", e.URL, e.Err)
}

func (e *RuleDocumentError) Unwrap() error {
	return e.Err
}

// Fetcher gets the current rule set.
type Fetcher interface {
	Fetch(ctx context.Context) (*RuleSet, error)
}

// HttpFetcher downloads the rule document fresh on every call.
// A URL without an http or https scheme is read as a local file.
type HttpFetcher struct {
	Log    logger.Logger
	URL    string
	Client *http.Client
}

// NewHttpFetcher returns a fetcher for url using client, or http.DefaultClient if client is nil.
func NewHttpFetcher(log logger.Logger, url string, client *http.Client) *HttpFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HttpFetcher{Log: log, URL: url, Client: client}
}

func (f *HttpFetcher) Fetch(ctx context.Context) (*RuleSet, error) {
	doc, err := f.read(ctx)
	if err != nil {
		return nil, &RuleDocumentError{URL: f.URL, Err: err}
	}
	rs, err := Parse(f.Log, doc)
	if err != nil {
		return nil, &RuleDocumentError{URL: f.URL, Err: err}
	}
	f.Log.Info("loaded cleaning rules for ", len(rs.Columns), " columns from ", f.URL)
	return rs, nil
}

func (f *HttpFetcher) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(f.URL, "http://") && !strings.HasPrefix(f.URL, "https://") {
		return ioutil.ReadFile(strings.TrimPrefix(f.URL, "file://"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %v", resp.Status)
	}
	return ioutil.ReadAll(resp.Body)
}
