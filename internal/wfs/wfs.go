// Package wfs is a minimal OGC Web Feature Service client that reads
// GetFeature responses as GeoJSON feature collections.
package wfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

const (
	// DefaultVersion is the WFS protocol version requested.
	DefaultVersion = "2.0.0"
	// DefaultOutputFormat asks the server for GeoJSON.
	DefaultOutputFormat = "json"
)

// Query describes a single GetFeature request.
type Query struct {
	BaseURL      string
	TypeName     string
	SRSName      string
	OutputFormat string
}

// Params returns the GetFeature query parameters.
func (q Query) Params() url.Values {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", DefaultVersion)
	params.Set("request", "GetFeature")
	params.Set("typeName", q.TypeName)
	if q.SRSName != "" {
		params.Set("srsName", q.SRSName)
	}
	format := strings.TrimSpace(q.OutputFormat)
	if format == "" {
		format = DefaultOutputFormat
	}
	params.Set("outputFormat", format)
	return params
}

// URL returns the full request URL.
func (q Query) URL() (string, error) {
	u, err := url.Parse(q.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base url %q: %w", q.BaseURL, err)
	}
	u.RawQuery = q.Params().Encode()
	return u.String(), nil
}

// FetchError reports a failed GetFeature read: transport failure,
// non-2xx status or a body that is not a GeoJSON feature collection.
type FetchError struct {
	TypeName   string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("wfs: fetching %s: status %d: %v", e.TypeName, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("wfs: fetching %s: %v", e.TypeName, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client performs GetFeature requests.
type Client struct {
	HTTP *http.Client
}

// NewClient creates a client whose requests time out after timeout.
// A zero timeout leaves requests bounded only by their context.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// GetFeature fetches the features described by q.
func (c *Client) GetFeature(ctx context.Context, q Query) (*geojson.FeatureCollection, error) {
	u, err := q.URL()
	if err != nil {
		return nil, &FetchError{TypeName: q.TypeName, URL: q.BaseURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{TypeName: q.TypeName, URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{TypeName: q.TypeName, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			TypeName:   q.TypeName,
			URL:        u,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(snippet))),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{TypeName: q.TypeName, URL: u, StatusCode: resp.StatusCode, Err: err}
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &FetchError{
			TypeName:   q.TypeName,
			URL:        u,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("parsing geojson: %w", err),
		}
	}
	return fc, nil
}
