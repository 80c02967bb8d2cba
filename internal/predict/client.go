package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is where the prediction backend listens when nothing else is configured.
const DefaultBaseURL = "http://127.0.0.1:5000"

// Config holds prediction backend settings.
type Config struct {
	BaseURL string
	// Timeout bounds each request. Zero leaves requests unbounded.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the stability prediction backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ErrInvalidBaseURL is returned when the configured base URL cannot be used.
var ErrInvalidBaseURL = errors.New("invalid prediction base url")

// FailureKind classifies a RequestFailure.
type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureStatus
	FailureDecode
)

func (k FailureKind) String() string {
	switch k {
	case FailureStatus:
		return "status"
	case FailureDecode:
		return "decode"
	default:
		return "transport"
	}
}

// RequestFailure covers every way a prediction request can fail: the backend
// being unreachable, answering with a non-2xx status, or sending a body that
// does not decode.
type RequestFailure struct {
	Kind       FailureKind
	StatusCode int
	Status     string
	Err        error
}

func (e *RequestFailure) Error() string {
	if e.Kind == FailureStatus {
		if strings.TrimSpace(e.Status) != "" {
			return e.Status
		}
		return strings.TrimSpace(fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)))
	}
	if e.Err == nil {
		return e.Kind.String() + " failure"
	}
	return e.Err.Error()
}

func (e *RequestFailure) Unwrap() error {
	return e.Err
}

// NewClient constructs a Client, defaulting the base URL when it is blank.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(base, "/"),
	}, nil
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PredictLive asks the backend to classify the latest headlines for a country.
// The country code is sent verbatim, only query-escaped.
func (c *Client) PredictLive(ctx context.Context, country string) ([]Item, error) {
	endpoint := c.baseURL + "/predict_live?country=" + url.QueryEscape(country)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &RequestFailure{Kind: FailureTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// Predict submits caller-supplied articles for classification.
func (c *Client) Predict(ctx context.Context, articles []Article) ([]Item, error) {
	if articles == nil {
		articles = []Article{}
	}
	body, err := json.Marshal(predictRequest{News: articles})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, &RequestFailure{Kind: FailureTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]Item, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestFailure{Kind: FailureTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestFailure{
			Kind:       FailureStatus,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, &RequestFailure{
			Kind:       FailureDecode,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return items, nil
}
