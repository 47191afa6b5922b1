package darkerdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

var ErrMalformedBody = errors.New("malformed json body")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("darkerdb error: status %d: %s", e.StatusCode, e.Body)
}

type RESTClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRESTClient creates a client for baseURL. A zero timeout leaves the
// transport default in place.
func NewRESTClient(baseURL string, timeout time.Duration, logger *zap.Logger) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// GetMarket fetches the market listing. Failures are logged and reported in
// the returned Result; they are never returned as errors.
func (c *RESTClient) GetMarket(ctx context.Context, limit int, condense bool) Result {
	snapshot, err := c.getMarket(ctx, limit, condense)
	if err != nil {
		c.logger.Warn("error fetching market data",
			zap.Int("limit", limit),
			zap.Bool("condense", condense),
			zap.Error(err))
		return Result{Err: err}
	}
	return Result{Snapshot: snapshot}
}

func (c *RESTClient) getMarket(ctx context.Context, limit int, condense bool) (MarketSnapshot, error) {
	endpoint, err := marketURL(c.baseURL, limit, condense)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	if !json.Valid(body) {
		return nil, ErrMalformedBody
	}

	return MarketSnapshot(body), nil
}

func marketURL(baseURL string, limit int, condense bool) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u = u.JoinPath(marketPath)

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("condense", condenseParam(condense))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func condenseParam(condense bool) string {
	if condense {
		return "1"
	}
	return "0"
}
