// Package prom adapts the Prometheus HTTP query API to the time-major
// sample points consumed by the chart refreshers.
package prom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/common/model"
	"k8s.io/utils/clock"

	"github.com/willibrandon/kpulse/internal/logger"
	"github.com/willibrandon/kpulse/internal/metrics"
)

const (
	// EndpointQueryRange names the range query API in errors and metrics.
	EndpointQueryRange = "query_range"
	// EndpointQuery names the instant query API in errors and metrics.
	EndpointQuery = "query"

	// DefaultLabel is the label whose value names each series.
	DefaultLabel = "namespace"

	queryRangeAPI = "/api/v1/query_range"
	queryAPI      = "/api/v1/query"
)

// Observer receives the outcome and duration of every backend request.
type Observer interface {
	ObserveRequest(endpoint, outcome string, d time.Duration)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the backend root, e.g. http://localhost:9090.
	BaseURL string
	// Timeout bounds each request. Zero leaves the transport default.
	Timeout time.Duration
	// Label selects the series name. Empty means DefaultLabel.
	Label string
	// Headers are sent with every request.
	Headers map[string]string
	// Clock stamps instant samples. Nil means the real clock.
	Clock clock.PassiveClock
	// Observer, if set, is told about every request.
	Observer Observer
}

// Client issues range and instant queries. It holds no per-chart state and
// is safe to share between refreshers.
type Client struct {
	baseURL  string
	api      *resty.Client
	label    model.LabelName
	clock    clock.PassiveClock
	observer Observer
}

// NewClient validates opts and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base, err := ParseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	label := opts.Label
	if label == "" {
		label = DefaultLabel
	}
	if !model.LabelName(label).IsValidLegacy() {
		return nil, fmt.Errorf("invalid series label %q", label)
	}

	api := resty.New().
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{})
	if opts.Timeout > 0 {
		api.SetTimeout(opts.Timeout)
	}
	if len(opts.Headers) > 0 {
		api.SetHeaders(opts.Headers)
	}

	c := &Client{
		baseURL:  base,
		api:      api,
		label:    model.LabelName(label),
		clock:    opts.Clock,
		observer: opts.Observer,
	}
	if c.clock == nil {
		c.clock = clock.RealClock{}
	}
	return c, nil
}

// ParseBaseURL checks that raw is an absolute http(s) URL and strips any
// trailing slash.
func ParseBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("backend URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid backend URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid backend URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid backend URL %q: missing host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// BaseURL returns the normalized backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Label returns the label used to name series.
func (c *Client) Label() string {
	return string(c.label)
}

// QueryRange runs a range query over [startMs, endMs] at stepMs resolution
// and returns time-major points in ascending order. Times are sent to the
// backend as whole seconds.
func (c *Client) QueryRange(ctx context.Context, query string, startMs, endMs, stepMs int64) ([]metrics.SamplePoint, error) {
	step := stepMs / 1000
	if step < 1 {
		step = 1
	}
	params := map[string]string{
		"query": query,
		"start": strconv.FormatInt(floorDiv(startMs, 1000), 10),
		"end":   strconv.FormatInt(floorDiv(endMs, 1000), 10),
		"step":  strconv.FormatInt(step, 10),
	}

	var points []metrics.SamplePoint
	err := c.do(ctx, EndpointQueryRange, queryRangeAPI, query, params, func(body []byte) error {
		resp, err := decodeEnvelope(body, model.ValMatrix, false)
		if err != nil {
			return err
		}
		logWarnings(EndpointQueryRange, query, resp.Warnings)

		matrix, err := decodeMatrix(resp.Data.Result)
		if err != nil {
			return err
		}
		if len(matrix) == 0 {
			return ErrNoData
		}
		points = pivotMatrix(matrix, c.label)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

// QueryInstant evaluates query at the backend's current time. The point
// is stamped with the local clock at invocation, never the server time.
func (c *Client) QueryInstant(ctx context.Context, query string) (metrics.SamplePoint, error) {
	stamp := c.clock.Now().UnixMilli()
	point := metrics.NewSamplePointAt(stamp)

	err := c.do(ctx, EndpointQuery, queryAPI, query, map[string]string{"query": query}, func(body []byte) error {
		resp, err := decodeEnvelope(body, model.ValVector, true)
		if err != nil {
			return err
		}
		logWarnings(EndpointQuery, query, resp.Warnings)

		vector, err := decodeVector(resp.Data.Result)
		if err != nil {
			return err
		}
		if len(vector) == 0 {
			return ErrNoData
		}
		point = vectorPoint(vector, c.label, stamp)
		return nil
	})
	if err != nil {
		return metrics.NewSamplePointAt(stamp), err
	}
	return point, nil
}

// FetchRange is the best-effort form of QueryRange: failures are logged
// and yield an empty result.
func (c *Client) FetchRange(ctx context.Context, query string, startMs, endMs, stepMs int64) []metrics.SamplePoint {
	points, err := c.QueryRange(ctx, query, startMs, endMs, stepMs)
	if err != nil {
		logFailure(EndpointQueryRange, query, err)
		return nil
	}
	return points
}

// FetchLatest is the best-effort form of QueryInstant: on failure the
// returned point has no values.
func (c *Client) FetchLatest(ctx context.Context, query string) metrics.SamplePoint {
	point, err := c.QueryInstant(ctx, query)
	if err != nil {
		logFailure(EndpointQuery, query, err)
	}
	return point
}

// do issues a GET and hands a 2xx body to decode. Errors come back as
// *QueryError with their kind set.
func (c *Client) do(ctx context.Context, endpoint, path, query string, params map[string]string, decode func([]byte) error) (err error) {
	start := c.clock.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRequest(endpoint, Outcome(err), c.clock.Since(start))
		}
	}()

	resp, err := c.api.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return &QueryError{Endpoint: endpoint, Query: query, Kind: ErrNetwork, Err: err}
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		cause := errors.New(truncate(strings.TrimSpace(resp.String()), 256))
		var env apiResponse
		if json.Unmarshal(resp.Body(), &env) == nil && env.Error != "" {
			cause = fmt.Errorf("%s: %s", env.ErrorType, env.Error)
		}
		return &QueryError{Endpoint: endpoint, Query: query, StatusCode: status, Kind: ErrBackend, Err: cause}
	}

	if derr := decode(resp.Body()); derr != nil {
		if errors.Is(derr, ErrNoData) {
			return &QueryError{Endpoint: endpoint, Query: query, StatusCode: status, Kind: ErrNoData}
		}
		return &QueryError{Endpoint: endpoint, Query: query, StatusCode: status, Kind: ErrBackend, Err: derr}
	}
	return nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func logWarnings(endpoint, query string, warnings []string) {
	if len(warnings) > 0 {
		logger.Warn("backend returned warnings",
			"endpoint", endpoint,
			"query", query,
			"warnings", warnings)
	}
}

func logFailure(endpoint, query string, err error) {
	switch {
	case errors.Is(err, ErrNoData):
		logger.Debug("backend returned no data", "endpoint", endpoint, "query", query)
	case errors.Is(err, context.Canceled):
		logger.Debug("backend request canceled", "endpoint", endpoint, "query", query)
	default:
		logger.Warn("backend request failed",
			"endpoint", endpoint,
			"query", query,
			"error", err)
	}
}

// restyLogger routes resty's internal messages into the structured log.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...any) {
	logger.Error(fmt.Sprintf(strings.TrimSpace(format), v...), "component", "http")
}

func (restyLogger) Warnf(format string, v ...any) {
	logger.Warn(fmt.Sprintf(strings.TrimSpace(format), v...), "component", "http")
}

func (restyLogger) Debugf(format string, v ...any) {
	logger.Debug(fmt.Sprintf(strings.TrimSpace(format), v...), "component", "http")
}
