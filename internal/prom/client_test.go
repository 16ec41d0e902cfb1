package prom

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

type observed struct {
	endpoint, outcome string
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observed
}

func (o *recordingObserver) ObserveRequest(endpoint, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observed{endpoint, outcome})
}

func (o *recordingObserver) last() observed {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.seen) == 0 {
		return observed{}
	}
	return o.seen[len(o.seen)-1]
}

// backend serves a fixed body and records the last request's query.
func backend(t *testing.T, status int, body string) (*httptest.Server, *url.Values) {
	t.Helper()
	var last url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func newTestClient(t *testing.T, baseURL string, obs Observer) (*Client, *clocktesting.FakeClock) {
	t.Helper()
	fc := clocktesting.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	c, err := NewClient(Options{BaseURL: baseURL, Clock: fc, Observer: obs})
	require.NoError(t, err)
	return c, fc
}

func TestQueryRange_PivotsByTimestamp(t *testing.T) {
	srv, last := backend(t, http.StatusOK, `{
		"status": "success",
		"data": {
			"resultType": "matrix",
			"result": [
				{"metric": {"namespace": "a"}, "values": [[1000, "1.23456789"], [1010, "NaN"]]},
				{"metric": {"namespace": "b"}, "values": [[1000, "2"], [1020, "+Inf"]]},
				{"metric": {"pod": "x"}, "values": [[1000, "9"], [1030, "9"]]}
			]
		}
	}`)
	obs := &recordingObserver{}
	c, _ := newTestClient(t, srv.URL, obs)

	points, err := c.QueryRange(context.Background(), "up", 940_999, 1_000_500, 10_000)
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, int64(1_000_000), points[0].Timestamp)
	assert.Equal(t, map[string]float64{"a": 1.23457, "b": 2}, points[0].Values)
	assert.Equal(t, int64(1_010_000), points[1].Timestamp)
	assert.Empty(t, points[1].Values)
	assert.Empty(t, points[2].Values)

	assert.Equal(t, "up", last.Get("query"))
	assert.Equal(t, "940", last.Get("start"))
	assert.Equal(t, "1000", last.Get("end"))
	assert.Equal(t, "10", last.Get("step"))
	assert.Equal(t, observed{EndpointQueryRange, OutcomeOK}, obs.last())
}

func TestQueryRange_MergesUnalignedSeries(t *testing.T) {
	srv, _ := backend(t, http.StatusOK, `{
		"status": "success",
		"data": {"resultType": "matrix", "result": [
			{"metric": {"namespace": "a"}, "values": [[20, "1"], [30, "1"]]},
			{"metric": {"namespace": "b"}, "values": [[10, "2"], [30, "2"]]}
		]}
	}`)
	c, _ := newTestClient(t, srv.URL, nil)

	points, err := c.QueryRange(context.Background(), "q", 0, 60_000, 10_000)
	require.NoError(t, err)

	require.Len(t, points, 3)
	assert.Equal(t, map[string]float64{"b": 2}, points[0].Values)
	assert.Equal(t, map[string]float64{"a": 1}, points[1].Values)
	assert.Equal(t, map[string]float64{"a": 1, "b": 2}, points[2].Values)
}

func TestQueryRange_SkipsUnparsableValues(t *testing.T) {
	srv, _ := backend(t, http.StatusOK, `{
		"status": "success",
		"data": {"resultType": "matrix", "result": [
			{"metric": {"namespace": "a"}, "values": [[1000, "1.5"], [1010, "2.5"]]},
			{"metric": {"namespace": "b"}, "values": [[1000, "oops"], [1010, "3"]]}
		]}
	}`)
	c, _ := newTestClient(t, srv.URL, nil)

	points := c.FetchRange(context.Background(), "q", 900_000, 1_020_000, 10_000)

	require.Len(t, points, 2)
	assert.Equal(t, map[string]float64{"a": 1.5}, points[0].Values)
	assert.Equal(t, map[string]float64{"a": 2.5, "b": 3}, points[1].Values)
}

func TestQueryInstant_SkipsUnparsableValues(t *testing.T) {
	srv, _ := backend(t, http.StatusOK, `{
		"status": "success",
		"data": {"resultType": "vector", "result": [
			{"metric": {"namespace": "a"}, "value": [1000, "1.5"]},
			{"metric": {"namespace": "b"}, "value": [1000, ""]}
		]}
	}`)
	c, _ := newTestClient(t, srv.URL, nil)

	p := c.FetchLatest(context.Background(), "q")

	assert.Equal(t, map[string]float64{"a": 1.5}, p.Values)
}

func TestQueryRange_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		outcome string
	}{
		{"non 2xx", http.StatusBadRequest, `{"status":"error","errorType":"bad_data","error":"parse error"}`, ErrBackend, OutcomeBackend},
		{"server error", http.StatusServiceUnavailable, `unavailable`, ErrBackend, OutcomeBackend},
		{"malformed", http.StatusOK, `{"status":`, ErrBackend, OutcomeBackend},
		{"error status", http.StatusOK, `{"status":"error","data":{}}`, ErrBackend, OutcomeBackend},
		{"wrong type", http.StatusOK, `{"status":"success","data":{"resultType":"vector","result":[]}}`, ErrBackend, OutcomeBackend},
		{"short pair", http.StatusOK, `{"status":"success","data":{"resultType":"matrix","result":[{"metric":{},"values":[[1]]}]}}`, ErrBackend, OutcomeBackend},
		{"numeric value", http.StatusOK, `{"status":"success","data":{"resultType":"matrix","result":[{"metric":{},"values":[[1,2]]}]}}`, ErrBackend, OutcomeBackend},
		{"empty", http.StatusOK, `{"status":"success","data":{"resultType":"matrix","result":[]}}`, ErrNoData, OutcomeNoData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := backend(t, tt.status, tt.body)
			obs := &recordingObserver{}
			c, _ := newTestClient(t, srv.URL, obs)

			points, err := c.QueryRange(context.Background(), "q", 0, 60_000, 10_000)
			require.Error(t, err)
			assert.Nil(t, points)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.outcome, obs.last().outcome)

			var qe *QueryError
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, EndpointQueryRange, qe.Endpoint)
			assert.Equal(t, "q", qe.Query)

			assert.Empty(t, c.FetchRange(context.Background(), "q", 0, 60_000, 10_000))
		})
	}
}

func TestQueryRange_MissingStatusTolerated(t *testing.T) {
	srv, _ := backend(t, http.StatusOK, `{"data":{"result":[{"metric":{"namespace":"a"},"values":[[5,"1"]]}]}}`)
	c, _ := newTestClient(t, srv.URL, nil)

	points := c.FetchRange(context.Background(), "q", 0, 10_000, 10_000)
	require.Len(t, points, 1)
	assert.Equal(t, int64(5000), points[0].Timestamp)
}

func TestQueryRange_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	c, _ := newTestClient(t, base, obs)

	_, err := c.QueryRange(context.Background(), "q", 0, 60_000, 10_000)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, OutcomeNetwork, obs.last().outcome)
}

func TestQueryInstant_StampsLocalTime(t *testing.T) {
	srv, last := backend(t, http.StatusOK, `{
		"status": "success",
		"data": {"resultType": "vector", "result": [
			{"metric": {"namespace": "default"}, "value": [1, "0.25"]},
			{"metric": {"namespace": "kube-system"}, "value": [1, "NaN"]},
			{"metric": {}, "value": [1, "3"]}
		]}
	}`)
	c, fc := newTestClient(t, srv.URL, nil)

	p, err := c.QueryInstant(context.Background(), "sum(x) by (namespace)")
	require.NoError(t, err)

	assert.Equal(t, fc.Now().UnixMilli(), p.Timestamp)
	assert.Equal(t, map[string]float64{"default": 0.25}, p.Values)
	assert.Equal(t, "sum(x) by (namespace)", last.Get("query"))
	assert.Empty(t, last.Get("time"))
}

func TestQueryInstant_RequiresSuccess(t *testing.T) {
	srv, _ := backend(t, http.StatusOK, `{"data":{"resultType":"vector","result":[{"metric":{"namespace":"a"},"value":[1,"1"]}]}}`)
	c, fc := newTestClient(t, srv.URL, nil)

	_, err := c.QueryInstant(context.Background(), "q")
	assert.ErrorIs(t, err, ErrBackend)

	p := c.FetchLatest(context.Background(), "q")
	assert.True(t, p.IsEmpty())
	assert.Equal(t, fc.Now().UnixMilli(), p.Timestamp)
}

func TestQueryInstant_CustomLabelAndHeaders(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Scope-OrgID")
		_, _ = w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[{"metric":{"pod":"web-1"},"value":[1,"2"]}]}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		BaseURL: srv.URL + "/",
		Label:   "pod",
		Headers: map[string]string{"X-Scope-OrgID": "tenant"},
	})
	require.NoError(t, err)
	assert.Equal(t, srv.URL, c.BaseURL())

	p := c.FetchLatest(context.Background(), "q")
	assert.Equal(t, map[string]float64{"web-1": 2}, p.Values)
	assert.Equal(t, "tenant", gotHeader)
}

func TestQueryInstant_Canceled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})
	c, _ := newTestClient(t, srv.URL, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.QueryInstant(ctx, "q")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClient_Validates(t *testing.T) {
	for _, raw := range []string{"", "  ", "localhost:9090", "ftp://host", "http://"} {
		_, err := NewClient(Options{BaseURL: raw})
		assert.Error(t, err, raw)
	}

	_, err := NewClient(Options{BaseURL: "http://localhost:9090", Label: "bad-label"})
	assert.Error(t, err)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeOK, Outcome(nil))
	assert.Equal(t, OutcomeNoData, Outcome(&QueryError{Kind: ErrNoData}))
	assert.Equal(t, OutcomeNetwork, Outcome(&QueryError{Kind: ErrNetwork}))
	assert.Equal(t, OutcomeBackend, Outcome(errors.New("other")))
}
