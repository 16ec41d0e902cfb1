package prom

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/prometheus/common/model"

	"github.com/willibrandon/kpulse/internal/metrics"
)

const statusSuccess = "success"

// apiResponse is the envelope shared by every Prometheus HTTP API reply.
type apiResponse struct {
	Status    string   `json:"status"`
	Data      apiData  `json:"data"`
	ErrorType string   `json:"errorType,omitempty"`
	Error     string   `json:"error,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

type apiData struct {
	ResultType string          `json:"resultType"`
	Result     json.RawMessage `json:"result"`
}

// decodeEnvelope parses body and checks its status and result type. When
// strictStatus is false a missing status is tolerated, but an explicit
// non-success status never is. An empty result type is accepted.
func decodeEnvelope(body []byte, want model.ValueType, strictStatus bool) (*apiResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.Status != statusSuccess && (strictStatus || resp.Status != "") {
		if resp.Error != "" {
			return nil, fmt.Errorf("status %q: %s: %s", resp.Status, resp.ErrorType, resp.Error)
		}
		return nil, fmt.Errorf("status %q", resp.Status)
	}
	if resp.Data.ResultType != "" && resp.Data.ResultType != want.String() {
		return nil, fmt.Errorf("unexpected result type %q, want %q", resp.Data.ResultType, want)
	}
	return &resp, nil
}

// samplePair is a [timestamp, "value"] pair. The value is kept as text so
// a single unparsable reading only loses that reading.
type samplePair struct {
	Timestamp model.Time
	Value     string
}

func (p *samplePair) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("sample pair has %d elements, want 2", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Timestamp); err != nil {
		return fmt.Errorf("sample timestamp: %w", err)
	}
	if err := json.Unmarshal(raw[1], &p.Value); err != nil {
		return fmt.Errorf("sample value: %w", err)
	}
	return nil
}

// parse returns the reading and whether it is a usable number.
func (p samplePair) parse() (float64, bool) {
	v, err := strconv.ParseFloat(p.Value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

type rangeSeries struct {
	Metric model.Metric `json:"metric"`
	Values []samplePair `json:"values"`
}

type instantSample struct {
	Metric model.Metric `json:"metric"`
	Value  samplePair   `json:"value"`
}

func decodeMatrix(raw json.RawMessage) ([]rangeSeries, error) {
	var m []rangeSeries
	if len(raw) == 0 || string(raw) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode matrix: %w", err)
	}
	return m, nil
}

func decodeVector(raw json.RawMessage) ([]instantSample, error) {
	var v []instantSample
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode vector: %w", err)
	}
	return v, nil
}

// pivotMatrix turns series-major samples into time-major points. Samples
// are merged on their timestamp value; series without label are skipped,
// and unparsable or non-finite values leave no key at their timestamp.
func pivotMatrix(m []rangeSeries, label model.LabelName) []metrics.SamplePoint {
	byTime := make(map[int64]metrics.SamplePoint)
	for _, stream := range m {
		name := string(stream.Metric[label])
		if name == "" {
			continue
		}
		for _, pair := range stream.Values {
			ts := int64(pair.Timestamp)
			p, ok := byTime[ts]
			if !ok {
				p = metrics.NewSamplePointAt(ts)
				byTime[ts] = p
			}
			if v, ok := pair.parse(); ok {
				p.Set(name, v)
			}
		}
	}

	points := make([]metrics.SamplePoint, 0, len(byTime))
	for _, p := range byTime {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
	return points
}

// vectorPoint folds an instant vector into one point stamped at ms.
func vectorPoint(v []instantSample, label model.LabelName, ms int64) metrics.SamplePoint {
	p := metrics.NewSamplePointAt(ms)
	for _, s := range v {
		name := string(s.Metric[label])
		if name == "" {
			continue
		}
		if val, ok := s.Value.parse(); ok {
			p.Set(name, val)
		}
	}
	return p
}
