package metrics

import (
	"math"
	"sort"
	"time"
)

// Precision is the number of fractional digits kept for sample values.
const Precision = 5

var precisionScale = math.Pow10(Precision)

// SamplePoint is one timestamp with zero or more named readings.
// A missing key means the series reported nothing at that instant.
type SamplePoint struct {
	// Timestamp is in milliseconds since the Unix epoch.
	Timestamp int64
	Values    map[string]float64
}

// NewSamplePoint creates an empty SamplePoint stamped with ts.
func NewSamplePoint(ts time.Time) SamplePoint {
	return NewSamplePointAt(ts.UnixMilli())
}

// NewSamplePointAt creates an empty SamplePoint at the given millisecond timestamp.
func NewSamplePointAt(ms int64) SamplePoint {
	return SamplePoint{
		Timestamp: ms,
		Values:    make(map[string]float64),
	}
}

// Set stores a rounded reading for name. Non-finite readings and empty
// names are dropped; the return value reports whether anything was stored.
func (p *SamplePoint) Set(name string, value float64) bool {
	if name == "" {
		return false
	}
	rounded, ok := RoundValue(value)
	if !ok {
		return false
	}
	if p.Values == nil {
		p.Values = make(map[string]float64)
	}
	p.Values[name] = rounded
	return true
}

// Get returns the reading for name, if present.
func (p SamplePoint) Get(name string) (float64, bool) {
	v, ok := p.Values[name]
	return v, ok
}

// Time returns the timestamp as a time.Time.
func (p SamplePoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// IsEmpty reports whether the point carries no readings.
func (p SamplePoint) IsEmpty() bool {
	return len(p.Values) == 0
}

// Names returns the series names present in the point, sorted.
func (p SamplePoint) Names() []string {
	names := make([]string, 0, len(p.Values))
	for name := range p.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RoundValue rounds v to Precision fractional digits.
// It returns false for NaN and infinities.
func RoundValue(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	// Past 2^53 a float64 has no fractional digits left to round.
	if math.Abs(v) >= 1<<53 {
		return v, true
	}
	return math.Round(v*precisionScale) / precisionScale, true
}
