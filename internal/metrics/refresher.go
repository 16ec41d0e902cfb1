package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/willibrandon/kpulse/internal/logger"
)

// DefaultTickInterval is the period between incremental refreshes.
const DefaultTickInterval = 10 * time.Second

var (
	// ErrStopped is returned when configuring a refresher after Stop.
	ErrStopped = errors.New("refresher stopped")
	// ErrEmptyQuery is returned when configuring an empty query.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrInvalidWindow is returned for a non-positive window.
	ErrInvalidWindow = errors.New("window must be positive")
)

// Source fetches samples from a metrics backend. Implementations never
// fail: errors are reported as empty results.
type Source interface {
	FetchRange(ctx context.Context, query string, startMs, endMs, stepMs int64) []SamplePoint
	FetchLatest(ctx context.Context, query string) SamplePoint
}

// Recorder archives live samples.
type Recorder interface {
	RecordSample(ctx context.Context, chartID string, p SamplePoint) error
}

// State is the lifecycle state of a Refresher.
type State int

const (
	StateUninitialized State = iota
	StateBackfilling
	StateLive
	StateStopped
)

// String returns a display label for the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBackfilling:
		return "backfilling"
	case StateLive:
		return "live"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is an immutable copy of a chart's buffer, handed to renderers.
type Snapshot struct {
	ChartID    string
	InstanceID string
	Generation uint64
	State      State
	Query      string
	Window     time.Duration
	Points     []SamplePoint
	Names      []string
	Ticks      []int64
	UpdatedAt  time.Time
	// FetchLatency is the smoothed duration of backend calls.
	FetchLatency time.Duration
}

// Latest returns the most recent point of the snapshot.
func (s Snapshot) Latest() (SamplePoint, bool) {
	if len(s.Points) == 0 {
		return SamplePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Refresher keeps one chart's SeriesWindow current: a backfill on every
// (re)configuration, then a fixed-period tick that appends the latest
// sample and evicts points older than the window.
type Refresher struct {
	chartID      string
	instanceID   string
	source       Source
	recorder     Recorder
	clock        clock.WithTicker
	tickInterval time.Duration
	loc          *time.Location
	onUpdate     func(Snapshot)

	mu         sync.Mutex
	state      State
	query      string
	window     time.Duration
	buf        *SeriesWindow
	generation uint64
	updatedAt  time.Time
	latency    ewma.MovingAverage
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithClock sets the clock used for timestamps and the ticker.
func WithClock(c clock.WithTicker) RefresherOption {
	return func(r *Refresher) {
		r.clock = c
	}
}

// WithTickInterval sets the refresh period.
func WithTickInterval(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.tickInterval = d
		}
	}
}

// WithLocation sets the time zone used to derive minute ticks.
func WithLocation(loc *time.Location) RefresherOption {
	return func(r *Refresher) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithUpdateHandler registers fn to receive a snapshot after every change.
// fn is called without the refresher's lock held.
func WithUpdateHandler(fn func(Snapshot)) RefresherOption {
	return func(r *Refresher) {
		r.onUpdate = fn
	}
}

// WithRecorder archives every appended live sample.
func WithRecorder(rec Recorder) RefresherOption {
	return func(r *Refresher) {
		r.recorder = rec
	}
}

// NewRefresher creates an unconfigured refresher for chartID.
func NewRefresher(chartID string, source Source, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		chartID:      chartID,
		instanceID:   uuid.NewString(),
		source:       source,
		clock:        clock.RealClock{},
		tickInterval: DefaultTickInterval,
		loc:          time.Local,
		latency:      ewma.NewMovingAverage(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ChartID returns the chart this refresher serves.
func (r *Refresher) ChartID() string {
	return r.chartID
}

// InstanceID returns the unique id of this refresher instance.
func (r *Refresher) InstanceID() string {
	return r.instanceID
}

// Configure points the refresher at query over window. The first call and
// every call that changes either value discards the buffer and starts a
// new backfill followed by the tick loop; a call with the current values
// is a no-op. The loop lives until Stop, a later configuration, or ctx is
// cancelled. It reports whether a new backfill was started.
func (r *Refresher) Configure(ctx context.Context, query string, window time.Duration) (bool, error) {
	return r.configure(ctx, query, window, false)
}

// Reload discards the buffer and backfills again with the current query
// and window.
func (r *Refresher) Reload(ctx context.Context) error {
	r.mu.Lock()
	query, window := r.query, r.window
	r.mu.Unlock()

	_, err := r.configure(ctx, query, window, true)
	return err
}

func (r *Refresher) configure(ctx context.Context, query string, window time.Duration, force bool) (bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return false, ErrEmptyQuery
	}
	if window <= 0 {
		return false, ErrInvalidWindow
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateStopped {
		return false, ErrStopped
	}
	if !force && r.state != StateUninitialized && r.query == query && r.window == window {
		return false, nil
	}

	if r.cancel != nil {
		r.cancel()
	}

	r.generation++
	r.state = StateBackfilling
	r.query = query
	r.window = window
	r.buf = NewSeriesWindow(window)

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.run(loopCtx, r.generation, query, window)

	logger.Debug("chart configured",
		"chart", r.chartID,
		"generation", r.generation,
		"window", FormatWindow(window))

	return true, nil
}

// Stop cancels the tick loop and any in-flight fetch, then waits for the
// loop to exit. Further configuration fails with ErrStopped. Stop is
// idempotent.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.state == StateStopped {
		r.mu.Unlock()
		return
	}
	r.state = StateStopped
	r.generation++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.buf = nil
	r.mu.Unlock()

	r.wg.Wait()
	logger.Debug("chart stopped", "chart", r.chartID)
}

// State returns the current lifecycle state.
func (r *Refresher) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Snapshot returns a copy of the current buffer.
func (r *Refresher) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Refresher) snapshotLocked() Snapshot {
	snap := Snapshot{
		ChartID:      r.chartID,
		InstanceID:   r.instanceID,
		Generation:   r.generation,
		State:        r.state,
		Query:        r.query,
		Window:       r.window,
		UpdatedAt:    r.updatedAt,
		FetchLatency: time.Duration(r.latency.Value()),
	}
	if r.buf != nil {
		snap.Points = r.buf.Points()
		snap.Names = r.buf.Names()
		snap.Ticks = MinuteTicks(snap.Points, r.loc)
	}
	return snap
}

// run performs the backfill for generation gen and then drives the ticker
// until ctx is cancelled or the generation is superseded.
func (r *Refresher) run(ctx context.Context, gen uint64, query string, window time.Duration) {
	defer r.wg.Done()

	if snap, ok := r.current(gen); ok {
		r.publish(snap)
	}

	if !r.backfill(ctx, gen, query, window) {
		return
	}

	ticker := r.clock.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !r.tick(ctx, gen, query) {
				return
			}
		}
	}
}

func (r *Refresher) backfill(ctx context.Context, gen uint64, query string, window time.Duration) bool {
	now := r.clock.Now()
	step := StepFor(window)

	points := r.source.FetchRange(ctx, query,
		now.Add(-window).UnixMilli(), now.UnixMilli(), step.Milliseconds())
	elapsed := r.clock.Since(now)

	if ctx.Err() != nil {
		return false
	}

	r.mu.Lock()
	if r.generation != gen || r.state != StateBackfilling {
		r.mu.Unlock()
		return false
	}
	r.buf.Replace(points)
	r.state = StateLive
	r.updatedAt = r.clock.Now()
	r.observeLatency(elapsed)
	snap := r.snapshotLocked()
	r.mu.Unlock()

	logger.Debug("chart backfilled",
		"chart", r.chartID,
		"generation", gen,
		"points", len(snap.Points),
		"series", len(snap.Names))

	r.publish(snap)
	return true
}

func (r *Refresher) tick(ctx context.Context, gen uint64, query string) bool {
	start := r.clock.Now()
	p := r.source.FetchLatest(ctx, query)
	elapsed := r.clock.Since(start)

	if ctx.Err() != nil {
		return false
	}

	r.mu.Lock()
	if r.generation != gen || r.state != StateLive {
		r.mu.Unlock()
		return false
	}
	appended := r.buf.Append(p)
	evicted := r.buf.Evict(r.clock.Now())
	r.updatedAt = r.clock.Now()
	r.observeLatency(elapsed)
	snap := r.snapshotLocked()
	r.mu.Unlock()

	logger.Debug("chart tick",
		"chart", r.chartID,
		"generation", gen,
		"appended", appended,
		"evicted", evicted)

	r.publish(snap)

	if appended && !p.IsEmpty() && r.recorder != nil {
		if err := r.recorder.RecordSample(ctx, r.chartID, p); err != nil {
			logger.Warn("failed to archive sample", "chart", r.chartID, "error", err)
		}
	}
	return true
}

// current returns a snapshot if gen is still the active generation.
func (r *Refresher) current(gen uint64) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen || r.state == StateStopped {
		return Snapshot{}, false
	}
	return r.snapshotLocked(), true
}

// observeLatency seeds the average with the first sample so it does not
// start biased towards zero. Callers hold r.mu.
func (r *Refresher) observeLatency(d time.Duration) {
	if r.latency.Value() == 0 {
		r.latency.Set(float64(d))
		return
	}
	r.latency.Add(float64(d))
}

func (r *Refresher) publish(snap Snapshot) {
	if r.onUpdate != nil {
		r.onUpdate(snap)
	}
}
