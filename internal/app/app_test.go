package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/kpulse/internal/config"
	"github.com/willibrandon/kpulse/internal/metrics"
	"github.com/willibrandon/kpulse/internal/prom"
)

type configureCall struct {
	query  string
	window time.Duration
}

type fakeController struct {
	id string

	mu         sync.Mutex
	configures []configureCall
	reloads    int
}

func (f *fakeController) ChartID() string { return f.id }

func (f *fakeController) Configure(_ context.Context, query string, window time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configures = append(f.configures, configureCall{query, window})
	return true, nil
}

func (f *fakeController) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads++
	return nil
}

type fakeObserver struct {
	calls []string
}

func (f *fakeObserver) ObserveChart(chart string, points, series int) {
	f.calls = append(f.calls, fmt.Sprintf("%s:%d:%d", chart, points, series))
}

func newTestModel(t *testing.T) (Model, []*fakeController, *fakeObserver) {
	t.Helper()
	cfg := &config.Config{Charts: config.DefaultCharts()}
	ctrls := []*fakeController{{id: "cpu"}, {id: "memory"}}
	charts := make([]Chart, len(cfg.Charts))
	for i, c := range cfg.Charts {
		charts[i] = Chart{Config: c, Controller: ctrls[i]}
	}
	obs := &fakeObserver{}
	m := New(cfg, charts, Options{Backend: "http://prom:9090", Observer: obs, Location: time.UTC})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	for _, c := range cfg.Charts {
		updated, _ = updated.Update(ChartConfiguredMsg{ChartID: c.ID, Window: c.Window, Changed: true})
	}
	return updated.(Model), ctrls, obs
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func snapshot(chartID string, gen uint64, state metrics.State) metrics.Snapshot {
	p := metrics.NewSamplePoint(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	p.Set("demo", 0.25)
	return metrics.Snapshot{
		ChartID:    chartID,
		Generation: gen,
		State:      state,
		Window:     5 * time.Minute,
		Points:     []metrics.SamplePoint{p},
		Names:      []string{"demo"},
		UpdatedAt:  time.Date(2024, 1, 1, 10, 0, 1, 0, time.UTC),
	}
}

func TestModel_WindowKeysReconfigureSelectedChart(t *testing.T) {
	m, ctrls, _ := newTestModel(t)
	assert.Equal(t, "cpu", m.Selected())

	updated, cmd := m.Update(runes("w"))
	m = updated.(Model)
	require.NotNil(t, cmd)
	msg := cmd().(ChartConfiguredMsg)

	assert.Equal(t, "cpu", msg.ChartID)
	assert.Equal(t, 30*time.Minute, msg.Window)
	assert.NoError(t, msg.Err)
	assert.Equal(t, []configureCall{{config.CPUQuery, 30 * time.Minute}}, ctrls[0].configures)
	assert.Equal(t, 30*time.Minute, m.Window("cpu"))

	updated, _ = m.Update(msg)
	m = updated.(Model)
	updated, cmd = m.Update(runes("W"))
	m = updated.(Model)
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 5*time.Minute, m.Window("cpu"))
	assert.Empty(t, ctrls[1].configures)
}

func TestModel_WindowKeysWaitForInFlightConfigure(t *testing.T) {
	m, ctrls, _ := newTestModel(t)

	updated, first := m.Update(runes("w"))
	m = updated.(Model)
	require.NotNil(t, first)

	updated, second := m.Update(runes("w"))
	m = updated.(Model)
	assert.Nil(t, second, "a second Configure must not race the first")
	assert.Equal(t, time.Hour, m.Window("cpu"))

	updated, next := m.Update(first())
	m = updated.(Model)
	require.NotNil(t, next)

	updated, done := m.Update(next())
	m = updated.(Model)
	assert.Nil(t, done)
	assert.Equal(t, []configureCall{
		{config.CPUQuery, 30 * time.Minute},
		{config.CPUQuery, time.Hour},
	}, ctrls[0].configures)

	updated, cmd := m.Update(runes("w"))
	require.NotNil(t, cmd)
	assert.Equal(t, 2*time.Hour, cmd().(ChartConfiguredMsg).Window)
	assert.Equal(t, 2*time.Hour, updated.(Model).Window("cpu"))
}

func TestModel_TabMovesSelection(t *testing.T) {
	m, ctrls, _ := newTestModel(t)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	assert.Equal(t, "memory", m.Selected())

	updated, cmd := m.Update(runes("r"))
	m = updated.(Model)
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, ctrls[1].reloads)
	assert.Equal(t, 0, ctrls[0].reloads)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "cpu", updated.(Model).Selected())
}

func TestModel_InitConfiguresEveryChart(t *testing.T) {
	_, ctrls, _ := newTestModel(t)

	for _, c := range ctrls {
		cmd := configureChart(c, "up", 5*time.Minute)
		msg := cmd().(ChartConfiguredMsg)
		assert.Equal(t, c.id, msg.ChartID)
		assert.True(t, msg.Changed)
	}
	assert.Len(t, ctrls[0].configures, 1)
	assert.Len(t, ctrls[1].configures, 1)
}

func TestModel_SnapshotsRenderAndStaleOnesDrop(t *testing.T) {
	m, _, obs := newTestModel(t)

	updated, _ := m.Update(SnapshotMsg{Snapshot: snapshot("cpu", 2, metrics.StateLive)})
	m = updated.(Model)
	view := m.View()
	assert.Contains(t, view, "demo")
	assert.Contains(t, view, "25.00 %")
	assert.Contains(t, view, "1/2 live")

	stale := snapshot("cpu", 1, metrics.StateBackfilling)
	updated, _ = m.Update(SnapshotMsg{Snapshot: stale})
	m = updated.(Model)
	assert.Contains(t, m.View(), "1/2 live", "stale snapshot must not change chart state")

	updated, _ = m.Update(SnapshotMsg{Snapshot: snapshot("unknown", 9, metrics.StateLive)})
	m = updated.(Model)

	assert.Equal(t, []string{"cpu:1:1"}, obs.calls)
}

func TestModel_HelpToggle(t *testing.T) {
	m, _, _ := newTestModel(t)

	updated, _ := m.Update(runes("?"))
	m = updated.(Model)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.NotContains(t, m.View(), "Keyboard Shortcuts")
}

func TestModel_Quit(t *testing.T) {
	m, _, _ := newTestModel(t)

	updated, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, updated.(Model).View())
}

func TestFormatBackendError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no data", &prom.QueryError{Endpoint: prom.EndpointQueryRange, Kind: prom.ErrNoData, Err: errors.New("empty result")}, "no series"},
		{"unauthorized", &prom.QueryError{Endpoint: prom.EndpointQuery, StatusCode: http.StatusUnauthorized, Kind: prom.ErrBackend, Err: errors.New("401")}, "Authentication failed"},
		{"not found", &prom.QueryError{Endpoint: prom.EndpointQuery, StatusCode: http.StatusNotFound, Kind: prom.ErrBackend, Err: errors.New("404")}, "Query API not found"},
		{"bad query", &prom.QueryError{Endpoint: prom.EndpointQuery, StatusCode: http.StatusBadRequest, Kind: prom.ErrBackend, Err: errors.New("parse error")}, "rejected the query"},
		{"refused", errors.New("dial tcp 127.0.0.1:9090: connect: connection refused"), "Connection refused"},
		{"other", errors.New("boom"), "Query failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatBackendError(tt.err, "http://localhost:9090")
			assert.True(t, strings.Contains(got, tt.want), "got %q", got)
		})
	}
}
