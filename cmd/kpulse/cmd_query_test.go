package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/kpulse/internal/config"
)

func TestResolveQuery(t *testing.T) {
	cfg := &config.Config{
		Prometheus: config.PrometheusConfig{Label: "namespace"},
		Charts: []config.ChartConfig{
			{ID: "memory", Query: config.MemoryQuery, Unit: "megabytes", Label: "pod"},
		},
	}

	expr, label, unit, err := resolveQuery(cfg, nil, queryOptions{chart: "memory"})
	require.NoError(t, err)
	assert.Equal(t, config.MemoryQuery, expr)
	assert.Equal(t, "pod", label)
	assert.Equal(t, "megabytes", unit)

	expr, label, unit, err = resolveQuery(cfg, []string{"up"}, queryOptions{chart: "memory", unit: "raw", label: "job"})
	require.NoError(t, err)
	assert.Equal(t, "up", expr)
	assert.Equal(t, "job", label)
	assert.Equal(t, "raw", unit)

	expr, label, _, err = resolveQuery(cfg, []string{"up"}, queryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "up", expr)
	assert.Equal(t, "namespace", label)

	_, _, _, err = resolveQuery(cfg, nil, queryOptions{})
	assert.Error(t, err)

	_, _, _, err = resolveQuery(cfg, nil, queryOptions{chart: "nope"})
	assert.Error(t, err)
}
