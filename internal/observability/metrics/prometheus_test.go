package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestIncCounterAccumulates(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := New(reg)
	ctx := context.Background()

	c.IncCounter(ctx, "stage_executions_total", map[string]string{"status": "success"})
	c.IncCounter(ctx, "stage_executions_total", map[string]string{"status": "success"})
	c.IncCounter(ctx, "stage_executions_total", map[string]string{"status": "failed"})

	families, err := reg.Gather()
	require.NoError(t, err)

	var successValue, failedValue float64
	for _, fam := range families {
		if fam.GetName() != "reconctl_stage_executions_total" {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" && l.GetValue() == "success" {
					successValue = m.GetCounter().GetValue()
				}
				if l.GetName() == "status" && l.GetValue() == "failed" {
					failedValue = m.GetCounter().GetValue()
				}
			}
		}
	}
	require.Equal(t, float64(2), successValue)
	require.Equal(t, float64(1), failedValue)
}

func TestSetGaugeOverwritesValue(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := New(reg)
	ctx := context.Background()

	c.SetGauge(ctx, "engine_active_executions", 3, nil)
	c.SetGauge(ctx, "engine_active_executions", 5, nil)

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, fam := range families {
		if fam.GetName() != "reconctl_engine_active_executions" {
			continue
		}
		require.Len(t, fam.GetMetric(), 1)
		require.Equal(t, float64(5), fam.GetMetric()[0].GetGauge().GetValue())
		found = true
	}
	require.True(t, found, "expected gauge to be registered")
}

func TestObserveHistogramRecordsSamples(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := New(reg)
	ctx := context.Background()

	c.ObserveHistogram(ctx, "stage_execution_duration_seconds", 0.25, map[string]string{"stage_id": "nmap_scan"})
	c.ObserveHistogram(ctx, "stage_execution_duration_seconds", 1.5, map[string]string{"stage_id": "nmap_scan"})

	families, err := reg.Gather()
	require.NoError(t, err)

	var hist *dto.Histogram
	for _, fam := range families {
		if fam.GetName() == "reconctl_stage_execution_duration_seconds" {
			hist = fam.GetMetric()[0].GetHistogram()
		}
	}
	require.NotNil(t, hist)
	require.EqualValues(t, 2, hist.GetSampleCount())
}
