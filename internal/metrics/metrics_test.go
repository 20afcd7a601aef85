package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterIncrement(t *testing.T) {
	registry := NewRegistry()

	registry.IncrementCounter("sync_citations_total", map[string]string{"result": "success"})
	registry.IncrementCounter("sync_citations_total", map[string]string{"result": "success"})
	registry.IncrementCounter("sync_citations_total", map[string]string{"result": "failure"})

	snapshot := registry.Export()
	require.Len(t, snapshot.Counters, 2)

	// Export is sorted by key, so failure comes before success.
	assert.Equal(t, 1.0, snapshot.Counters[0].Value)
	assert.Equal(t, "failure", snapshot.Counters[0].Labels["result"])
	assert.Equal(t, 2.0, snapshot.Counters[1].Value)
	assert.Equal(t, "success", snapshot.Counters[1].Labels["result"])
}

func TestAddToCounter(t *testing.T) {
	registry := NewRegistry()

	registry.AddToCounter("bytes_stored", 100, nil)
	registry.AddToCounter("bytes_stored", 150, nil)

	snapshot := registry.Export()
	require.Len(t, snapshot.Counters, 1)
	assert.Equal(t, 250.0, snapshot.Counters[0].Value)
}

func TestGaugeOverwrites(t *testing.T) {
	registry := NewRegistry()

	registry.SetGauge("citation_queue_depth", 5, nil)
	registry.SetGauge("citation_queue_depth", 2, nil)

	snapshot := registry.Export()
	require.Len(t, snapshot.Gauges, 1)
	assert.Equal(t, 2.0, snapshot.Gauges[0].Value)
}

func TestTimerAggregation(t *testing.T) {
	registry := NewRegistry()

	registry.RecordTimer("sync_batch_duration", 100*time.Millisecond, nil)
	registry.RecordTimer("sync_batch_duration", 300*time.Millisecond, nil)

	snapshot := registry.Export()
	require.Len(t, snapshot.Timers, 1)

	timer := snapshot.Timers[0]
	assert.Equal(t, int64(2), timer.Count)
	assert.Equal(t, 400.0, timer.Sum)
	assert.Equal(t, 100.0, timer.Min)
	assert.Equal(t, 300.0, timer.Max)
	assert.Equal(t, 200.0, timer.Average)
}

func TestLabelsDistinguishSeries(t *testing.T) {
	registry := NewRegistry()

	registry.IncrementCounter("http_requests_total", map[string]string{"method": "GET"})
	registry.IncrementCounter("http_requests_total", map[string]string{"method": "POST"})

	snapshot := registry.Export()
	assert.Len(t, snapshot.Counters, 2)
}

func TestMetricKeyIsLabelOrderIndependent(t *testing.T) {
	a := metricKey("m", map[string]string{"x": "1", "y": "2"})
	b := metricKey("m", map[string]string{"y": "2", "x": "1"})
	assert.Equal(t, a, b)
}

func TestConcurrentAccess(t *testing.T) {
	registry := NewRegistry()
	done := make(chan struct{})

	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				registry.IncrementCounter("concurrent", nil)
				registry.SetGauge("depth", float64(j), nil)
				registry.RecordTimer("op", time.Millisecond, nil)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	snapshot := registry.Export()
	require.Len(t, snapshot.Counters, 1)
	assert.Equal(t, 400.0, snapshot.Counters[0].Value)
}
