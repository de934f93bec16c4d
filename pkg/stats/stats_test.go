package stats_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/gdk-electrum/pkg/stats"
)

func TestDumpMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_requests_total",
		Help: "Number of test requests.",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	dir := t.TempDir()
	require.NoError(t, stats.DumpMetrics(reg, dir))
	require.NoError(t, stats.DumpMetrics(reg, dir))

	buf, err := os.ReadFile(filepath.Join(dir, stats.DumpFile))
	require.NoError(t, err)
	require.Contains(t, string(buf), "test_requests_total")
}

func TestEnableMemoryStatistics(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge.",
	}))
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := stats.EnableMemoryStatistics(ctx, 10*time.Millisecond, reg, dir)
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("statistics routine did not stop")
	}

	buf, err := os.ReadFile(filepath.Join(dir, stats.DumpFile))
	require.NoError(t, err)
	require.Contains(t, string(buf), "test_gauge")
}
