package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Counters(t *testing.T) {
	r := NewRun()
	r.Elements.WithLabelValues("node").Add(3)
	r.Elements.WithLabelValues("way").Inc()
	r.ElementsSkipped.WithLabelValues(ReasonUnsupported).Inc()
	r.AnnotationsSkipped.WithLabelValues(ReasonDropped).Add(2)
	r.Rows.WithLabelValues("nodes").Add(3)

	assert.InDelta(t, 3, testutil.ToFloat64(r.Elements.WithLabelValues("node")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.Elements.WithLabelValues("way")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.ElementsSkipped.WithLabelValues(ReasonUnsupported)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(r.AnnotationsSkipped.WithLabelValues(ReasonDropped)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(r.Rows.WithLabelValues("nodes")), 0)
}

func TestRun_Isolated(t *testing.T) {
	a, b := NewRun(), NewRun()
	a.Elements.WithLabelValues("node").Inc()
	assert.InDelta(t, 0, testutil.ToFloat64(b.Elements.WithLabelValues("node")), 0)
}

func TestRun_WriteTextfile(t *testing.T) {
	r := NewRun()
	r.Rows.WithLabelValues("ways_nodes").Add(5)
	r.ObserveDuration(1500 * time.Millisecond)

	path := filepath.Join(t.TempDir(), "osmw.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `osmw_rows_total{table="ways_nodes"} 5`)
	assert.Contains(t, string(data), "osmw_run_duration_seconds 1.5")
}

func TestRun_WriteTextfile_BadPath(t *testing.T) {
	err := NewRun().WriteTextfile(filepath.Join(t.TempDir(), "missing", "osmw.prom"))
	require.Error(t, err)
}

func TestRun_RegistryGathers(t *testing.T) {
	r := NewRun()
	r.Elements.WithLabelValues("node").Inc()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
