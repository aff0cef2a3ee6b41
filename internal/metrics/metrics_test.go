package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/profsweep/internal/profile"
	"github.com/aatumaykin/profsweep/internal/report"
	"github.com/aatumaykin/profsweep/internal/workers"
)

func sampleSummary() report.Summary {
	return report.Summary{
		HostsQueried: 5,
		Skipped: []profile.HostSkip{
			{Computer: "WS02", Reason: profile.ReasonUnreachable},
			{Computer: "WS04", Reason: profile.ReasonError},
			{Computer: "WS05", Reason: profile.ReasonUnreachable},
		},
		Analyzed:     10,
		Evaluated:    7,
		Eligible:     3,
		KnownBytes:   4096,
		SizeKnown:    true,
		Deleted:      2,
		DeleteFailed: 1,
		DeletionRan:  true,
	}
}

func exposition(t *testing.T, m *RunMetrics) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profsweep.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRecord(t *testing.T) {
	m := New("profsweep")
	m.Record(sampleSummary(), true, time.Unix(1700000000, 0))

	out := exposition(t, m)
	for _, want := range []string{
		"profsweep_hosts_queried 5",
		`profsweep_hosts_skipped{reason="unreachable"} 2`,
		`profsweep_hosts_skipped{reason="error"} 1`,
		`profsweep_profiles{stage="eligible"} 3`,
		"profsweep_eligible_bytes 4096",
		`profsweep_deletions_total{outcome="deleted"} 2`,
		`profsweep_deletions_total{outcome="failed"} 1`,
		"profsweep_last_run_success 1",
		"profsweep_last_run_timestamp_seconds 1.7e+09",
	} {
		assert.Contains(t, out, want)
	}
}

func TestTaskObserver(t *testing.T) {
	m := New("profsweep")
	obs := m.TaskObserver()

	obs(workers.Result{Type: "inventory", Duration: time.Second})
	obs(workers.Result{Type: "inventory", Error: errors.New("x"), Duration: 2 * time.Second})
	obs(workers.Result{Type: "inventory", Duration: time.Second})

	out := exposition(t, m)
	assert.Contains(t, out, `profsweep_remote_tasks_total{status="ok",type="inventory"} 2`)
	assert.Contains(t, out, `profsweep_remote_tasks_total{status="error",type="inventory"} 1`)
	assert.Contains(t, out, `profsweep_remote_task_duration_seconds_count{type="inventory"} 3`)
}

func TestWriteTextfile(t *testing.T) {
	m := New("profsweep")
	m.Record(sampleSummary(), false, time.Now())
	m.ObservePhase("inventory", 1500*time.Millisecond)

	path := filepath.Join(t.TempDir(), "profsweep.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "profsweep_hosts_queried 5")
	assert.Contains(t, out, `profsweep_phase_duration_seconds{phase="inventory"} 1.5`)
	assert.Contains(t, out, "profsweep_last_run_success 0")
	assert.True(t, strings.HasPrefix(out, "# HELP"))
}

func TestWriteTextfile_BadPath(t *testing.T) {
	m := New("profsweep")
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
