package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiler_Stats(t *testing.T) {
	p := New(nil)

	p.Record(Sample{TaskID: "1", Agent: "coder", Model: "opus", Success: true, Duration: 2 * time.Second})
	p.Record(Sample{TaskID: "2", Agent: "coder", Model: "sonnet", Success: false, Duration: 4 * time.Second})
	p.Record(Sample{TaskID: "3", Agent: "reviewer", Model: "opus", Success: true, Duration: 6 * time.Second})

	stats := p.Stats()
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 2, stats.Successes)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 1e-9)
	assert.Equal(t, 4*time.Second, stats.AvgDuration)

	coder := stats.PerAgent["coder"]
	assert.Equal(t, 2, coder.Total)
	assert.InDelta(t, 0.5, coder.SuccessRate, 1e-9)
	assert.Equal(t, 3*time.Second, coder.AvgDuration)

	opus := stats.PerModel["opus"]
	assert.Equal(t, 2, opus.Total)
	assert.Equal(t, 2, opus.Successes)
}

func TestProfiler_StatsIdempotent(t *testing.T) {
	p := New(nil)
	p.Record(Sample{TaskID: "1", Success: true, Duration: time.Second})

	first := p.Stats()
	second := p.Stats()
	assert.Equal(t, first, second)
}

func TestProfiler_EmptyStats(t *testing.T) {
	p := New(nil)

	stats := p.Stats()
	assert.Zero(t, stats.TotalTasks)
	assert.Zero(t, stats.SuccessRate)
	assert.Zero(t, stats.AvgDuration)
	assert.Empty(t, stats.PerAgent)
}

func TestProfiler_Reset(t *testing.T) {
	p := New(nil)
	p.Record(Sample{TaskID: "1", Agent: "coder", Success: true, Duration: time.Second})

	p.Reset()

	stats := p.Stats()
	assert.Zero(t, stats.TotalTasks)
	assert.Empty(t, stats.PerAgent)
}

func TestProfiler_BlankAgentModelSkipBuckets(t *testing.T) {
	p := New(nil)
	p.Record(Sample{TaskID: "1", Success: true})

	stats := p.Stats()
	assert.Equal(t, 1, stats.TotalTasks)
	assert.Empty(t, stats.PerAgent)
	assert.Empty(t, stats.PerModel)
}

func TestHistoryStore_AppendAndQuery(t *testing.T) {
	store, err := NewHistoryStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	p := New(store)
	p.Record(Sample{TaskID: "1", Agent: "coder", Model: "opus", Success: true, Duration: 1500 * time.Millisecond})
	p.Record(Sample{TaskID: "2", Agent: "coder", Model: "opus", Success: false, Duration: 500 * time.Millisecond})

	samples, err := store.RecentSamples(10)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	// Newest first.
	assert.Equal(t, "2", samples[0].TaskID)
	assert.False(t, samples[0].Success)
	assert.Equal(t, 500*time.Millisecond, samples[0].Duration)
	assert.Equal(t, "1", samples[1].TaskID)
	assert.True(t, samples[1].Success)
}

func TestHistoryStore_FileBacked(t *testing.T) {
	dbPath := t.TempDir() + "/history/profile.db"

	store, err := NewHistoryStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Append(Sample{TaskID: "1", Success: true, Duration: time.Second}))
	require.NoError(t, store.Close())

	reopened, err := NewHistoryStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	samples, err := reopened.RecentSamples(10)
	require.NoError(t, err)
	assert.Len(t, samples, 1)
}
