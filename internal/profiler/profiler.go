// Package profiler records per-task execution outcomes and exposes the
// aggregate health statistics consumed by the resource scheduler and the
// engine's health check.
package profiler

import (
	"sync"
	"time"
)

// Sample is one completed execution attempt.
type Sample struct {
	TaskID   string
	Agent    string
	Model    string
	Success  bool
	Duration time.Duration
}

// GroupStats aggregates samples sharing one agent or model.
type GroupStats struct {
	Total       int
	Successes   int
	SuccessRate float64
	AvgDuration time.Duration
}

// Stats is a read-only aggregate over all recorded samples.
type Stats struct {
	TotalTasks  int
	Successes   int
	SuccessRate float64
	AvgDuration time.Duration
	PerAgent    map[string]GroupStats
	PerModel    map[string]GroupStats
}

type bucket struct {
	total     int
	successes int
	duration  time.Duration
}

// Profiler accumulates execution samples. All methods are safe for
// concurrent use; Stats returns copies, so successive calls without
// intervening Record return identical results.
type Profiler struct {
	mu       sync.Mutex
	total    int
	success  int
	duration time.Duration
	perAgent map[string]*bucket
	perModel map[string]*bucket
	history  HistorySink
}

// HistorySink optionally persists samples across runs. A nil sink disables
// persistence; sink errors are ignored so profiling never blocks execution.
type HistorySink interface {
	Append(sample Sample) error
}

// New creates a Profiler. history may be nil.
func New(history HistorySink) *Profiler {
	return &Profiler{
		perAgent: make(map[string]*bucket),
		perModel: make(map[string]*bucket),
		history:  history,
	}
}

// Record adds a sample to the running statistics.
func (p *Profiler) Record(sample Sample) {
	p.mu.Lock()

	p.total++
	p.duration += sample.Duration
	if sample.Success {
		p.success++
	}
	record(p.perAgent, sample.Agent, sample)
	record(p.perModel, sample.Model, sample)

	sink := p.history
	p.mu.Unlock()

	if sink != nil {
		// Persistence failures must not affect execution.
		_ = sink.Append(sample)
	}
}

// Stats returns a snapshot of the aggregate statistics.
func (p *Profiler) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{
		TotalTasks: p.total,
		Successes:  p.success,
		PerAgent:   summarize(p.perAgent),
		PerModel:   summarize(p.perModel),
	}
	if p.total > 0 {
		stats.SuccessRate = float64(p.success) / float64(p.total)
		stats.AvgDuration = p.duration / time.Duration(p.total)
	}
	return stats
}

// Reset discards all accumulated statistics. Persisted history, if any, is
// untouched.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = 0
	p.success = 0
	p.duration = 0
	p.perAgent = make(map[string]*bucket)
	p.perModel = make(map[string]*bucket)
}

func record(buckets map[string]*bucket, key string, sample Sample) {
	if key == "" {
		return
	}
	b, ok := buckets[key]
	if !ok {
		b = &bucket{}
		buckets[key] = b
	}
	b.total++
	b.duration += sample.Duration
	if sample.Success {
		b.successes++
	}
}

func summarize(buckets map[string]*bucket) map[string]GroupStats {
	out := make(map[string]GroupStats, len(buckets))
	for key, b := range buckets {
		gs := GroupStats{
			Total:     b.total,
			Successes: b.successes,
		}
		if b.total > 0 {
			gs.SuccessRate = float64(b.successes) / float64(b.total)
			gs.AvgDuration = b.duration / time.Duration(b.total)
		}
		out[key] = gs
	}
	return out
}
