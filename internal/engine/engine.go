// Package engine wires the queue, scheduler, retry policy, degradation
// manager, checkpoint store, profiler and quality gate into a single facade
// that runs missions end to end.
package engine

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/dispatch/internal/checkpoint"
	"github.com/harrison/dispatch/internal/config"
	"github.com/harrison/dispatch/internal/degrade"
	"github.com/harrison/dispatch/internal/gate"
	"github.com/harrison/dispatch/internal/logger"
	"github.com/harrison/dispatch/internal/models"
	"github.com/harrison/dispatch/internal/profiler"
	"github.com/harrison/dispatch/internal/queue"
	"github.com/harrison/dispatch/internal/resources"
)

// Logger is the narrow logging contract the engine needs. ConsoleLogger
// satisfies it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	LogTaskStart(task models.Task)
	LogTaskComplete(result models.TaskResult)
	LogTaskFail(result models.TaskResult)
	LogWaveStart(name string, taskCount int)
	LogWaveComplete(name string, duration time.Duration)
	LogSummary(result models.MissionResult)
}

// PhaseScorer judges the quality of one completed wave of results. A nil
// return records nothing; a non-nil verdict is fed to the quality gate,
// which may halt the mission.
type PhaseScorer func(results []models.TaskResult) *gate.PhaseVerdict

// Options carries optional collaborators for New. Zero value is valid:
// logging is discarded, the checkpoint backend comes from the config's
// checkpoint directory, and profiling history follows the config's database
// path.
type Options struct {
	Logger            Logger
	CheckpointBackend checkpoint.Backend
	History           profiler.HistorySink
	PhaseScorer       PhaseScorer
}

// Health is the engine's self-diagnosis.
type Health struct {
	Healthy        bool
	Issues         []string
	Recommendation string
}

// Status is a combined snapshot of all engine subsystems.
type Status struct {
	MissionID     string
	Initialized   bool
	Degradation   degrade.Status
	Resources     resources.State
	Queue         queue.Stats
	Profile       profiler.Stats
	TemplateCount int
	GatePhases    int
}

// Engine is the mission execution facade. Construct with New, call Init
// once, then RunMission per plan. Safe for concurrent status queries while
// a mission runs; RunMission itself is not reentrant.
type Engine struct {
	mu          sync.Mutex
	cfg         *config.Config
	log         Logger
	opts        Options
	initialized bool
	missionID   string

	queue       *queue.Queue
	scheduler   *resources.Scheduler
	degradation *degrade.Manager
	profile     *profiler.Profiler
	gate        *gate.Gate
	checkpoints *checkpoint.Store // nil when checkpointing is disabled
	history     *profiler.HistoryStore

	templates map[string]string
}

// New creates an Engine from configuration. Components are not constructed
// until Init.
func New(cfg *config.Config, opts Options) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewConsoleLogger(nil, cfg.LogLevel)
	}
	return &Engine{
		cfg:       cfg,
		log:       log,
		opts:      opts,
		templates: make(map[string]string),
	}
}

// Init constructs the engine's components. Idempotent: calling it on an
// initialized engine is a no-op.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}

	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	e.queue = queue.New()
	e.scheduler = resources.NewScheduler(e.cfg.MaxConcurrentTasks, e.cfg.APIQuotaLimit)
	e.scheduler.SetQuotaLowWater(e.cfg.QuotaLowWater)
	e.degradation = degrade.NewManager(degrade.Thresholds{
		FailuresPerStep:      e.cfg.FailuresPerStep,
		SuccessesPerRecovery: e.cfg.SuccessesPerRecovery,
	})
	e.gate = gate.New(gate.Config{
		Weights:         gateWeights(e.cfg.GateWeights),
		PassThreshold:   e.cfg.PassThreshold,
		ReviewThreshold: e.cfg.ReviewThreshold,
		FailOnReview:    e.cfg.FailOnReview,
	})

	history := e.opts.History
	if history == nil && e.cfg.Features.Profiling && e.cfg.ProfileDB != "" {
		store, err := profiler.NewHistoryStore(e.cfg.ProfileDB)
		if err != nil {
			// Profiling never blocks execution; run without history.
			e.log.Warnf("profile history unavailable: %v", err)
		} else {
			e.history = store
			history = store
		}
	}
	e.profile = profiler.New(history)

	if e.cfg.Features.Checkpoints {
		backend := e.opts.CheckpointBackend
		if backend == nil {
			fb, err := checkpoint.NewFileBackend(e.cfg.CheckpointDir)
			if err != nil {
				return fmt.Errorf("init checkpoint backend: %w", err)
			}
			backend = fb
		}
		e.checkpoints = checkpoint.NewStore(backend)
	}

	e.missionID = newMissionID()
	e.initialized = true
	e.log.Debugf("engine initialized (mission %s)", e.missionID)
	return nil
}

// IsReady reports whether the engine will accept a new mission: it must be
// initialized, not offline, and the scheduler must not be recommending a
// pause.
func (e *Engine) IsReady() bool {
	e.mu.Lock()
	initialized := e.initialized
	e.mu.Unlock()

	if !initialized {
		return false
	}
	if e.degradation.IsOffline() {
		return false
	}
	return !e.scheduler.Recommendation().ShouldPause
}

// CheckHealth inspects all subsystems and reports issues with a
// recommendation for the most pressing one.
func (e *Engine) CheckHealth() Health {
	e.mu.Lock()
	initialized := e.initialized
	e.mu.Unlock()

	if !initialized {
		return Health{
			Issues:         []string{"engine not initialized"},
			Recommendation: "call Init before running missions",
		}
	}

	var issues []string
	var recommendation string

	status := e.degradation.Status()
	if status.Level == degrade.LevelOffline {
		issues = append(issues, "engine is offline after sustained failures")
		recommendation = "reset the engine or investigate provider failures"
	} else if status.Level > degrade.LevelFull {
		issues = append(issues, fmt.Sprintf("capability degraded to %s", status.Level))
	}

	if e.scheduler.IsUnderPressure() {
		issues = append(issues, "concurrency utilization above 80%")
	}
	if rec := e.scheduler.Recommendation(); rec.ShouldPause {
		issues = append(issues, rec.Reason)
		if recommendation == "" {
			recommendation = "pause new work until quota resets"
		}
	}

	stats := e.profile.Stats()
	if stats.TotalTasks > 0 && stats.SuccessRate < 0.5 {
		issues = append(issues, fmt.Sprintf("task success rate %.0f%% is below 50%%", stats.SuccessRate*100))
		if recommendation == "" {
			recommendation = "review agent and model assignments for failing tasks"
		}
	}

	return Health{
		Healthy:        len(issues) == 0,
		Issues:         issues,
		Recommendation: recommendation,
	}
}

// GetStatus returns a combined snapshot of all subsystems.
func (e *Engine) GetStatus() Status {
	e.mu.Lock()
	initialized := e.initialized
	missionID := e.missionID
	templateCount := len(e.templates)
	e.mu.Unlock()

	status := Status{
		MissionID:     missionID,
		Initialized:   initialized,
		TemplateCount: templateCount,
	}
	if !initialized {
		return status
	}

	status.Degradation = e.degradation.Status()
	status.Resources = e.scheduler.State()
	status.Queue = e.queue.Stats()
	status.Profile = e.profile.Stats()
	status.GatePhases = e.gate.Recorded()
	return status
}

// Gate exposes the quality gate so callers can record phase verdicts
// scored outside the engine.
func (e *Engine) Gate() *gate.Gate {
	return e.gate
}

// Reset returns the engine to a clean slate between missions: degradation,
// resource counters, profiler statistics, gate verdicts and queue state are
// all cleared. Durable checkpoints survive a reset so interrupted work can
// still resume.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return ErrNotInitialized
	}

	e.queue.Clear()
	e.degradation.Reset()
	e.scheduler.ClearQueue()
	e.scheduler.ResetQuota()
	e.profile.Reset()
	e.gate.Reset()
	e.missionID = newMissionID()
	e.log.Debugf("engine reset (mission %s)", e.missionID)
	return nil
}

// Close releases resources held by the engine, such as the profile history
// database.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.history != nil {
		err := e.history.Close()
		e.history = nil
		return err
	}
	return nil
}

// gateWeights converts configured phase weights into the gate's keyed form.
// An empty map leaves the gate on its defaults.
func gateWeights(weights map[string]float64) map[gate.Phase]float64 {
	if len(weights) == 0 {
		return nil
	}
	out := make(map[gate.Phase]float64, len(weights))
	for phase, weight := range weights {
		out[gate.Phase(phase)] = weight
	}
	return out
}

// newMissionID mints a unique mission identifier.
func newMissionID() string {
	return uuid.NewString()
}

// pruneCheckpoints drops a completed task's checkpoints. Best effort; a
// checkpoint directory shared with a dead process may hold the lock briefly.
func (e *Engine) pruneCheckpoints(taskID string) {
	if e.checkpoints == nil {
		return
	}
	if err := e.checkpoints.Prune(taskID); err != nil && !os.IsNotExist(err) {
		e.log.Debugf("prune checkpoints for %s: %v", taskID, err)
	}
}
