// Package gate aggregates per-phase quality scores into a mission-level
// verdict that decides whether a mission continues, is reviewed, or aborts.
package gate

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Verdict is a scored pass/review/fail judgment.
type Verdict string

const (
	VerdictPass   Verdict = "PASS"
	VerdictReview Verdict = "REVIEW"
	VerdictFail   Verdict = "FAIL"
)

// Phase names the coarse-grained execution phases of a mission.
type Phase string

const (
	PhaseAnalysis Phase = "analysis"
	PhaseBuild    Phase = "build"
	PhaseCheck    Phase = "check"
	PhaseDelivery Phase = "delivery"
)

// PhaseVerdict is the quality judgment for one execution phase.
type PhaseVerdict struct {
	Phase     Phase
	Score     int // 0-100
	Verdict   Verdict
	Issues    []string
	Strengths []string
	Timestamp time.Time
}

// MissionVerdict is the aggregate judgment over all recorded phases.
type MissionVerdict struct {
	OverallScore   int
	OverallVerdict Verdict
	PhaseVerdicts  []PhaseVerdict // Immutable copy of the recorded phases
	CriticalIssues []string       // Issues from FAIL-verdict phases only
	Summary        string
}

// Config tunes the aggregation rules.
type Config struct {
	// Weights assigns each phase a relative weight. Defaults sum to 1.0.
	Weights map[Phase]float64
	// PassThreshold is the minimum weighted score for PASS.
	PassThreshold int
	// ReviewThreshold is the minimum weighted score for REVIEW.
	ReviewThreshold int
	// FailOnReview halts the mission on a REVIEW verdict.
	FailOnReview bool
}

// DefaultConfig returns the stock gate configuration: build weighs most,
// delivery least, pass at 70 and review at 40.
func DefaultConfig() Config {
	return Config{
		Weights: map[Phase]float64{
			PhaseAnalysis: 0.20,
			PhaseBuild:    0.40,
			PhaseCheck:    0.25,
			PhaseDelivery: 0.15,
		},
		PassThreshold:   70,
		ReviewThreshold: 40,
	}
}

// Gate collects phase verdicts during a mission and produces the mission
// verdict. Phase verdicts are appended during a mission and reset between
// missions. Safe for concurrent use.
type Gate struct {
	mu     sync.Mutex
	cfg    Config
	phases []PhaseVerdict
}

// New creates a Gate. Zero-value config fields fall back to defaults.
func New(cfg Config) *Gate {
	def := DefaultConfig()
	if len(cfg.Weights) == 0 {
		cfg.Weights = def.Weights
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = def.PassThreshold
	}
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = def.ReviewThreshold
	}
	return &Gate{cfg: cfg}
}

// RecordPhase appends a phase verdict. Scores are clamped to 0-100 and a
// zero timestamp is filled with the current time.
func (g *Gate) RecordPhase(pv PhaseVerdict) {
	if pv.Score < 0 {
		pv.Score = 0
	}
	if pv.Score > 100 {
		pv.Score = 100
	}
	if pv.Timestamp.IsZero() {
		pv.Timestamp = time.Now()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.phases = append(g.phases, pv)
}

// GenerateVerdict computes the mission verdict from the recorded phases.
//
// With zero phases the verdict is REVIEW with a critical issue noting that
// nothing was verified. Otherwise the overall score is the weighted average
// over the recorded phases (normalized by the recorded weights), rounded to
// the nearest integer, mapped through the pass/review thresholds — except
// that any single FAIL phase caps the mission at REVIEW: one hard failure
// cannot be averaged away.
func (g *Gate) GenerateVerdict() MissionVerdict {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.phases) == 0 {
		return MissionVerdict{
			OverallScore:   0,
			OverallVerdict: VerdictReview,
			CriticalIssues: []string{"no phases were verified"},
			Summary:        "no quality data recorded; manual review required",
		}
	}

	var weightedSum, weightTotal float64
	var criticalIssues []string
	anyFail := false

	for _, pv := range g.phases {
		weight := g.cfg.Weights[pv.Phase]
		if weight == 0 {
			// Unknown phases still count, with a neutral weight.
			weight = 1.0 / float64(len(g.cfg.Weights))
		}
		weightedSum += float64(pv.Score) * weight
		weightTotal += weight

		if pv.Verdict == VerdictFail {
			anyFail = true
			criticalIssues = append(criticalIssues, pv.Issues...)
		}
	}

	score := int(math.Round(weightedSum / weightTotal))

	var verdict Verdict
	switch {
	case score >= g.cfg.PassThreshold:
		verdict = VerdictPass
	case score >= g.cfg.ReviewThreshold:
		verdict = VerdictReview
	default:
		verdict = VerdictFail
	}
	if anyFail && verdict == VerdictPass {
		verdict = VerdictReview
	}

	phases := make([]PhaseVerdict, len(g.phases))
	copy(phases, g.phases)

	return MissionVerdict{
		OverallScore:   score,
		OverallVerdict: verdict,
		PhaseVerdicts:  phases,
		CriticalIssues: criticalIssues,
		Summary:        fmt.Sprintf("%d/%d phases recorded, weighted score %d", len(phases), len(g.cfg.Weights), score),
	}
}

// ShouldContinue decides whether the mission proceeds past this verdict:
// FAIL always halts, PASS always continues, REVIEW depends on FailOnReview.
func (g *Gate) ShouldContinue(verdict Verdict) bool {
	switch verdict {
	case VerdictFail:
		return false
	case VerdictPass:
		return true
	default:
		g.mu.Lock()
		defer g.mu.Unlock()
		return !g.cfg.FailOnReview
	}
}

// Recorded returns the number of phase verdicts recorded so far.
func (g *Gate) Recorded() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.phases)
}

// Reset clears all recorded phase verdicts for a new mission.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.phases = nil
}
