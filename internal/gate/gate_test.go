package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGate_ZeroPhasesYieldsReview(t *testing.T) {
	g := New(DefaultConfig())

	verdict := g.GenerateVerdict()
	assert.Equal(t, VerdictReview, verdict.OverallVerdict)
	require.NotEmpty(t, verdict.CriticalIssues, "zero phases must surface a critical issue")
	assert.Contains(t, verdict.CriticalIssues[0], "no phases")
}

func TestGate_AllPassingPhases(t *testing.T) {
	g := New(DefaultConfig())
	g.RecordPhase(PhaseVerdict{Phase: PhaseAnalysis, Score: 80, Verdict: VerdictPass})
	g.RecordPhase(PhaseVerdict{Phase: PhaseBuild, Score: 90, Verdict: VerdictPass})
	g.RecordPhase(PhaseVerdict{Phase: PhaseCheck, Score: 75, Verdict: VerdictPass})
	g.RecordPhase(PhaseVerdict{Phase: PhaseDelivery, Score: 85, Verdict: VerdictPass})

	verdict := g.GenerateVerdict()
	assert.Equal(t, VerdictPass, verdict.OverallVerdict)

	// 80*0.20 + 90*0.40 + 75*0.25 + 85*0.15 = 16 + 36 + 18.75 + 12.75 = 83.5 -> 84
	assert.Equal(t, 84, verdict.OverallScore)
	assert.Empty(t, verdict.CriticalIssues)
	assert.Len(t, verdict.PhaseVerdicts, 4)
}

func TestGate_SingleFailCapsAtReview(t *testing.T) {
	g := New(DefaultConfig())
	g.RecordPhase(PhaseVerdict{Phase: PhaseAnalysis, Score: 95, Verdict: VerdictPass})
	g.RecordPhase(PhaseVerdict{Phase: PhaseBuild, Score: 95, Verdict: VerdictPass})
	g.RecordPhase(PhaseVerdict{Phase: PhaseCheck, Score: 95, Verdict: VerdictPass})
	g.RecordPhase(PhaseVerdict{
		Phase:   PhaseDelivery,
		Score:   60,
		Verdict: VerdictFail,
		Issues:  []string{"artifact missing"},
	})

	verdict := g.GenerateVerdict()
	assert.GreaterOrEqual(t, verdict.OverallScore, 70,
		"weighted average alone would pass")
	assert.Equal(t, VerdictReview, verdict.OverallVerdict,
		"a single FAIL phase cannot be averaged away")
	assert.Equal(t, []string{"artifact missing"}, verdict.CriticalIssues)
}

func TestGate_CriticalIssuesFromFailPhasesOnly(t *testing.T) {
	g := New(DefaultConfig())
	g.RecordPhase(PhaseVerdict{Phase: PhaseAnalysis, Score: 50, Verdict: VerdictReview, Issues: []string{"review issue"}})
	g.RecordPhase(PhaseVerdict{Phase: PhaseBuild, Score: 20, Verdict: VerdictFail, Issues: []string{"build broken"}})
	g.RecordPhase(PhaseVerdict{Phase: PhaseCheck, Score: 90, Verdict: VerdictPass, Issues: []string{"minor nit"}})

	verdict := g.GenerateVerdict()
	assert.Equal(t, []string{"build broken"}, verdict.CriticalIssues)
}

func TestGate_LowScoresFail(t *testing.T) {
	g := New(DefaultConfig())
	g.RecordPhase(PhaseVerdict{Phase: PhaseBuild, Score: 20, Verdict: VerdictFail, Issues: []string{"nothing compiles"}})

	verdict := g.GenerateVerdict()
	assert.Equal(t, VerdictFail, verdict.OverallVerdict)
	assert.Equal(t, 20, verdict.OverallScore, "single-phase score normalizes by its own weight")
}

func TestGate_PartialPhasesNormalizeWeights(t *testing.T) {
	g := New(DefaultConfig())
	// Only two of four phases recorded; weights renormalize over those two.
	g.RecordPhase(PhaseVerdict{Phase: PhaseAnalysis, Score: 80, Verdict: VerdictPass}) // weight 0.20
	g.RecordPhase(PhaseVerdict{Phase: PhaseBuild, Score: 60, Verdict: VerdictReview})  // weight 0.40

	verdict := g.GenerateVerdict()
	// (80*0.20 + 60*0.40) / 0.60 = 40/0.6 = 66.67 -> 67
	assert.Equal(t, 67, verdict.OverallScore)
	assert.Equal(t, VerdictReview, verdict.OverallVerdict)
}

func TestGate_ShouldContinue(t *testing.T) {
	g := New(DefaultConfig())
	assert.False(t, g.ShouldContinue(VerdictFail))
	assert.True(t, g.ShouldContinue(VerdictPass))
	assert.True(t, g.ShouldContinue(VerdictReview), "default config continues on REVIEW")

	strict := New(Config{FailOnReview: true})
	assert.False(t, strict.ShouldContinue(VerdictReview))
	assert.True(t, strict.ShouldContinue(VerdictPass))
}

func TestGate_Reset(t *testing.T) {
	g := New(DefaultConfig())
	g.RecordPhase(PhaseVerdict{Phase: PhaseBuild, Score: 90, Verdict: VerdictPass})
	require.Equal(t, 1, g.Recorded())

	g.Reset()

	assert.Zero(t, g.Recorded())
	verdict := g.GenerateVerdict()
	assert.Equal(t, VerdictReview, verdict.OverallVerdict, "reset gate behaves like a fresh mission")
}

func TestGate_ScoreClamping(t *testing.T) {
	g := New(DefaultConfig())
	g.RecordPhase(PhaseVerdict{Phase: PhaseBuild, Score: 150, Verdict: VerdictPass})
	g.RecordPhase(PhaseVerdict{Phase: PhaseCheck, Score: -10, Verdict: VerdictFail})

	verdict := g.GenerateVerdict()
	for _, pv := range verdict.PhaseVerdicts {
		assert.GreaterOrEqual(t, pv.Score, 0)
		assert.LessOrEqual(t, pv.Score, 100)
	}
}
