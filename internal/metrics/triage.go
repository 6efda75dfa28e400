package metrics

import (
	"math"

	"github.com/ralphcore/ralph/internal/store"
	"github.com/ralphcore/ralph/internal/tunables"
)

// TriageInputs are the raw quantities the triage score normalizes.
type TriageInputs struct {
	TotalTokens      int64
	ToolCalls        int
	AnomalyCount     int
	RecentBurstAtEnd bool
	WallMs           int64
	MaxStepWallMs    int64
	Outcome          store.RunOutcome
}

// ComputeTriageScore weights normalized token/tool-call/anomaly/wall-time
// components, adds a flat bonus for a late anomaly burst, and a penalty when
// a run failed despite burning a lot of tokens. The result is clamped to
// [0,100]; reasons list every threshold crossed.
func ComputeTriageScore(in TriageInputs) (score float64, reasons []string) {
	tokenNorm := normalizedLog(float64(in.TotalTokens), tunables.TriageTokenCap)
	score += tokenNorm * tunables.TriageWeightTokens
	if tokenNorm >= 0.5 {
		reasons = append(reasons, "high_token_usage")
	}

	toolNorm := normalizedLog(float64(in.ToolCalls), tunables.TriageToolCallCap)
	score += toolNorm * tunables.TriageWeightToolCalls
	if toolNorm >= 0.5 {
		reasons = append(reasons, "high_tool_call_count")
	}

	anomalyNorm := clamp01(float64(in.AnomalyCount) / float64(tunables.TriageAnomalyCap))
	score += anomalyNorm * tunables.TriageWeightAnomalies
	if anomalyNorm >= 0.5 {
		reasons = append(reasons, "anomaly_count_high")
	}

	if in.RecentBurstAtEnd {
		score += tunables.TriageWeightBurstBonus
		reasons = append(reasons, "recent_anomaly_burst")
	}

	wallHours := float64(in.WallMs) / float64(1000*60*60)
	wallNorm := clamp01(wallHours / tunables.TriageWallHoursCap)
	score += wallNorm * tunables.TriageWeightWallHours
	if wallNorm >= 0.5 {
		reasons = append(reasons, "long_wall_time")
	}

	maxStepMin := float64(in.MaxStepWallMs) / float64(1000*60)
	stepNorm := clamp01(maxStepMin / tunables.TriageMaxStepWallMinCap)
	score += stepNorm * tunables.TriageWeightMaxStepWall
	if stepNorm >= 0.5 {
		reasons = append(reasons, "long_step_wall_time")
	}

	if in.Outcome != store.OutcomeSuccess && in.Outcome != "" && in.TotalTokens >= tunables.TriageFailedHighTokenThreshold {
		score += tunables.TriageFailedHighTokenPenalty
		reasons = append(reasons, "failed_with_high_tokens")
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score, reasons
}

func normalizedLog(value, cap float64) float64 {
	if value <= 0 || cap <= 0 {
		return 0
	}
	return clamp01(math.Log1p(value) / math.Log1p(cap))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
