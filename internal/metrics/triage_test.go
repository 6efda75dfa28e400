package metrics

import (
	"testing"

	"github.com/ralphcore/ralph/internal/store"
)

func TestComputeTriageScoreZeroInputsYieldsZeroScoreNoReasons(t *testing.T) {
	score, reasons := ComputeTriageScore(TriageInputs{})
	if score != 0 {
		t.Fatalf("score = %v, want 0", score)
	}
	if len(reasons) != 0 {
		t.Fatalf("reasons = %v, want none", reasons)
	}
}

func TestComputeTriageScoreIsClampedToOneHundred(t *testing.T) {
	score, _ := ComputeTriageScore(TriageInputs{
		TotalTokens: 10_000_000, ToolCalls: 10_000, AnomalyCount: 10_000,
		RecentBurstAtEnd: true, WallMs: int64(100 * 60 * 60 * 1000), MaxStepWallMs: int64(100 * 60 * 1000),
		Outcome: store.OutcomeFailed,
	})
	if score != 100 {
		t.Fatalf("score = %v, want clamped to 100", score)
	}
}

func TestComputeTriageScoreRecentBurstAddsReason(t *testing.T) {
	withBurst, reasons := ComputeTriageScore(TriageInputs{RecentBurstAtEnd: true})
	withoutBurst, _ := ComputeTriageScore(TriageInputs{RecentBurstAtEnd: false})
	if withBurst <= withoutBurst {
		t.Fatalf("expected a recent burst to raise the score: with=%v without=%v", withBurst, withoutBurst)
	}
	found := false
	for _, r := range reasons {
		if r == "recent_anomaly_burst" {
			found = true
		}
	}
	if !found {
		t.Fatalf("reasons = %v, want recent_anomaly_burst", reasons)
	}
}

func TestComputeTriageScoreFailedHighTokenPenaltyOnlyAppliesOnFailureAboveThreshold(t *testing.T) {
	_, reasonsSuccess := ComputeTriageScore(TriageInputs{TotalTokens: 100_000, Outcome: store.OutcomeSuccess})
	for _, r := range reasonsSuccess {
		if r == "failed_with_high_tokens" {
			t.Fatalf("a successful run with high tokens should not get the failed-high-token reason")
		}
	}

	_, reasonsFailed := ComputeTriageScore(TriageInputs{TotalTokens: 100_000, Outcome: store.OutcomeFailed})
	found := false
	for _, r := range reasonsFailed {
		if r == "failed_with_high_tokens" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected failed_with_high_tokens when a failed run burns tokens above threshold, got %v", reasonsFailed)
	}
}

func TestComputeTriageScoreHighTokenUsageReason(t *testing.T) {
	_, reasons := ComputeTriageScore(TriageInputs{TotalTokens: 200_000})
	found := false
	for _, r := range reasons {
		if r == "high_token_usage" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected high_token_usage at the token cap, got %v", reasons)
	}
}
