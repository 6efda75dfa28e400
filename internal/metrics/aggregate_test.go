package metrics

import (
	"testing"

	"github.com/ralphcore/ralph/internal/store"
)

func TestAggregateRunSumsWallToolAndAnomalyCounts(t *testing.T) {
	sessions := []SessionMetrics{
		{WallMs: 100, ToolMs: 30, AnomalyCount: 1, Quality: string(store.QualityOK)},
		{WallMs: 200, ToolMs: 50, AnomalyCount: 2, Quality: string(store.QualityOK)},
	}
	agg := AggregateRun(sessions, true)
	if agg.WallMs != 300 || agg.ToolMs != 80 || agg.AnomalyCount != 3 {
		t.Fatalf("agg = %+v, want summed wall/tool/anomaly", agg)
	}
	if agg.Quality != string(store.QualityOK) {
		t.Fatalf("Quality = %q, want ok", agg.Quality)
	}
}

func TestAggregateRunTakesWorstQualityAcrossSessions(t *testing.T) {
	sessions := []SessionMetrics{
		{Quality: string(store.QualityOK)},
		{Quality: string(store.QualityError)},
		{Quality: string(store.QualityPartial)},
	}
	agg := AggregateRun(sessions, true)
	if agg.Quality != string(store.QualityError) {
		t.Fatalf("Quality = %q, want error (the worst)", agg.Quality)
	}
}

func TestAggregateRunDowngradesToPartialWhenTokensIncomplete(t *testing.T) {
	sessions := []SessionMetrics{{Quality: string(store.QualityOK)}}
	agg := AggregateRun(sessions, false)
	if agg.Quality != string(store.QualityPartial) {
		t.Fatalf("Quality = %q, want partial when token accounting is incomplete", agg.Quality)
	}
}

func TestAggregateRunRecentBurstAtEndIsStickyAcrossSessions(t *testing.T) {
	sessions := []SessionMetrics{
		{RecentBurstAtEnd: false},
		{RecentBurstAtEnd: true},
		{RecentBurstAtEnd: false},
	}
	agg := AggregateRun(sessions, true)
	if !agg.RecentBurstAtEnd {
		t.Fatalf("expected RecentBurstAtEnd to stay true once any session sets it")
	}
}

func TestMaxStepWallMsPicksLongestAcrossSessions(t *testing.T) {
	sessions := []SessionMetrics{
		{StepWallMs: map[string]int64{"plan": 10, "build": 500}},
		{StepWallMs: map[string]int64{"verify": 200}},
	}
	if got := MaxStepWallMs(sessions); got != 500 {
		t.Fatalf("MaxStepWallMs() = %d, want 500", got)
	}
}

func TestMaxStepWallMsEmptySessionsIsZero(t *testing.T) {
	if got := MaxStepWallMs(nil); got != 0 {
		t.Fatalf("MaxStepWallMs(nil) = %d, want 0", got)
	}
}
