package metrics

import "testing"

func TestComputeSessionMetricsWallAndToolTime(t *testing.T) {
	events := []Event{
		{Type: EventRunStart, Ts: 0, HasTs: true},
		{Type: EventStepStart, Step: "build", Ts: 0, HasTs: true},
		{Type: EventToolStart, CallID: "c1", Ts: 10, HasTs: true},
		{Type: EventToolEnd, CallID: "c1", Ts: 40, HasTs: true},
		{Type: EventStepStart, Step: "test", Ts: 50, HasTs: true},
		{Type: EventRunEnd, Ts: 100, HasTs: true},
	}

	m := ComputeSessionMetrics("sess-1", events, 0, "ok")

	if m.WallMs != 100 {
		t.Fatalf("WallMs = %d, want 100", m.WallMs)
	}
	if m.ToolMs != 30 {
		t.Fatalf("ToolMs = %d, want 30", m.ToolMs)
	}
	if m.StepWallMs["build"] != 50 {
		t.Fatalf("StepWallMs[build] = %d, want 50", m.StepWallMs["build"])
	}
	if m.StepWallMs["test"] != 50 {
		t.Fatalf("StepWallMs[test] = %d, want 50", m.StepWallMs["test"])
	}
	if m.MaxStepWallMs() != 50 {
		t.Fatalf("MaxStepWallMs() = %d, want 50", m.MaxStepWallMs())
	}
}

func TestComputeSessionMetricsUnmatchedToolStartIsIgnored(t *testing.T) {
	events := []Event{
		{Type: EventRunStart, Ts: 0, HasTs: true},
		{Type: EventToolStart, CallID: "orphan", Ts: 5, HasTs: true},
		{Type: EventRunEnd, Ts: 10, HasTs: true},
	}

	m := ComputeSessionMetrics("sess-2", events, 0, "ok")
	if m.ToolMs != 0 {
		t.Fatalf("ToolMs = %d, want 0 for unmatched tool-start", m.ToolMs)
	}
}

func TestComputeSessionMetricsRecentBurstAtEnd(t *testing.T) {
	events := []Event{
		{Type: EventRunStart, Ts: 0, HasTs: true},
	}
	for i := 0; i < 20; i++ {
		events = append(events, Event{Type: EventAnomaly, Ts: float64(5000 + i), HasTs: true})
	}
	events = append(events, Event{Type: EventRunEnd, Ts: 10000, HasTs: true})

	m := ComputeSessionMetrics("sess-3", events, 0, "ok")
	if m.AnomalyCount != 20 {
		t.Fatalf("AnomalyCount = %d, want 20", m.AnomalyCount)
	}
	if !m.RecentBurstAtEnd {
		t.Fatalf("expected RecentBurstAtEnd=true with 20 anomalies inside the trailing window")
	}
}

func TestComputeSessionMetricsNoBurstWhenAnomaliesAreEarly(t *testing.T) {
	events := []Event{
		{Type: EventRunStart, Ts: 0, HasTs: true},
	}
	for i := 0; i < 20; i++ {
		events = append(events, Event{Type: EventAnomaly, Ts: float64(i), HasTs: true})
	}
	events = append(events, Event{Type: EventRunEnd, Ts: 50000, HasTs: true})

	m := ComputeSessionMetrics("sess-4", events, 0, "ok")
	if m.RecentBurstAtEnd {
		t.Fatalf("expected RecentBurstAtEnd=false when all anomalies are far from the end")
	}
}

func TestComputeSessionMetricsNoTimestampsLeavesWallZero(t *testing.T) {
	events := []Event{
		{Type: EventStepStart, Step: "build"},
		{Type: EventRunEnd, Success: true, HasSuccess: true},
	}
	m := ComputeSessionMetrics("sess-5", events, 3, "partial")
	if m.WallMs != 0 {
		t.Fatalf("WallMs = %d, want 0 when no event carries a timestamp", m.WallMs)
	}
	if m.ParseErrorCount != 3 {
		t.Fatalf("ParseErrorCount = %d, want 3", m.ParseErrorCount)
	}
}
