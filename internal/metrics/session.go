package metrics

import "github.com/ralphcore/ralph/internal/tunables"

// SessionMetrics holds the computed metrics for one session's event stream.
type SessionMetrics struct {
	SessionID        string
	WallMs           int64
	ToolMs           int64
	StepWallMs       map[string]int64
	AnomalyCount     int
	RecentBurstAtEnd bool
	ParseErrorCount  int
	Quality          string
}

// ComputeSessionMetrics turns a parsed event stream into SessionMetrics.
// Step and tool time are computed in array order (file order), per the
// ordering guarantee that only first-seen timestamps matter for wall/step
// time; aggregation of everything else is order-independent.
func ComputeSessionMetrics(sessionID string, events []Event, parseErrorCount int, quality string) SessionMetrics {
	m := SessionMetrics{SessionID: sessionID, StepWallMs: map[string]int64{}, ParseErrorCount: parseErrorCount, Quality: quality}

	var firstRunStartTs float64
	haveFirstRunStart := false
	var lastRunEndTs float64
	haveRunEnd := false
	var lastSeenTs float64
	haveLastSeen := false

	toolStarts := map[string]float64{}

	type stepBoundary struct {
		name string
		ts   float64
	}
	var steps []stepBoundary

	var anomalyTimes []float64

	for _, ev := range events {
		if ev.HasTs {
			lastSeenTs = ev.Ts
			haveLastSeen = true
		}
		switch ev.Type {
		case EventRunStart:
			if ev.HasTs && !haveFirstRunStart {
				firstRunStartTs = ev.Ts
				haveFirstRunStart = true
			}
		case EventRunEnd:
			if ev.HasTs {
				lastRunEndTs = ev.Ts
				haveRunEnd = true
			}
		case EventStepStart:
			if ev.HasTs {
				name := ev.Step
				if name == "" {
					name = ev.Title
				}
				steps = append(steps, stepBoundary{name: name, ts: ev.Ts})
			}
		case EventToolStart:
			if ev.HasTs && ev.CallID != "" {
				toolStarts[ev.CallID] = ev.Ts
			}
		case EventToolEnd:
			if ev.HasTs && ev.CallID != "" {
				if start, ok := toolStarts[ev.CallID]; ok {
					m.ToolMs += int64(ev.Ts - start)
					delete(toolStarts, ev.CallID)
				}
			}
		case EventAnomaly:
			m.AnomalyCount++
			if ev.HasTs {
				anomalyTimes = append(anomalyTimes, ev.Ts)
			}
		}
	}

	endTs := lastSeenTs
	haveEnd := haveLastSeen
	if haveRunEnd {
		endTs = lastRunEndTs
		haveEnd = true
	}
	if haveFirstRunStart && haveEnd {
		m.WallMs = int64(endTs - firstRunStartTs)
	}

	for i, s := range steps {
		var stepEnd float64
		if i+1 < len(steps) {
			stepEnd = steps[i+1].ts
		} else if haveEnd {
			stepEnd = endTs
		} else {
			continue
		}
		if s.name == "" {
			continue
		}
		m.StepWallMs[s.name] += int64(stepEnd - s.ts)
	}

	if haveEnd {
		windowMs := float64(tunables.RecentAnomalyBurstWindow.Milliseconds())
		recent := 0
		for _, t := range anomalyTimes {
			if endTs-t <= windowMs {
				recent++
			}
		}
		m.RecentBurstAtEnd = recent >= tunables.RecentAnomalyBurstThreshold
	}

	return m
}

// MaxStepWallMs returns the longest single step's wall time.
func (m SessionMetrics) MaxStepWallMs() int64 {
	var max int64
	for _, v := range m.StepWallMs {
		if v > max {
			max = v
		}
	}
	return max
}
