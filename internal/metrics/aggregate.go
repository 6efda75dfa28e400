package metrics

import "github.com/ralphcore/ralph/internal/store"

// AggregateRun sums per-session metrics across a run and takes the worst
// session quality, downgraded to partial if token accounting is incomplete.
func AggregateRun(sessions []SessionMetrics, tokensComplete bool) store.RunMetrics {
	var agg store.RunMetrics
	var quality store.RunQuality
	maxStepWall := int64(0)

	for _, s := range sessions {
		agg.WallMs += s.WallMs
		agg.ToolMs += s.ToolMs
		agg.AnomalyCount += s.AnomalyCount
		agg.ParseErrorCount += s.ParseErrorCount
		if s.RecentBurstAtEnd {
			agg.RecentBurstAtEnd = true
		}
		quality = store.WorstQuality(quality, store.RunQuality(s.Quality))
		if v := s.MaxStepWallMs(); v > maxStepWall {
			maxStepWall = v
		}
	}

	if !tokensComplete {
		quality = store.WorstQuality(quality, store.QualityPartial)
	}
	agg.Quality = string(quality)
	return agg
}

// MaxStepWallMs returns the longest single step's wall time across all of a
// run's sessions, used as a triage input.
func MaxStepWallMs(sessions []SessionMetrics) int64 {
	var max int64
	for _, s := range sessions {
		if v := s.MaxStepWallMs(); v > max {
			max = v
		}
	}
	return max
}
