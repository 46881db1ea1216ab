package metrics

import (
	"math"

	"timelinepanel/internal/models"
)

// ComputeTrackStats summarises each track: event count, first and last event
// time and the mean gap between consecutive events. Tracks keep their order.
func ComputeTrackStats(tracks []models.TrackData) []models.TrackStats {
	if len(tracks) == 0 {
		return nil
	}

	results := make([]models.TrackStats, 0, len(tracks))
	for _, track := range tracks {
		stats := models.TrackStats{
			MetricID: track.MetricID,
			Name:     track.MetricName,
			Events:   len(track.Events),
		}
		if n := len(track.Events); n > 0 {
			stats.FirstTime = track.Events[0].SortTime
			stats.LastTime = track.Events[n-1].SortTime
			if n > 1 {
				gap := float64(stats.LastTime-stats.FirstTime) / float64(n-1)
				stats.MeanGapMs = round2(gap)
			}
		}
		results = append(results, stats)
	}
	return results
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
