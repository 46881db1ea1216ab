package timeline

import "timelinepanel/internal/models"

// Groups is an insertion-ordered partition of events by metric name.
type Groups struct {
	order    []string
	byMetric map[string][]models.TimelineEvent
}

// GroupByMetric partitions events by their Metric field. Keys keep the order of
// first occurrence and every group keeps the relative order of the input.
func GroupByMetric(events []models.TimelineEvent) *Groups {
	g := &Groups{byMetric: make(map[string][]models.TimelineEvent)}
	for _, ev := range events {
		if _, ok := g.byMetric[ev.Metric]; !ok {
			g.order = append(g.order, ev.Metric)
		}
		g.byMetric[ev.Metric] = append(g.byMetric[ev.Metric], ev)
	}
	return g
}

// Keys returns metric names in first-occurrence order.
func (g *Groups) Keys() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Events returns the events of one metric, nil if there are none.
func (g *Groups) Events(metric string) []models.TimelineEvent {
	return g.byMetric[metric]
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	return len(g.order)
}

// BuildTracks returns one track per configured metric in configuration order.
// Metrics without events still get an (empty) track.
func BuildTracks(metrics []models.MetricConfig, groups *Groups) []models.TrackData {
	tracks := make([]models.TrackData, 0, len(metrics))
	for _, m := range metrics {
		name := m.TrackName()
		events := groups.Events(name)
		if events == nil {
			events = []models.TimelineEvent{}
		}
		tracks = append(tracks, models.TrackData{
			MetricID:   m.ID,
			MetricName: name,
			Color:      m.Color(),
			Events:     events,
		})
	}
	return tracks
}
