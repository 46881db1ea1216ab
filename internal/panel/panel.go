// Package panel runs the whole timeline pipeline: extraction, grouping, layout
// and axis/legend derivation.
package panel

import (
	"time"

	"timelinepanel/internal/layout"
	"timelinepanel/internal/metrics"
	"timelinepanel/internal/models"
	"timelinepanel/internal/timeline"
)

// Empty state messages shown instead of tracks.
const (
	NoMetricsMessage = "Please add metrics in panel options"
	NoDataMessage    = "No data found for configured metrics"
)

// Input is an immutable snapshot of everything a render depends on.
type Input struct {
	Frames  []models.Frame
	Metrics []models.MetricConfig
	Window  models.TimeWindow
	Options models.DisplayOptions
	Width   float64
	Height  float64
	// Now decides whether axis labels need the year.
	Now      time.Time
	Location *time.Location
}

// Build derives the presentation model. It never fails: broken configuration
// and data degrade to fewer events or an empty-state message.
func Build(in Input) models.Model {
	model := models.Model{
		Width:   in.Width,
		Height:  in.Height,
		Window:  in.Window,
		Options: in.Options,
		Layout:  layout.Compute(in.Width, in.Height, len(in.Metrics), in.Options),
		Tracks:  []models.Track{},
	}
	if len(in.Metrics) == 0 {
		model.Empty = NoMetricsMessage
		return model
	}

	events := timeline.Extract(in.Frames, in.Metrics, in.Window)
	model.Events = len(events)

	tracks := timeline.BuildTracks(in.Metrics, timeline.GroupByMetric(events))
	model.Stats = metrics.ComputeTrackStats(tracks)

	if in.Options.ShowLegend {
		model.Legend = Legend(in.Metrics)
	}
	if len(events) == 0 {
		model.Empty = NoDataMessage
		return model
	}

	start, span := in.Window.From, in.Window.Span()
	for i, td := range tracks {
		track := models.Track{
			TrackData: td,
			Markers:   make([]models.Marker, 0, len(td.Events)),
			Border:    in.Options.ShowBottomBorder && i < len(tracks)-1,
		}
		for _, ev := range td.Events {
			track.Markers = append(track.Markers, models.Marker{
				Event:       ev,
				LeftPercent: layout.Percent(ev.SortTime, start, span),
				TooltipTime: layout.FormatTooltip(ev.SortTime, span, in.Now, in.Location),
			})
		}
		model.Tracks = append(model.Tracks, track)
	}

	if in.Options.ShowTimeLabels {
		for _, ts := range layout.Ticks(start, span, model.Layout.TimeLabelsCount) {
			model.Axis = append(model.Axis, models.AxisTick{
				Time:    ts,
				Percent: layout.Percent(ts, start, span),
				Label:   layout.FormatTick(ts, span, in.Now, in.Location),
			})
		}
	}
	return model
}

// Legend lists every configured metric with its colour.
func Legend(metricsCfg []models.MetricConfig) []models.LegendEntry {
	out := make([]models.LegendEntry, 0, len(metricsCfg))
	for _, m := range metricsCfg {
		out = append(out, models.LegendEntry{MetricID: m.ID, Name: m.TrackName(), Color: m.Color()})
	}
	return out
}

// ResolveWindow returns the explicit window of a snapshot or the relative range
// ending at now. A missing or invalid range yields the last six hours.
func ResolveWindow(snap models.PanelSnapshot, now time.Time) models.TimeWindow {
	if snap.Window != nil {
		return *snap.Window
	}
	d, err := time.ParseDuration(snap.Range)
	if err != nil || d <= 0 {
		d = DefaultRange
	}
	return models.TimeWindow{From: now.Add(-d).UnixMilli(), To: now.UnixMilli()}
}

// DefaultRange is used for snapshots without a window or range.
const DefaultRange = 6 * time.Hour

// FromSnapshot assembles the pipeline input of a stored panel.
func FromSnapshot(snap models.PanelSnapshot, now time.Time, loc *time.Location) Input {
	return Input{
		Frames:   snap.Frames,
		Metrics:  snap.Metrics,
		Window:   ResolveWindow(snap, now),
		Options:  snap.Options,
		Width:    snap.Width,
		Height:   snap.Height,
		Now:      now,
		Location: loc,
	}
}
