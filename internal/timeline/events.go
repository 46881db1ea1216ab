// Package timeline turns query frames into per-metric event tracks.
package timeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"timelinepanel/internal/logging"
	"timelinepanel/internal/models"
	"timelinepanel/internal/timestamp"
)

// eventNamespace seeds the name-based ids of events so that identical input
// always yields identical ids.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("timelinepanel/event"))

const unnamedField = "unnamed"

// Extract produces the time-filtered events of all configured metrics, sorted
// ascending by SortTime. Metrics without refId or dateField, frames without the
// expected field or label and unparseable timestamps are skipped with a log line.
func Extract(frames []models.Frame, metrics []models.MetricConfig, window models.TimeWindow) []models.TimelineEvent {
	if len(metrics) == 0 {
		return nil
	}

	events := make([]models.TimelineEvent, 0)
	for mi, metric := range metrics {
		if metric.RefID == "" || metric.DateField == "" {
			logging.Warnf("skipping metric %q: missing refId or dateField", metric.ID)
			continue
		}
		for fi, frame := range frames {
			if frame.RefID != metric.RefID {
				continue
			}
			src := source{metric: metric, metricIndex: mi, frameIndex: fi, window: window}
			events = src.collect(frame, events)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].SortTime < events[j].SortTime
	})
	return events
}

type source struct {
	metric      models.MetricConfig
	metricIndex int
	frameIndex  int
	window      models.TimeWindow
}

func (s source) collect(frame models.Frame, out []models.TimelineEvent) []models.TimelineEvent {
	// A column named after dateField takes precedence over a label of that name.
	if col := columnIndex(frame, s.metric.DateField); col >= 0 {
		return s.collectColumn(frame, col, out)
	}
	return s.collectLabel(frame, out)
}

func (s source) collectColumn(frame models.Frame, col int, out []models.TimelineEvent) []models.TimelineEvent {
	displayName := s.metric.RefID
	for _, f := range frame.Fields {
		if f.Name != s.metric.DateField {
			displayName = ResolveDisplayName(f)
			break
		}
	}

	for row, raw := range frame.Fields[col].Values {
		ts, err := timestamp.Parse(raw)
		if err != nil {
			logging.Debugf("metric %q refId %s row %d: %v", s.metric.ID, s.metric.RefID, row, err)
			continue
		}
		if !s.window.Contains(ts) {
			continue
		}
		out = append(out, s.event(col, row, ts, timestamp.Display(raw), displayName))
	}
	return out
}

func (s source) collectLabel(frame models.Frame, out []models.TimelineEvent) []models.TimelineEvent {
	for idx, f := range frame.Fields {
		text := f.Labels[s.metric.DateField]
		if text == "" {
			continue
		}
		ts, err := timestamp.Parse(text)
		if err != nil {
			logging.Warnf("metric %q refId %s: invalid date %q: %v", s.metric.ID, s.metric.RefID, text, err)
			return out
		}
		if !s.window.Contains(ts) {
			return out
		}
		return append(out, s.event(idx, 0, ts, text, ResolveDisplayName(f)))
	}
	logging.Debugf("metric %q refId %s: frame %d has neither column nor label %q",
		s.metric.ID, s.metric.RefID, s.frameIndex, s.metric.DateField)
	return out
}

func (s source) event(field, row int, ts int64, displayTime, displayName string) models.TimelineEvent {
	key := fmt.Sprintf("%s|%d|%s|%d|%d|%d", s.metric.ID, s.metricIndex, s.metric.RefID, s.frameIndex, field, row)
	return models.TimelineEvent{
		ID:          uuid.NewSHA1(eventNamespace, []byte(key)).String(),
		MetricID:    s.metric.ID,
		SortTime:    ts,
		DisplayTime: displayTime,
		Metric:      s.metric.TrackName(),
		DisplayName: displayName,
		Color:       s.metric.Color(),
	}
}

func columnIndex(frame models.Frame, name string) int {
	for i, f := range frame.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// ResolveDisplayName picks the human readable name of a field: the data source
// display name, then its labels as {k="v", ...} with keys sorted, then the field
// name, then "unnamed".
func ResolveDisplayName(f models.Field) string {
	if f.Config.DisplayNameFromDS != "" {
		return f.Config.DisplayNameFromDS
	}
	if len(f.Labels) > 0 {
		return "{" + FormatLabels(f.Labels) + "}"
	}
	if f.Name != "" {
		return f.Name
	}
	return unnamedField
}

// FormatLabels joins labels as key="value" pairs in key order.
func FormatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+`="`+labels[k]+`"`)
	}
	return strings.Join(parts, ", ")
}
