package models

// Frame is one unit of tabular data returned for a query.
type Frame struct {
	RefID  string  `json:"refId" yaml:"ref_id"`
	Name   string  `json:"name,omitempty" yaml:"name,omitempty"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Field is a named column of a frame. Values are aligned by row index across the
// frame's fields.
type Field struct {
	Name   string            `json:"name" yaml:"name"`
	Type   string            `json:"type,omitempty" yaml:"type,omitempty"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Config FieldConfig       `json:"config,omitempty" yaml:"config,omitempty"`
	Values []any             `json:"values" yaml:"values"`
}

// FieldConfig carries display metadata supplied by the data source.
type FieldConfig struct {
	DisplayNameFromDS string `json:"displayNameFromDS,omitempty" yaml:"display_name_from_ds,omitempty"`
}

// MetricConfig binds a timeline track to a source query and the field holding
// the event timestamp.
type MetricConfig struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	RefID      string `json:"refId" yaml:"ref_id"`
	DateField  string `json:"dateField" yaml:"date_field"`
	PointColor string `json:"pointColor,omitempty" yaml:"point_color,omitempty"`
}

// TrackName returns the explicit name, falling back to the refId.
func (m MetricConfig) TrackName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.RefID
}

// DefaultPointColor is used when a metric has no colour assigned.
const DefaultPointColor = "#FF6B6B"

// Color returns the configured point colour or the default one.
func (m MetricConfig) Color() string {
	if m.PointColor != "" {
		return m.PointColor
	}
	return DefaultPointColor
}

// TimeWindow is an inclusive range of epoch milliseconds.
type TimeWindow struct {
	From int64 `json:"from" yaml:"from"`
	To   int64 `json:"to" yaml:"to"`
}

// Contains reports whether ts lies inside the window, both ends included.
func (w TimeWindow) Contains(ts int64) bool {
	return ts >= w.From && ts <= w.To
}

// Span returns the window length in milliseconds.
func (w TimeWindow) Span() int64 {
	return w.To - w.From
}
