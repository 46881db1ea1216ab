package models

// TimelineEvent is a single marker on a track. It is derived on every render and
// never mutated.
type TimelineEvent struct {
	ID          string `json:"id"`
	MetricID    string `json:"metricId"`
	SortTime    int64  `json:"sortTime"`
	DisplayTime string `json:"displayTime"`
	Metric      string `json:"metric"`
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
}

// TrackData holds the events of one visible metric in ascending time order.
type TrackData struct {
	MetricID   string          `json:"metricId"`
	MetricName string          `json:"metricName"`
	Color      string          `json:"color"`
	Events     []TimelineEvent `json:"events"`
}

// LayoutDimensions is the geometry derived from the viewport and options.
type LayoutDimensions struct {
	LabelWidth      float64 `json:"labelWidth"`
	PointSize       float64 `json:"pointSize"`
	TrackHeight     float64 `json:"trackHeight"`
	TimeLabelsCount int     `json:"timeLabelsCount"`
}

// Marker is an event positioned along its track.
type Marker struct {
	Event       TimelineEvent `json:"event"`
	LeftPercent float64       `json:"leftPercent"`
	TooltipTime string        `json:"tooltipTime"`
}

// Track is a TrackData together with positioned markers.
type Track struct {
	TrackData
	Markers []Marker `json:"markers"`
	Border  bool     `json:"border"`
}

// AxisTick is one time label on the axis.
type AxisTick struct {
	Time    int64   `json:"time"`
	Percent float64 `json:"percent"`
	Label   string  `json:"label"`
}

// LegendEntry describes one metric in the legend.
type LegendEntry struct {
	MetricID string `json:"metricId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
}

// TrackStats summarises the events of one track.
type TrackStats struct {
	MetricID  string  `json:"metricId"`
	Name      string  `json:"name"`
	Events    int     `json:"events"`
	FirstTime int64   `json:"firstTime,omitempty"`
	LastTime  int64   `json:"lastTime,omitempty"`
	MeanGapMs float64 `json:"meanGapMs"`
}

// Model is the derived view handed to the presentation layer.
type Model struct {
	Width   float64          `json:"width"`
	Height  float64          `json:"height"`
	Window  TimeWindow       `json:"window"`
	Options DisplayOptions   `json:"options"`
	Layout  LayoutDimensions `json:"layout"`
	Tracks  []Track          `json:"tracks"`
	Axis    []AxisTick       `json:"axis,omitempty"`
	Legend  []LegendEntry    `json:"legend,omitempty"`
	Stats   []TrackStats     `json:"stats"`
	Events  int              `json:"events"`
	Empty   string           `json:"empty,omitempty"`
}
