package models

// Density controls how many time labels are drawn on the axis.
type Density string

const (
	DensityLow    Density = "low"
	DensityMedium Density = "medium"
	DensityHigh   Density = "high"
)

// DisplayOptions are the panel options recognised by the layout engine and the
// renderers.
type DisplayOptions struct {
	ShowMetricLabels  bool    `json:"showMetricLabels" yaml:"show_metric_labels"`
	AllowLineWrapping bool    `json:"allowLineWrapping" yaml:"allow_line_wrapping"`
	ShowTimeLabels    bool    `json:"showTimeLabels" yaml:"show_time_labels"`
	ShowLegend        bool    `json:"showLegend" yaml:"show_legend"`
	ShowBottomBorder  bool    `json:"showBottomBorder" yaml:"show_bottom_border"`
	ShowPointGlow     bool    `json:"showPointGlow" yaml:"show_point_glow"`
	TimeLabelDensity  Density `json:"timeLabelDensity" yaml:"time_label_density"`
	MaxLabelWidth     int     `json:"maxLabelWidth" yaml:"max_label_width"`
	MinTrackHeight    int     `json:"minTrackHeight" yaml:"min_track_height"`
}

// DefaultDisplayOptions returns the options a freshly created panel starts with.
// Decoders unmarshal over this value so that missing keys keep their defaults.
func DefaultDisplayOptions() DisplayOptions {
	return DisplayOptions{
		ShowMetricLabels: true,
		ShowTimeLabels:   true,
		ShowPointGlow:    true,
		TimeLabelDensity: DensityMedium,
		MaxLabelWidth:    90,
		MinTrackHeight:   32,
	}
}
