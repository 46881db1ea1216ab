package models

// PanelSnapshot is the full input of one panel as pushed by the host.
type PanelSnapshot struct {
	ID      string         `json:"id" yaml:"id"`
	Title   string         `json:"title,omitempty" yaml:"title,omitempty"`
	Frames  []Frame        `json:"frames" yaml:"frames,omitempty"`
	Metrics []MetricConfig `json:"metrics" yaml:"metrics"`
	Options DisplayOptions `json:"options" yaml:"options"`
	Window  *TimeWindow    `json:"window,omitempty" yaml:"window,omitempty"`
	// Range is a relative window such as "6h", resolved against the current time
	// when Window is unset.
	Range  string  `json:"range,omitempty" yaml:"range,omitempty"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}
