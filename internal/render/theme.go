// Package render draws a panel model as SVG or PNG.
package render

// Theme holds the colours and font used by the renderers.
type Theme struct {
	Background string  `yaml:"background" json:"background"`
	Text       string  `yaml:"text" json:"text"`
	MutedText  string  `yaml:"muted_text" json:"mutedText"`
	TrackLine  string  `yaml:"track_line" json:"trackLine"`
	Border     string  `yaml:"border" json:"border"`
	FontFamily string  `yaml:"font_family" json:"fontFamily"`
	FontSize   float64 `yaml:"font_size" json:"fontSize"`
}

// DefaultTheme is a dark theme matching the dashboard defaults.
func DefaultTheme() Theme {
	return Theme{
		Background: "#181b1f",
		Text:       "#d8d9da",
		MutedText:  "#8e8e8e",
		TrackLine:  "#2c3235",
		Border:     "#34383e",
		FontFamily: "Inter, Helvetica, Arial, sans-serif",
		FontSize:   12,
	}
}

// withDefaults fills empty theme fields from DefaultTheme.
func (t Theme) withDefaults() Theme {
	d := DefaultTheme()
	if t.Background == "" {
		t.Background = d.Background
	}
	if t.Text == "" {
		t.Text = d.Text
	}
	if t.MutedText == "" {
		t.MutedText = d.MutedText
	}
	if t.TrackLine == "" {
		t.TrackLine = d.TrackLine
	}
	if t.Border == "" {
		t.Border = d.Border
	}
	if t.FontFamily == "" {
		t.FontFamily = d.FontFamily
	}
	if t.FontSize <= 0 {
		t.FontSize = d.FontSize
	}
	return t
}
