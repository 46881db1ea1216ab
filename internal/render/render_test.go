package render

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"testing"
	"time"

	"timelinepanel/internal/layout"
	"timelinepanel/internal/models"
	"timelinepanel/internal/panel"
)

func sampleModel(t *testing.T, opts models.DisplayOptions) models.Model {
	t.Helper()
	frames := []models.Frame{
		{RefID: "A", Fields: []models.Field{
			{Name: "time", Values: []any{"2024-03-15T10:00:00Z", "2024-03-15T11:00:00Z"}},
			{Name: "service", Values: []any{"api", "worker"}},
		}},
		{RefID: "B", Fields: []models.Field{
			{Name: "time", Values: []any{"2024-03-15T10:30:00Z"}},
			{Name: "value", Config: models.FieldConfig{DisplayNameFromDS: "db <primary>"}, Values: []any{1.0}},
		}},
	}
	metrics := []models.MetricConfig{
		{ID: "m1", Name: "Deploys & restarts", RefID: "A", DateField: "time", PointColor: "#4ECDC4"},
		{ID: "m2", Name: "Backups", RefID: "B", DateField: "time", PointColor: "#FFEAA7"},
	}
	from := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	return panel.Build(panel.Input{
		Frames:  frames,
		Metrics: metrics,
		Window:  models.TimeWindow{From: from.UnixMilli(), To: from.Add(3 * time.Hour).UnixMilli()},
		Options: opts,
		Width:   800,
		Height:  300,
		Now:     from,
	})
}

func TestSVGDrawsTracksAndMarkers(t *testing.T) {
	opts := models.DefaultDisplayOptions()
	opts.ShowLegend = true
	opts.ShowBottomBorder = true
	out := string(SVG(sampleModel(t, opts), DefaultTheme()))

	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(out, "</svg>\n") {
		t.Fatalf("not a complete document:\n%s", out)
	}
	if got := strings.Count(out, `class="track"`); got != 2 {
		t.Errorf("expected 2 tracks, got %d", got)
	}
	if got := strings.Count(out, `class="marker"`); got != 3 {
		t.Errorf("expected 3 markers, got %d", got)
	}
	if !strings.Contains(out, "Deploys &amp; restarts") {
		t.Error("metric label should be escaped")
	}
	if !strings.Contains(out, "db &lt;primary&gt;") {
		t.Error("tooltip title should carry the escaped display name")
	}
	if !strings.Contains(out, `fill-opacity="0.3"`) {
		t.Error("glow expected when enabled")
	}
	if got := strings.Count(out, `class="legend-text"`); got != 2 {
		t.Errorf("expected 2 legend entries, got %d", got)
	}
	if got := strings.Count(out, `class="time-label"`); got == 0 {
		t.Error("expected time labels")
	}
	// Only the first of two tracks gets a bottom border.
	if got := strings.Count(out, `stroke="`+DefaultTheme().Border+`"`); got != 1 {
		t.Errorf("expected one border, got %d", got)
	}
}

func TestSVGHonoursDisabledOptions(t *testing.T) {
	opts := models.DefaultDisplayOptions()
	opts.ShowPointGlow = false
	opts.ShowTimeLabels = false
	opts.ShowMetricLabels = false
	out := string(SVG(sampleModel(t, opts), Theme{}))

	for _, unwanted := range []string{`fill-opacity="0.3"`, `class="time-label"`, `class="metric-label"`, `class="legend-text"`} {
		if strings.Contains(out, unwanted) {
			t.Errorf("unexpected %s in output", unwanted)
		}
	}
}

func TestSVGGrowsForManyTracks(t *testing.T) {
	var metrics []models.MetricConfig
	var frames []models.Frame
	for i := 0; i < 10; i++ {
		ref := fmt.Sprintf("R%d", i)
		frames = append(frames, models.Frame{RefID: ref, Fields: []models.Field{
			{Name: "time", Values: []any{float64(2000)}},
		}})
		metrics = append(metrics, models.MetricConfig{ID: ref, RefID: ref, DateField: "time"})
	}
	model := panel.Build(panel.Input{
		Frames:  frames,
		Metrics: metrics,
		Window:  models.TimeWindow{From: 0, To: 4000},
		Options: models.DefaultDisplayOptions(),
		Width:   600,
		Height:  200,
	})
	out := string(SVG(model, DefaultTheme()))

	want := float64(len(metrics))*model.Layout.TrackHeight + layout.TimeLabelsHeight
	if want <= model.Height {
		t.Fatalf("test needs tracks taller than the viewport: %v", want)
	}
	if !strings.Contains(out, fmt.Sprintf(`height="%.2f"`, want)) {
		t.Fatalf("svg height should grow to %.2f:\n%s", want, out[:200])
	}
	lastCenter := 9.5 * model.Layout.TrackHeight
	if !strings.Contains(out, fmt.Sprintf(`cy="%.2f"`, lastCenter)) {
		t.Fatalf("last marker should sit at cy=%.2f", lastCenter)
	}
	axisY := want - layout.TimeLabelsHeight/2
	if !strings.Contains(out, fmt.Sprintf(`y="%.2f" text-anchor="start"`, axisY)) {
		t.Fatalf("axis should sit below the last track at y=%.2f", axisY)
	}
	if axisY <= 10*model.Layout.TrackHeight {
		t.Fatalf("axis y %.2f overlaps the tracks", axisY)
	}
}

func TestSVGEmptyState(t *testing.T) {
	model := panel.Build(panel.Input{Width: 400, Height: 200, Options: models.DefaultDisplayOptions()})
	out := string(SVG(model, DefaultTheme()))
	if !strings.Contains(out, panel.NoMetricsMessage) {
		t.Fatalf("empty message missing:\n%s", out)
	}
	if strings.Contains(out, `class="track"`) {
		t.Fatal("no tracks expected")
	}
}

func TestWrapLabel(t *testing.T) {
	lines := wrapLabel("disk usage on primary database", 10, 2)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", lines)
	}
	if lines[0] != "disk usage" {
		t.Errorf("first line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "…") {
		t.Errorf("overflow should be truncated: %q", lines[1])
	}
}

func TestPNG(t *testing.T) {
	cases := []struct {
		name  string
		model models.Model
	}{
		{"tracks", sampleModel(t, models.DefaultDisplayOptions())},
		{"empty", panel.Build(panel.Input{Options: models.DefaultDisplayOptions()})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := PNG(tc.model, DefaultTheme(), &buf); err != nil {
				t.Fatalf("PNG: %v", err)
			}
			img, err := png.Decode(&buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Bounds().Dx() < minPNGWidth || img.Bounds().Dy() < minPNGHeight {
				t.Fatalf("image too small: %v", img.Bounds())
			}
		})
	}
}

func TestHexColorFallback(t *testing.T) {
	if hexColor("nonsense") != hexColor(models.DefaultPointColor) {
		t.Fatal("invalid colours fall back to the default point colour")
	}
	if hexColor("#FF0000").R != 255 {
		t.Fatal("red channel")
	}
}
