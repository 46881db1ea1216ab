package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"timelinepanel/internal/models"
)

const (
	minPNGWidth  = 320
	minPNGHeight = 160
)

// PNG draws the tracks as a points-only chart: one series per track, the
// window on the X axis and track names on the Y axis.
func PNG(model models.Model, theme Theme, w io.Writer) error {
	theme = theme.withDefaults()
	width, height := canvasSize(model)
	if width < minPNGWidth {
		width = minPNGWidth
	}
	if height < minPNGHeight {
		height = minPNGHeight
	}

	from := time.UnixMilli(model.Window.From).UTC()
	to := time.UnixMilli(model.Window.To).UTC()
	if !to.After(from) {
		to = from.Add(time.Second)
	}

	n := len(model.Tracks)
	series := make([]chart.Series, 0, n+1)
	yTicks := make([]chart.Tick, 0, n+2)
	yTicks = append(yTicks, chart.Tick{Value: 0, Label: ""})
	for i, track := range model.Tracks {
		y := float64(n - i)
		yTicks = append(yTicks, chart.Tick{Value: y, Label: track.MetricName})
		if len(track.Events) == 0 {
			continue
		}
		xs := make([]time.Time, 0, len(track.Events))
		ys := make([]float64, 0, len(track.Events))
		for _, ev := range track.Events {
			xs = append(xs, time.UnixMilli(ev.SortTime).UTC())
			ys = append(ys, y)
		}
		series = append(series, chart.TimeSeries{
			Name:    track.MetricName,
			XValues: xs,
			YValues: ys,
			Style:   pointStyle(hexColor(track.Color), model.Layout.PointSize),
		})
	}
	yTicks = append(yTicks, chart.Tick{Value: float64(n + 1), Label: ""})

	// go-chart refuses to render without a series; an invisible one keeps the
	// axes for empty panels.
	if len(series) == 0 {
		series = append(series, chart.TimeSeries{
			Name:    "empty",
			XValues: []time.Time{from, to},
			YValues: []float64{0, 0},
			Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: chart.Disabled},
		})
	}

	xTicks := make([]chart.Tick, 0, len(model.Axis))
	for _, tick := range model.Axis {
		xTicks = append(xTicks, chart.Tick{
			Value: chart.TimeToFloat64(time.UnixMilli(tick.Time).UTC()),
			Label: tick.Label,
		})
	}

	textColor := hexColor(theme.Text)
	axisStyle := chart.Style{FontColor: textColor, StrokeColor: hexColor(theme.Border)}
	ch := chart.Chart{
		Title:  model.Empty,
		Width:  int(width),
		Height: int(height),
		Background: chart.Style{
			FillColor: hexColor(theme.Background),
			Padding:   chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 16},
		},
		Canvas:     chart.Style{FillColor: hexColor(theme.Background)},
		TitleStyle: chart.Style{FontColor: hexColor(theme.MutedText)},
		XAxis: chart.XAxis{
			Style: axisStyle,
			Range: &chart.ContinuousRange{Min: chart.TimeToFloat64(from), Max: chart.TimeToFloat64(to)},
			Ticks: xTicks,
		},
		YAxis: chart.YAxis{
			Style: axisStyle,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(n + 1)},
			Ticks: yTicks,
		},
		Series: series,
	}
	if len(model.Legend) > 0 && model.Empty == "" {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render png: %w", err)
	}
	return nil
}

// pointStyle renders points only, no connecting line.
func pointStyle(col drawing.Color, size float64) chart.Style {
	if size <= 0 {
		size = 7
	}
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    size / 2,
		DotColor:    col,
	}
}

func hexColor(hex string) drawing.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 3 && len(hex) != 6 {
		return drawing.ColorFromHex(strings.TrimPrefix(models.DefaultPointColor, "#"))
	}
	return drawing.ColorFromHex(hex)
}
