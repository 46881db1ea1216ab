package render

import (
	"fmt"
	"math"
	"strings"

	"timelinepanel/internal/layout"
	"timelinepanel/internal/models"
)

const (
	legendHeight   = 24
	legendSwatch   = 10
	legendGap      = 16
	labelPadding   = 8
	fallbackWidth  = 600
	fallbackHeight = 200
)

// SVG draws the model as a standalone SVG document.
func SVG(model models.Model, theme Theme) []byte {
	theme = theme.withDefaults()
	width, height := canvasSize(model)
	if model.Empty == "" {
		// Tracks never shrink below their minimum height; grow the canvas instead
		// of drawing past its bottom edge.
		if content := float64(len(model.Tracks))*model.Layout.TrackHeight + layout.TimeLabelsHeight; content > height {
			height = content
		}
	}
	total := height
	if len(model.Legend) > 0 {
		total += legendHeight
	}

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="%s" height="%s" viewBox="0 0 %s %s" xmlns="http://www.w3.org/2000/svg">
<rect width="100%%" height="100%%" fill="%s"/>
<defs>
<style>
.metric-label { font-family: %s; font-size: %spx; fill: %s; }
.time-label { font-family: %s; font-size: %spx; fill: %s; }
.legend-text { font-family: %s; font-size: %spx; fill: %s; }
.empty-text { font-family: %s; font-size: %spx; fill: %s; }
</style>
</defs>
`, num(width), num(total), num(width), num(total), theme.Background,
		theme.FontFamily, num(theme.FontSize), theme.Text,
		theme.FontFamily, num(theme.FontSize-1), theme.MutedText,
		theme.FontFamily, num(theme.FontSize-1), theme.Text,
		theme.FontFamily, num(theme.FontSize+2), theme.MutedText))

	if model.Empty != "" {
		svg.WriteString(fmt.Sprintf(`<text class="empty-text" x="%s" y="%s" text-anchor="middle">%s</text>`+"\n",
			num(width/2), num(height/2), escapeXML(model.Empty)))
		drawLegend(&svg, model.Legend, height, theme)
		svg.WriteString("</svg>\n")
		return []byte(svg.String())
	}

	dims := model.Layout
	labelWidth := 0.0
	if model.Options.ShowMetricLabels {
		labelWidth = dims.LabelWidth
	}
	plotX := labelWidth
	plotWidth := math.Max(width-labelWidth, 1)

	for i, track := range model.Tracks {
		top := float64(i) * dims.TrackHeight
		mid := top + dims.TrackHeight/2
		svg.WriteString(fmt.Sprintf(`<g class="track" data-metric-id="%s">`+"\n", escapeXML(track.MetricID)))
		if model.Options.ShowMetricLabels {
			drawTrackLabel(&svg, track.MetricName, labelWidth, mid, model.Options.AllowLineWrapping, theme)
		}
		svg.WriteString(fmt.Sprintf(`<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1"/>`+"\n",
			num(plotX), num(mid), num(plotX+plotWidth), num(mid), theme.TrackLine))
		for _, marker := range track.Markers {
			cx := plotX + marker.LeftPercent/100*plotWidth
			drawMarker(&svg, marker, cx, mid, dims.PointSize, model.Options.ShowPointGlow)
		}
		if track.Border {
			bottom := top + dims.TrackHeight
			svg.WriteString(fmt.Sprintf(`<line x1="0" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="1"/>`+"\n",
				num(bottom), num(width), num(bottom), theme.Border))
		}
		svg.WriteString("</g>\n")
	}

	if len(model.Axis) > 0 {
		y := height - layout.TimeLabelsHeight/2
		for i, tick := range model.Axis {
			anchor := "middle"
			switch i {
			case 0:
				anchor = "start"
			case len(model.Axis) - 1:
				anchor = "end"
			}
			x := plotX + tick.Percent/100*plotWidth
			svg.WriteString(fmt.Sprintf(`<text class="time-label" x="%s" y="%s" text-anchor="%s" dominant-baseline="middle">%s</text>`+"\n",
				num(x), num(y), anchor, escapeXML(tick.Label)))
		}
	}

	drawLegend(&svg, model.Legend, height, theme)
	svg.WriteString("</svg>\n")
	return []byte(svg.String())
}

func drawTrackLabel(svg *strings.Builder, name string, width, mid float64, wrap bool, theme Theme) {
	maxChars := int((width - labelPadding) / (theme.FontSize * 0.6))
	if maxChars < 1 {
		maxChars = 1
	}
	lines := []string{name}
	if wrap {
		lines = wrapLabel(name, maxChars, 2)
	} else if len([]rune(name)) > maxChars {
		lines = []string{truncate(name, maxChars)}
	}
	first := mid - float64(len(lines)-1)*layout.LineHeight/2
	svg.WriteString(fmt.Sprintf(`<text class="metric-label" x="%s" y="%s" dominant-baseline="middle"><title>%s</title>`,
		num(labelPadding/2), num(first), escapeXML(name)))
	for i, line := range lines {
		svg.WriteString(fmt.Sprintf(`<tspan x="%s" y="%s">%s</tspan>`,
			num(labelPadding/2), num(first+float64(i)*layout.LineHeight), escapeXML(line)))
	}
	svg.WriteString("</text>\n")
}

func drawMarker(svg *strings.Builder, marker models.Marker, cx, cy, size float64, glow bool) {
	r := size / 2
	ev := marker.Event
	svg.WriteString(fmt.Sprintf(`<g class="marker" data-event-id="%s">`, escapeXML(ev.ID)))
	if glow {
		svg.WriteString(fmt.Sprintf(`<circle cx="%s" cy="%s" r="%s" fill="%s" fill-opacity="0.3"/>`,
			num(cx), num(cy), num(r*2), escapeXML(ev.Color)))
	}
	svg.WriteString(fmt.Sprintf(`<circle cx="%s" cy="%s" r="%s" fill="%s"><title>%s</title></circle>`,
		num(cx), num(cy), num(r), escapeXML(ev.Color), escapeXML(tooltipText(marker))))
	svg.WriteString("</g>\n")
}

func drawLegend(svg *strings.Builder, entries []models.LegendEntry, top float64, theme Theme) {
	if len(entries) == 0 {
		return
	}
	x := float64(labelPadding)
	y := top + legendHeight/2
	for _, entry := range entries {
		svg.WriteString(fmt.Sprintf(`<rect x="%s" y="%s" width="%d" height="%d" rx="2" fill="%s"/>`,
			num(x), num(y-legendSwatch/2), legendSwatch, legendSwatch, escapeXML(entry.Color)))
		svg.WriteString(fmt.Sprintf(`<text class="legend-text" x="%s" y="%s" dominant-baseline="middle">%s</text>`+"\n",
			num(x+legendSwatch+4), num(y), escapeXML(entry.Name)))
		x += legendSwatch + 4 + estimateTextWidth(entry.Name, theme.FontSize) + legendGap
	}
}

func tooltipText(marker models.Marker) string {
	ev := marker.Event
	parts := []string{ev.Metric}
	if ev.DisplayName != "" && ev.DisplayName != ev.Metric {
		parts = append(parts, ev.DisplayName)
	}
	if marker.TooltipTime != "" {
		parts = append(parts, marker.TooltipTime)
	}
	return strings.Join(parts, "\n")
}

func canvasSize(model models.Model) (float64, float64) {
	width, height := model.Width, model.Height
	if !(width > 0) || math.IsInf(width, 0) {
		width = fallbackWidth
	}
	if !(height > 0) || math.IsInf(height, 0) {
		height = fallbackHeight
	}
	return width, height
}

func wrapLabel(text string, maxChars, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}
	var lines []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && len([]rune(current.String()))+1+len([]rune(word)) > maxChars {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	if len(lines) > maxLines {
		rest := strings.Join(lines[maxLines-1:], " ")
		lines = append(lines[:maxLines-1], truncate(rest, maxChars))
	}
	return lines
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	if maxChars <= 1 {
		return "…"
	}
	return string(runes[:maxChars-1]) + "…"
}

func estimateTextWidth(text string, fontSize float64) float64 {
	return float64(len([]rune(text))) * fontSize * 0.6
}

func num(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
