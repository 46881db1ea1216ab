// Package layout derives the timeline geometry from the viewport size and the
// display options.
package layout

import (
	"math"

	"timelinepanel/internal/models"
)

const (
	MinLabelWidth  = 15
	MaxLabelWidth  = 350
	BaseLabelWidth = 90

	MinPointSize = 7
	MaxPointSize = 12

	TimeLabelsHeight = 32
	MinTrackHeight   = 32
	MaxTrackHeight   = 90
	LineHeight       = 16

	MinTimeLabels = 2
)

// wrappedTrackHeight leaves room for two wrapped label lines.
const wrappedTrackHeight = LineHeight*2 + 16

var labelSpacing = map[models.Density]float64{
	models.DensityLow:    200,
	models.DensityMedium: 120,
	models.DensityHigh:   80,
}

// Compute returns the layout for a viewport of width x height showing
// metricCount tracks. Every value is finite and clamped, whatever the input.
func Compute(width, height float64, metricCount int, opts models.DisplayOptions) models.LayoutDimensions {
	width = sanitize(width)
	height = sanitize(height)

	labelWidth := LabelWidth(opts.MaxLabelWidth, opts.ShowMetricLabels)

	pointSize := clamp(math.Min(width, height)/50, MinPointSize, MaxPointSize)

	tracks := metricCount
	if tracks < 1 {
		tracks = 1
	}
	trackHeight := math.Max(float64(minTrackHeight(opts.MinTrackHeight)), (height-TimeLabelsHeight)/float64(tracks))
	if opts.AllowLineWrapping && opts.ShowMetricLabels {
		trackHeight = math.Max(trackHeight, wrappedTrackHeight)
	}

	count := int(math.Floor(width / Spacing(opts.TimeLabelDensity)))
	if count < MinTimeLabels {
		count = MinTimeLabels
	}

	return models.LayoutDimensions{
		LabelWidth:      labelWidth,
		PointSize:       pointSize,
		TrackHeight:     trackHeight,
		TimeLabelsCount: count,
	}
}

// LabelWidth clamps the requested label column width; zero means the base width.
func LabelWidth(requested int, show bool) float64 {
	if !show {
		return 0
	}
	if requested == 0 {
		requested = BaseLabelWidth
	}
	return clamp(float64(requested), MinLabelWidth, MaxLabelWidth)
}

// Spacing returns the pixel distance between time labels for a density.
// Unknown densities fall back to medium.
func Spacing(d models.Density) float64 {
	if s, ok := labelSpacing[d]; ok {
		return s
	}
	return labelSpacing[models.DensityMedium]
}

func minTrackHeight(requested int) int {
	if requested == 0 {
		return MinTrackHeight
	}
	if requested < MinTrackHeight {
		return MinTrackHeight
	}
	if requested > MaxTrackHeight {
		return MaxTrackHeight
	}
	return requested
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
