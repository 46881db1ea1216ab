package layout

import "time"

const (
	// LongRange switches axis labels to date-only.
	LongRange = 7 * 24 * time.Hour
	// YearRange forces the year into every label.
	YearRange = 365 * 24 * time.Hour

	// MaxTimeLabels caps the ticks drawn on one axis whatever the viewport width.
	MaxTimeLabels = 200
)

// Ticks spreads count instants evenly over [start, start+span], both ends included.
// count is capped at MaxTimeLabels and at one tick per millisecond of span.
func Ticks(start, span int64, count int) []int64 {
	if count > MaxTimeLabels {
		count = MaxTimeLabels
	}
	if span >= 0 && int64(count) > span+1 {
		count = int(span + 1)
	}
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return []int64{start}
	}
	out := make([]int64, count)
	for i := 0; i < count; i++ {
		out[i] = start + int64(float64(i)/float64(count-1)*float64(span))
	}
	return out
}

// Percent returns the position of ts inside the window as a percentage.
func Percent(ts, start, span int64) float64 {
	if span <= 0 {
		return 0
	}
	return float64(ts-start) / float64(span) * 100
}

// FormatTick renders an axis label. Ranges over a week drop the time of day;
// the year is shown for ranges over a year or when it differs from now's.
func FormatTick(ts, span int64, now time.Time, loc *time.Location) string {
	t, showYear, long := prepare(ts, span, now, loc)
	if long {
		if showYear {
			return t.Format("02/01/2006")
		}
		return t.Format("02/01")
	}
	if showYear {
		return t.Format("02/01/2006 15:04")
	}
	return t.Format("02/01 15:04")
}

// FormatTooltip is FormatTick with seconds, used in marker tooltips.
func FormatTooltip(ts, span int64, now time.Time, loc *time.Location) string {
	t, showYear, long := prepare(ts, span, now, loc)
	if long {
		if showYear {
			return t.Format("02/01/2006")
		}
		return t.Format("02/01")
	}
	if showYear {
		return t.Format("02/01/2006 15:04:05")
	}
	return t.Format("02/01 15:04:05")
}

func prepare(ts, span int64, now time.Time, loc *time.Location) (time.Time, bool, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(ts).In(loc)
	d := time.Duration(span) * time.Millisecond
	showYear := d > YearRange || t.Year() != now.In(loc).Year()
	return t, showYear, d > LongRange
}
