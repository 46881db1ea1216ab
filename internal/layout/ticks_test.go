package layout

import (
	"testing"
	"time"
)

func TestTicks(t *testing.T) {
	got := Ticks(1000, 3000, 4)
	want := []int64{1000, 2000, 3000, 4000}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tick %d = %d want %d", i, got[i], want[i])
		}
	}
	if one := Ticks(5, 10, 1); len(one) != 1 || one[0] != 5 {
		t.Fatalf("single tick %v", one)
	}
	if none := Ticks(5, 10, 0); none != nil {
		t.Fatalf("zero ticks %v", none)
	}
}

func TestTicksAreBounded(t *testing.T) {
	if got := Ticks(0, 1e12, 1<<40); len(got) != MaxTimeLabels {
		t.Fatalf("expected %d ticks, got %d", MaxTimeLabels, len(got))
	}
	got := Ticks(100, 2, 50)
	if len(got) != 3 || got[0] != 100 || got[2] != 102 {
		t.Fatalf("short span should give one tick per ms: %v", got)
	}
	if zero := Ticks(100, 0, 10); len(zero) != 1 || zero[0] != 100 {
		t.Fatalf("empty span %v", zero)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(1500, 1000, 1000); got != 50 {
		t.Fatalf("got %v", got)
	}
	if got := Percent(1500, 1000, 0); got != 0 {
		t.Fatalf("zero span should not divide: %v", got)
	}
}

func TestFormatTick(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2024, time.March, 15, 10, 30, 45, 0, time.UTC).UnixMilli()
	hour := int64(time.Hour / time.Millisecond)
	day := 24 * hour

	cases := []struct {
		name string
		span int64
		now  time.Time
		want string
	}{
		{"short range", 6 * hour, now, "15/03 10:30"},
		{"long range", 30 * day, now, "15/03"},
		{"year range", 400 * day, now, "15/03/2024"},
		{"other year short", 6 * hour, now.AddDate(1, 0, 0), "15/03/2024 10:30"},
		{"other year long", 30 * day, now.AddDate(1, 0, 0), "15/03/2024"},
	}
	for _, c := range cases {
		if got := FormatTick(ts, c.span, c.now, time.UTC); got != c.want {
			t.Fatalf("%s: got %q want %q", c.name, got, c.want)
		}
	}
	if got := FormatTooltip(ts, 6*hour, now, nil); got != "15/03 10:30:45" {
		t.Fatalf("tooltip: %q", got)
	}
	if got := FormatTooltip(ts, 6*hour, now.AddDate(1, 0, 0), time.UTC); got != "15/03/2024 10:30:45" {
		t.Fatalf("tooltip other year: %q", got)
	}
}

func TestFormatTickUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC).UnixMilli()
	if got := FormatTick(ts, 1000, now, loc); got != "15/03 12:30" {
		t.Fatalf("got %q", got)
	}
}
