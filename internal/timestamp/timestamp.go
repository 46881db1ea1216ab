// Package timestamp normalises the timestamp shapes produced by dashboard data
// sources into epoch milliseconds.
package timestamp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrUnparseable is returned for values that do not encode a finite instant.
var ErrUnparseable = errors.New("unparseable timestamp")

// ISOMillis is the layout used when an instant has to be shown as text.
const ISOMillis = "2006-01-02T15:04:05.000Z"

// DateLike is satisfied by values exposing an epoch accessor, time.Time among them.
type DateLike interface {
	UnixMilli() int64
}

type layout struct {
	re *regexp.Regexp
	// dayFirst marks the DD/MM/YYYY shape, the only one not starting with the year.
	dayFirst bool
}

// Order matters: the first matching layout wins.
var layouts = []layout{
	{re: regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})\.(\d{3})Z$`)},
	{re: regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})Z$`)},
	{re: regexp.MustCompile(`(?i)^(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})$`)},
	{re: regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2}):(\d{2})$`)},
	{re: regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)},
	{re: regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`), dayFirst: true},
}

// Parse converts raw into epoch milliseconds. Numbers are taken as epoch-ms,
// date-like values go through their epoch accessor and strings are matched
// against the fixed layouts before falling back to free-form parsing. Components
// of string layouts are interpreted as UTC.
func Parse(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("%w: nil value", ErrUnparseable)
	case string:
		return parseString(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnparseable, v.String())
		}
		return fromFloat(f)
	case float64:
		return fromFloat(v)
	case float32:
		return fromFloat(float64(v))
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows", ErrUnparseable, v)
		}
		return int64(v), nil
	case *time.Time:
		if v == nil {
			return 0, fmt.Errorf("%w: nil time", ErrUnparseable)
		}
		return v.UnixMilli(), nil
	case DateLike:
		return v.UnixMilli(), nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrUnparseable, raw)
	}
}

func fromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: non-finite number", ErrUnparseable)
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %g out of range", ErrUnparseable, f)
	}
	return int64(f), nil
}

func parseString(s string) (int64, error) {
	cleaned := Clean(s)
	if cleaned == "" {
		return 0, fmt.Errorf("%w: empty string", ErrUnparseable)
	}

	for _, l := range layouts {
		m := l.re.FindStringSubmatch(cleaned)
		if m == nil {
			continue
		}
		n := make([]int, len(m))
		for i := 1; i < len(m); i++ {
			n[i], _ = strconv.Atoi(m[i])
		}
		var year, month, day, hour, minute, sec, ms int
		if l.dayFirst {
			day, month, year = n[1], n[2], n[3]
		} else {
			year, month, day = n[1], n[2], n[3]
			if len(n) > 6 {
				hour, minute, sec = n[4], n[5], n[6]
			}
			if len(n) > 7 {
				ms = n[7]
			}
		}
		// time.Date normalises out-of-range components, e.g. month 13 rolls into
		// the following year.
		t := time.Date(year, time.Month(month), day, hour, minute, sec, ms*int(time.Millisecond), time.UTC)
		return t.UnixMilli(), nil
	}

	t, err := dateparse.ParseIn(cleaned, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseable, s)
	}
	return t.UnixMilli(), nil
}

// Clean trims whitespace and strips one surrounding quote character from each end.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if s != "" && (s[len(s)-1] == '"' || s[len(s)-1] == '\'') {
		s = s[:len(s)-1]
	}
	return s
}

// Display returns the textual form of raw kept for tooltips.
func Display(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case time.Time:
		return v.UTC().Format(ISOMillis)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(ISOMillis)
	default:
		return fmt.Sprint(v)
	}
}
