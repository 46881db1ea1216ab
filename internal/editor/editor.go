// Package editor implements the metric configuration list operations. Every
// operation returns a new slice and never mutates its input, so a changed slice
// header always means a real change.
package editor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"timelinepanel/internal/models"
)

var (
	// ErrNoDataSources is returned by Add when no frame carries a refId.
	ErrNoDataSources = errors.New("no data sources available")
	// ErrMetricNotFound is returned when an id does not match any metric.
	ErrMetricNotFound = errors.New("metric not found")
)

// Palette holds the colours assigned to new metrics.
var Palette = []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F"}

// preferredDateField is picked as the date field whenever a source has it.
const preferredDateField = "time"

// Random is the source used for palette picks; *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
}

// RandomColor picks a palette entry.
func RandomColor(r Random) string {
	return Palette[r.Intn(len(Palette))]
}

// NewID returns a fresh metric identifier.
func NewID() string {
	return uuid.NewString()
}

// AvailableRefIDs lists the distinct non-empty refIds of frames in first-seen order.
func AvailableRefIDs(frames []models.Frame) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, f := range frames {
		if f.RefID == "" {
			continue
		}
		if _, ok := seen[f.RefID]; ok {
			continue
		}
		seen[f.RefID] = struct{}{}
		out = append(out, f.RefID)
	}
	return out
}

// AvailableFields lists the distinct field names of frames with the given refId.
func AvailableFields(frames []models.Frame, refID string) []string {
	out := make([]string, 0)
	if refID == "" {
		return out
	}
	seen := make(map[string]struct{})
	for _, f := range frames {
		if f.RefID != refID {
			continue
		}
		for _, field := range f.Fields {
			if field.Name == "" {
				continue
			}
			if _, ok := seen[field.Name]; ok {
				continue
			}
			seen[field.Name] = struct{}{}
			out = append(out, field.Name)
		}
	}
	return out
}

// DefaultDateField returns "time" when the source has such a field, otherwise
// its first field, otherwise "".
func DefaultDateField(frames []models.Frame, refID string) string {
	fields := AvailableFields(frames, refID)
	for _, f := range fields {
		if f == preferredDateField {
			return f
		}
	}
	if len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// Add appends a new metric bound to the first available source.
func Add(metrics []models.MetricConfig, frames []models.Frame, r Random) ([]models.MetricConfig, error) {
	refIDs := AvailableRefIDs(frames)
	if len(refIDs) == 0 {
		return metrics, ErrNoDataSources
	}
	m := models.MetricConfig{
		ID:         NewID(),
		Name:       fmt.Sprintf("Metric %d", len(metrics)+1),
		RefID:      refIDs[0],
		DateField:  DefaultDateField(frames, refIDs[0]),
		PointColor: RandomColor(r),
	}
	out := make([]models.MetricConfig, 0, len(metrics)+1)
	out = append(out, metrics...)
	return append(out, m), nil
}

// Patch lists the fields to change; nil pointers are left untouched.
type Patch struct {
	Name       *string `json:"name,omitempty"`
	RefID      *string `json:"refId,omitempty"`
	DateField  *string `json:"dateField,omitempty"`
	PointColor *string `json:"pointColor,omitempty"`
}

// Update applies p to the metric with the given id. Changing the refId resets
// the date field to the new source's default unless p sets one explicitly.
func Update(metrics []models.MetricConfig, id string, p Patch, frames []models.Frame) ([]models.MetricConfig, error) {
	idx := indexOf(metrics, id)
	if idx < 0 {
		return metrics, fmt.Errorf("%w: %s", ErrMetricNotFound, id)
	}
	out := clone(metrics)
	m := out[idx]
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.RefID != nil && *p.RefID != m.RefID {
		m.RefID = *p.RefID
		m.DateField = DefaultDateField(frames, m.RefID)
	}
	if p.DateField != nil {
		m.DateField = *p.DateField
	}
	if p.PointColor != nil {
		m.PointColor = *p.PointColor
	}
	out[idx] = m
	return out, nil
}

// Remove drops the metric with the given id.
func Remove(metrics []models.MetricConfig, id string) ([]models.MetricConfig, error) {
	idx := indexOf(metrics, id)
	if idx < 0 {
		return metrics, fmt.Errorf("%w: %s", ErrMetricNotFound, id)
	}
	out := make([]models.MetricConfig, 0, len(metrics)-1)
	out = append(out, metrics[:idx]...)
	return append(out, metrics[idx+1:]...), nil
}

// Move places the metric with the given id at index, clamped to the list bounds.
func Move(metrics []models.MetricConfig, id string, index int) ([]models.MetricConfig, error) {
	idx := indexOf(metrics, id)
	if idx < 0 {
		return metrics, fmt.Errorf("%w: %s", ErrMetricNotFound, id)
	}
	if index < 0 {
		index = 0
	}
	if index > len(metrics)-1 {
		index = len(metrics) - 1
	}
	m := metrics[idx]
	rest := make([]models.MetricConfig, 0, len(metrics)-1)
	rest = append(rest, metrics[:idx]...)
	rest = append(rest, metrics[idx+1:]...)

	out := make([]models.MetricConfig, 0, len(metrics))
	out = append(out, rest[:index]...)
	out = append(out, m)
	return append(out, rest[index:]...), nil
}

// Normalize assigns ids and colours to metrics lacking them. It is meant to run
// once where configuration enters the system so that renders stay deterministic.
// The input slice is returned unchanged when nothing is missing.
func Normalize(metrics []models.MetricConfig, r Random) []models.MetricConfig {
	var out []models.MetricConfig
	seen := make(map[string]struct{}, len(metrics))
	for i, m := range metrics {
		_, dup := seen[m.ID]
		if m.ID != "" && !dup && m.PointColor != "" {
			seen[m.ID] = struct{}{}
			continue
		}
		if out == nil {
			out = clone(metrics)
		}
		if m.ID == "" || dup {
			out[i].ID = NewID()
		}
		if m.PointColor == "" {
			out[i].PointColor = RandomColor(r)
		}
		seen[out[i].ID] = struct{}{}
	}
	if out == nil {
		return metrics
	}
	return out
}

func indexOf(metrics []models.MetricConfig, id string) int {
	for i, m := range metrics {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func clone(metrics []models.MetricConfig) []models.MetricConfig {
	out := make([]models.MetricConfig, len(metrics))
	copy(out, metrics)
	return out
}
