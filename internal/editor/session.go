package editor

import (
	"sync"

	"timelinepanel/internal/models"
)

// Editor holds the metric list being edited and reports every new list through
// OnChange.
type Editor struct {
	mu       sync.Mutex
	metrics  []models.MetricConfig
	frames   []models.Frame
	random   Random
	onChange func([]models.MetricConfig)
}

// New creates an editor for the given list. frames supply the available sources
// and fields; onChange may be nil.
func New(metrics []models.MetricConfig, frames []models.Frame, r Random, onChange func([]models.MetricConfig)) *Editor {
	return &Editor{
		metrics:  metrics,
		frames:   frames,
		random:   r,
		onChange: onChange,
	}
}

// Metrics returns the current list.
func (e *Editor) Metrics() []models.MetricConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics
}

// Add appends a new metric and returns it.
func (e *Editor) Add() (models.MetricConfig, error) {
	var added models.MetricConfig
	err := e.apply(func(cur []models.MetricConfig) ([]models.MetricConfig, error) {
		next, err := Add(cur, e.frames, e.random)
		if err == nil {
			added = next[len(next)-1]
		}
		return next, err
	})
	return added, err
}

// Update patches the metric with the given id.
func (e *Editor) Update(id string, p Patch) error {
	return e.apply(func(cur []models.MetricConfig) ([]models.MetricConfig, error) {
		return Update(cur, id, p, e.frames)
	})
}

// Remove deletes the metric with the given id.
func (e *Editor) Remove(id string) error {
	return e.apply(func(cur []models.MetricConfig) ([]models.MetricConfig, error) {
		return Remove(cur, id)
	})
}

// Move reorders the metric with the given id.
func (e *Editor) Move(id string, index int) error {
	return e.apply(func(cur []models.MetricConfig) ([]models.MetricConfig, error) {
		return Move(cur, id, index)
	})
}

func (e *Editor) apply(op func([]models.MetricConfig) ([]models.MetricConfig, error)) error {
	e.mu.Lock()
	next, err := op(e.metrics)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.metrics = next
	cb := e.onChange
	e.mu.Unlock()

	if cb != nil {
		cb(next)
	}
	return nil
}
