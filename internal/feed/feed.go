// Package feed loads data frames from local JSON files into the panel store.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"timelinepanel/internal/logging"
	"timelinepanel/internal/models"
)

// MinInterval is the shortest polling interval a source may use.
const MinInterval = time.Second

// Source maps a frame file to a panel.
type Source struct {
	PanelID  string
	Path     string
	Interval time.Duration
}

// Sink receives loaded frames.
type Sink interface {
	UpdateFrames(panelID string, frames []models.Frame) error
}

type sourceState struct {
	Source
	lastCheck time.Time
	modTime   time.Time
	size      int64
}

// Feed periodically checks its sources and pushes changed files into the sink.
type Feed struct {
	interval time.Duration
	sources  []*sourceState
	sink     Sink
	now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a feed. The loop ticks at the shortest source interval.
func New(sources []Source, sink Sink) *Feed {
	f := &Feed{
		sink:   sink,
		now:    time.Now,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	for _, src := range sources {
		if src.Interval < MinInterval {
			src.Interval = MinInterval
		}
		if f.interval == 0 || src.Interval < f.interval {
			f.interval = src.Interval
		}
		f.sources = append(f.sources, &sourceState{Source: src})
	}
	if f.interval == 0 {
		f.interval = time.Minute
	}
	return f
}

// Start launches the polling loop in a goroutine.
func (f *Feed) Start() {
	go f.run()
}

// Stop requests graceful loop termination and waits until it is done.
func (f *Feed) Stop() {
	select {
	case <-f.doneCh:
		return
	default:
	}
	close(f.stopCh)
	<-f.doneCh
}

// RunOnce checks every source that is due and loads the files that changed
// since their last load. It returns the number of panels updated.
func (f *Feed) RunOnce(ctx context.Context) (int, error) {
	now := f.now()
	loaded := 0
	var errs []error
	for _, src := range f.sources {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		if !src.lastCheck.IsZero() && now.Sub(src.lastCheck) < src.Interval {
			continue
		}
		src.lastCheck = now

		changed, err := f.load(src)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.Path, err))
			continue
		}
		if changed {
			loaded++
		}
	}
	return loaded, errors.Join(errs...)
}

func (f *Feed) load(src *sourceState) (bool, error) {
	info, err := os.Stat(src.Path)
	if err != nil {
		return false, fmt.Errorf("stat frames: %w", err)
	}
	if info.ModTime().Equal(src.modTime) && info.Size() == src.size {
		return false, nil
	}

	data, err := os.ReadFile(src.Path)
	if err != nil {
		return false, fmt.Errorf("read frames: %w", err)
	}
	frames, err := DecodeFrames(data)
	if err != nil {
		return false, err
	}
	if err := f.sink.UpdateFrames(src.PanelID, frames); err != nil {
		return false, err
	}
	src.modTime = info.ModTime()
	src.size = info.Size()
	logging.Debugf("loaded %d frame(s) for panel %s from %s", len(frames), src.PanelID, src.Path)
	return true, nil
}

// DecodeFrames accepts either a JSON array of frames or an object with a
// "frames" array.
func DecodeFrames(data []byte) ([]models.Frame, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []models.Frame{}, nil
	}
	if data[0] == '[' {
		var frames []models.Frame
		if err := json.Unmarshal(data, &frames); err != nil {
			return nil, fmt.Errorf("parse frames: %w", err)
		}
		return frames, nil
	}
	var wrapped struct {
		Frames []models.Frame `json:"frames"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse frames: %w", err)
	}
	if wrapped.Frames == nil {
		wrapped.Frames = []models.Frame{}
	}
	return wrapped.Frames, nil
}

func (f *Feed) run() {
	defer close(f.doneCh)

	if _, err := f.RunOnce(context.Background()); err != nil {
		logging.Warnf("initial frame load failed: %v", err)
	}

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := f.RunOnce(context.Background()); err != nil {
				logging.Warnf("frame feed tick failed: %v", err)
			}
		case <-f.stopCh:
			return
		}
	}
}
