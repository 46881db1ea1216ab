package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"timelinepanel/internal/models"
)

// ErrPanelNotFound is returned for unknown panel ids.
var ErrPanelNotFound = errors.New("panel not found")

// PanelStore keeps the latest snapshot of every panel. Snapshots are replaced
// wholesale and never mutated in place, so readers can keep what Get returned.
type PanelStore struct {
	mu     sync.RWMutex
	path   string
	panels map[string]models.PanelSnapshot

	subMu  sync.Mutex
	subs   map[string]map[int]chan struct{}
	nextID int
}

// NewPanelStore creates a store. An empty path keeps everything in memory;
// otherwise existing panels are loaded from the file and every change is written back.
func NewPanelStore(path string) (*PanelStore, error) {
	s := &PanelStore{
		path:   path,
		panels: make(map[string]models.PanelSnapshot),
		subs:   make(map[string]map[int]chan struct{}),
	}
	if path == "" {
		return s, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Put stores or replaces a panel.
func (s *PanelStore) Put(snap models.PanelSnapshot) error {
	if snap.ID == "" {
		return errors.New("panel id is required")
	}
	s.mu.Lock()
	restore := s.saveLocked(snap.ID)
	s.panels[snap.ID] = clone(snap)
	err := s.commitLocked(restore)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(snap.ID)
	return nil
}

// Get returns a panel by id.
func (s *PanelStore) Get(id string) (models.PanelSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.panels[id]
	if !ok {
		return models.PanelSnapshot{}, fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	return snap, nil
}

// List returns all panels ordered by id.
func (s *PanelStore) List() []models.PanelSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PanelSnapshot, 0, len(s.panels))
	for _, snap := range s.panels {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Delete removes a panel.
func (s *PanelStore) Delete(id string) error {
	s.mu.Lock()
	if _, ok := s.panels[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	restore := s.saveLocked(id)
	delete(s.panels, id)
	err := s.commitLocked(restore)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(id)
	return nil
}

// UpdateFrames replaces the data frames of a panel, creating it with default
// options when it does not exist yet.
func (s *PanelStore) UpdateFrames(id string, frames []models.Frame) error {
	if id == "" {
		return errors.New("panel id is required")
	}
	s.mu.Lock()
	snap, ok := s.panels[id]
	if !ok {
		snap = models.PanelSnapshot{ID: id, Options: models.DefaultDisplayOptions()}
	}
	snap.Frames = append([]models.Frame(nil), frames...)
	restore := s.saveLocked(id)
	s.panels[id] = snap
	err := s.commitLocked(restore)
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(id)
	return nil
}

// UpdateMetrics applies fn to the metric list of a panel under the write lock.
// fn receives the current list and the panel frames and returns the new list.
func (s *PanelStore) UpdateMetrics(id string, fn func(metrics []models.MetricConfig, frames []models.Frame) ([]models.MetricConfig, error)) (models.PanelSnapshot, error) {
	s.mu.Lock()
	snap, ok := s.panels[id]
	if !ok {
		s.mu.Unlock()
		return models.PanelSnapshot{}, fmt.Errorf("%w: %s", ErrPanelNotFound, id)
	}
	next, err := fn(snap.Metrics, snap.Frames)
	if err != nil {
		s.mu.Unlock()
		return snap, err
	}
	prev := snap
	snap.Metrics = next
	restore := s.saveLocked(id)
	s.panels[id] = snap
	if err := s.commitLocked(restore); err != nil {
		s.mu.Unlock()
		return prev, err
	}
	s.mu.Unlock()

	s.notify(id)
	return snap, nil
}

// Subscribe returns a channel signalled after every change of the panel and
// a cancel func releasing it. Signals coalesce: a slow reader sees one pending
// notification, never a backlog.
func (s *PanelStore) Subscribe(id string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	s.nextID++
	key := s.nextID
	if s.subs[id] == nil {
		s.subs[id] = make(map[int]chan struct{})
	}
	s.subs[id][key] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs[id], key)
			if len(s.subs[id]) == 0 {
				delete(s.subs, id)
			}
		})
	}
}

func (s *PanelStore) notify(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs[id] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// saveLocked captures the current entry of id so a failed write can undo the change.
func (s *PanelStore) saveLocked(id string) func() {
	prev, ok := s.panels[id]
	return func() {
		if ok {
			s.panels[id] = prev
		} else {
			delete(s.panels, id)
		}
	}
}

// commitLocked writes the store to disk, undoing the in-memory change when the
// write fails. Callers notify subscribers only after a successful commit.
func (s *PanelStore) commitLocked(restore func()) error {
	if err := s.persist(); err != nil {
		restore()
		return err
	}
	return nil
}

func clone(snap models.PanelSnapshot) models.PanelSnapshot {
	snap.Frames = append([]models.Frame(nil), snap.Frames...)
	snap.Metrics = append([]models.MetricConfig(nil), snap.Metrics...)
	if snap.Window != nil {
		w := *snap.Window
		snap.Window = &w
	}
	return snap
}

func (s *PanelStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read panels: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var panels []models.PanelSnapshot
	if err := json.Unmarshal(data, &panels); err != nil {
		return fmt.Errorf("parse panels: %w", err)
	}
	for _, p := range panels {
		if p.ID == "" {
			continue
		}
		s.panels[p.ID] = p
	}
	return nil
}

// persist must be called with the write lock held.
func (s *PanelStore) persist() error {
	if s.path == "" {
		return nil
	}
	panels := make([]models.PanelSnapshot, 0, len(s.panels))
	for _, snap := range s.panels {
		panels = append(panels, snap)
	}
	sort.Slice(panels, func(i, j int) bool { return panels[i].ID < panels[j].ID })

	bytes, err := json.MarshalIndent(panels, "", "  ")
	if err != nil {
		return fmt.Errorf("encode panels: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return fmt.Errorf("write temp panels: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace panels file: %w", err)
	}
	return nil
}
