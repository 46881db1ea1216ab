package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"timelinepanel/internal/editor"
	"timelinepanel/internal/logging"
	"timelinepanel/internal/models"
	"timelinepanel/internal/render"
	"timelinepanel/internal/storage"
)

type panelSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	Metrics int    `json:"metrics"`
	Frames  int    `json:"frames"`
}

type sourcesResponse struct {
	RefIDs []string            `json:"refIds"`
	Fields map[string][]string `json:"fields"`
}

// metricRequest creates or edits a metric. Index moves the metric when set.
type metricRequest struct {
	editor.Patch
	Index *int `json:"index,omitempty"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	snap, err := s.decodeSnapshot(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeModel(w, r.URL.Query().Get("format"), s.model(snap))
}

func (s *Server) handleListPanels(w http.ResponseWriter, _ *http.Request) {
	panels := s.store.List()
	out := make([]panelSummary, 0, len(panels))
	for _, p := range panels {
		out = append(out, panelSummary{ID: p.ID, Title: p.Title, Metrics: len(p.Metrics), Frames: len(p.Frames)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetPanel(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePutPanel(w http.ResponseWriter, r *http.Request) {
	snap, err := s.decodeSnapshot(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap.ID = r.PathValue("id")
	if err := s.store.Put(snap); err != nil {
		logging.Errorf("store panel %s: %v", snap.ID, err)
		writeError(w, http.StatusInternalServerError, "could not store panel")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeletePanel(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePanelModel(w http.ResponseWriter, r *http.Request) {
	s.servePanel(w, r, "json")
}

func (s *Server) handlePanelSVG(w http.ResponseWriter, r *http.Request) {
	s.servePanel(w, r, "svg")
}

func (s *Server) handlePanelPNG(w http.ResponseWriter, r *http.Request) {
	s.servePanel(w, r, "png")
}

func (s *Server) handlePanelStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	model := s.model(snap)
	stats := model.Stats
	if stats == nil {
		stats = []models.TrackStats{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": model.Events,
		"tracks": stats,
	})
}

func (s *Server) handlePanelSources(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	resp := sourcesResponse{
		RefIDs: editor.AvailableRefIDs(snap.Frames),
		Fields: map[string][]string{},
	}
	for _, ref := range resp.RefIDs {
		resp.Fields[ref] = editor.AvailableFields(snap.Frames, ref)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddMetric(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMetricRequest(w, r, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var added models.MetricConfig
	snap, err := s.editMetrics(r.PathValue("id"), func(e *editor.Editor) error {
		m, err := e.Add()
		if err != nil {
			return err
		}
		if err := e.Update(m.ID, req.Patch); err != nil {
			return err
		}
		if req.Index != nil {
			if err := e.Move(m.ID, *req.Index); err != nil {
				return err
			}
		}
		for _, cur := range e.Metrics() {
			if cur.ID == m.ID {
				added = cur
			}
		}
		return nil
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"metric": added, "metrics": snap.Metrics})
}

func (s *Server) handleUpdateMetric(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMetricRequest(w, r, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metricID := r.PathValue("metricID")
	snap, err := s.editMetrics(r.PathValue("id"), func(e *editor.Editor) error {
		if err := e.Update(metricID, req.Patch); err != nil {
			return err
		}
		if req.Index != nil {
			return e.Move(metricID, *req.Index)
		}
		return nil
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": snap.Metrics})
}

func (s *Server) handleRemoveMetric(w http.ResponseWriter, r *http.Request) {
	metricID := r.PathValue("metricID")
	snap, err := s.editMetrics(r.PathValue("id"), func(e *editor.Editor) error {
		return e.Remove(metricID)
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": snap.Metrics})
}

// editMetrics runs fn against an editor over the panel's metrics and stores the
// resulting list atomically.
func (s *Server) editMetrics(id string, fn func(e *editor.Editor) error) (models.PanelSnapshot, error) {
	return s.store.UpdateMetrics(id, func(metrics []models.MetricConfig, frames []models.Frame) ([]models.MetricConfig, error) {
		e := editor.New(metrics, frames, s.random, nil)
		if err := fn(e); err != nil {
			return nil, err
		}
		return e.Metrics(), nil
	})
}

func (s *Server) servePanel(w http.ResponseWriter, r *http.Request, format string) {
	snap, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.writeModel(w, format, s.model(snap))
}

func (s *Server) writeModel(w http.ResponseWriter, format string, model models.Model) {
	switch strings.ToLower(format) {
	case "", "json":
		writeJSON(w, http.StatusOK, model)
	case "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(render.SVG(model, s.theme))
	case "png":
		var buf bytes.Buffer
		if err := render.PNG(model, s.theme, &buf); err != nil {
			logging.Errorf("png render: %v", err)
			writeError(w, http.StatusInternalServerError, "could not render png")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (models.PanelSnapshot, bool) {
	snap, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return models.PanelSnapshot{}, false
	}
	return snap, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrPanelNotFound), errors.Is(err, editor.ErrMetricNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, editor.ErrNoDataSources):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logging.Errorf("panel update: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeSnapshot reads a snapshot with options defaulted and metric ids and
// colours normalised.
func (s *Server) decodeSnapshot(w http.ResponseWriter, r *http.Request) (models.PanelSnapshot, error) {
	snap := models.PanelSnapshot{Options: models.DefaultDisplayOptions()}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&snap); err != nil {
		return models.PanelSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Width < 0 || snap.Width > maxViewport || snap.Height < 0 || snap.Height > maxViewport {
		return models.PanelSnapshot{}, fmt.Errorf("viewport %gx%g outside 0..%d", snap.Width, snap.Height, maxViewport)
	}
	snap.Metrics = editor.Normalize(snap.Metrics, s.random)
	return snap, nil
}

func decodeMetricRequest(w http.ResponseWriter, r *http.Request, optional bool) (metricRequest, error) {
	var req metricRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&req); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return req, nil
		}
		return req, fmt.Errorf("decode metric: %w", err)
	}
	return req, nil
}
