package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"timelinepanel/internal/logging"
	"timelinepanel/internal/models"
	"timelinepanel/internal/storage"
	"timelinepanel/internal/tooltip"
)

const (
	liveWriteTimeout = 5 * time.Second
	liveRefresh      = 60 * time.Second
	liveQueueSize    = 16
)

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// liveMessage is pushed to viewers.
type liveMessage struct {
	Type    string         `json:"type"`
	Model   *models.Model  `json:"model,omitempty"`
	Tooltip *tooltip.State `json:"tooltip,omitempty"`
}

// viewerMessage is what viewers send: hover and leave notifications for
// markers and the tooltip itself.
type viewerMessage struct {
	Type    string  `json:"type"`
	EventID string  `json:"eventId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// liveSession is one websocket viewer of a panel.
type liveSession struct {
	mu      sync.Mutex
	markers map[string]models.Marker

	out  chan liveMessage
	done chan struct{}
}

func (s *Server) handlePanelWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.Get(id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveLiveConnection(conn, id)
}

func (s *Server) serveLiveConnection(conn *websocket.Conn, id string) {
	defer conn.Close()

	changes, cancel := s.store.Subscribe(id)
	defer cancel()

	sess := &liveSession{
		markers: map[string]models.Marker{},
		out:     make(chan liveMessage, liveQueueSize),
		done:    make(chan struct{}),
	}
	tip := tooltip.New(tooltip.DismissDelay, sess.pushTooltip)
	defer tip.Close()

	if !s.pushModel(conn, sess, id) {
		return
	}

	go sess.readLoop(conn, tip)

	ticker := time.NewTicker(liveRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-changes:
			if !s.pushModel(conn, sess, id) {
				return
			}
		case <-ticker.C:
			// Relative ranges move with the clock.
			if !s.pushModel(conn, sess, id) {
				return
			}
		case msg := <-sess.out:
			if err := writeLivePayload(conn, msg); err != nil {
				return
			}
		case <-sess.done:
			return
		}
	}
}

// pushModel sends the current model. It returns false when the connection
// should close.
func (s *Server) pushModel(conn *websocket.Conn, sess *liveSession, id string) bool {
	snap, err := s.store.Get(id)
	if errors.Is(err, storage.ErrPanelNotFound) {
		_ = writeLivePayload(conn, liveMessage{Type: "deleted"})
		return false
	}
	if err != nil {
		return false
	}
	model := s.model(snap)
	sess.setModel(model)
	if err := writeLivePayload(conn, liveMessage{Type: "model", Model: &model}); err != nil {
		logging.Debugf("live push for panel %s: %v", id, err)
		return false
	}
	return true
}

func (sess *liveSession) setModel(model models.Model) {
	markers := make(map[string]models.Marker)
	for _, track := range model.Tracks {
		for _, m := range track.Markers {
			markers[m.Event.ID] = m
		}
	}
	sess.mu.Lock()
	sess.markers = markers
	sess.mu.Unlock()
}

func (sess *liveSession) marker(id string) (models.Marker, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	m, ok := sess.markers[id]
	return m, ok
}

func (sess *liveSession) pushTooltip(st tooltip.State) {
	select {
	case sess.out <- liveMessage{Type: "tooltip", Tooltip: &st}:
	case <-sess.done:
	default:
		logging.Debugf("dropping tooltip update for slow viewer")
	}
}

func (sess *liveSession) readLoop(conn *websocket.Conn, tip *tooltip.Controller) {
	defer close(sess.done)
	for {
		var msg viewerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "hover":
			if m, ok := sess.marker(msg.EventID); ok {
				tip.Hover(m.Event, m.TooltipTime, msg.X, msg.Y)
			}
		case "leave":
			tip.Leave()
		case "enterTooltip":
			tip.EnterTooltip()
		case "leaveTooltip":
			tip.LeaveTooltip()
		}
	}
}

func writeLivePayload(conn *websocket.Conn, payload liveMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return conn.WriteJSON(payload)
}
