// Package tooltip tracks the hover state of timeline markers.
package tooltip

import (
	"sync"
	"time"

	"timelinepanel/internal/models"
)

// DismissDelay is how long a tooltip survives after the pointer leaves a marker.
const DismissDelay = 300 * time.Millisecond

// State is what the viewer should draw.
type State struct {
	Visible bool    `json:"visible"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	EventID string  `json:"eventId,omitempty"`
	Metric  string  `json:"metric,omitempty"`
	Content string  `json:"content,omitempty"`
	Time    string  `json:"time,omitempty"`
	Color   string  `json:"color,omitempty"`
}

// Controller owns the tooltip state and at most one pending dismiss timer.
type Controller struct {
	mu       sync.Mutex
	state    State
	seq      uint64
	timer    *time.Timer
	delay    time.Duration
	onChange func(State)
	closed   bool

	// emitMu orders callbacks; a change is only delivered while it is still
	// the latest one.
	emitMu sync.Mutex
}

// New creates a controller reporting every change to onChange. A delay of zero
// or less uses DismissDelay. onChange must not call back into the controller.
func New(delay time.Duration, onChange func(State)) *Controller {
	if delay <= 0 {
		delay = DismissDelay
	}
	return &Controller{delay: delay, onChange: onChange}
}

// State returns the current tooltip.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Hover shows the tooltip for a marker at the given viewer coordinates.
func (c *Controller) Hover(event models.TimelineEvent, tooltipTime string, x, y float64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancelLocked()
	c.state = State{
		Visible: true,
		X:       x,
		Y:       y,
		EventID: event.ID,
		Metric:  event.Metric,
		Content: event.DisplayName,
		Time:    tooltipTime,
		Color:   event.Color,
	}
	seq := c.bumpLocked()
	c.mu.Unlock()
	c.emit(seq)
}

// Leave arms the dismiss timer. Entering the tooltip or another marker before
// it fires keeps the tooltip open.
func (c *Controller) Leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.state.Visible {
		return
	}
	c.cancelLocked()
	var timer *time.Timer
	timer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		if c.timer != timer {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		c.state = State{}
		seq := c.bumpLocked()
		c.mu.Unlock()
		c.emit(seq)
	})
	c.timer = timer
}

// EnterTooltip cancels a pending dismiss.
func (c *Controller) EnterTooltip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

// LeaveTooltip hides the tooltip immediately.
func (c *Controller) LeaveTooltip() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancelLocked()
	if !c.state.Visible {
		c.mu.Unlock()
		return
	}
	c.state = State{}
	seq := c.bumpLocked()
	c.mu.Unlock()
	c.emit(seq)
}

// Close stops the pending timer. No callbacks are delivered afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.closed = true
}

// Pending reports whether a dismiss timer is armed.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

func (c *Controller) cancelLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) bumpLocked() uint64 {
	c.seq++
	return c.seq
}

// emit delivers the change numbered seq unless a newer one superseded it.
func (c *Controller) emit(seq uint64) {
	if c.onChange == nil {
		return
	}
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	stale := c.closed || seq != c.seq
	st := c.state
	c.mu.Unlock()
	if stale {
		return
	}
	c.onChange(st)
}
