package notify

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/beeep"
)

// Desktop shows notifications through the OS notification center.
type Desktop struct {
	AppName string
	Enabled bool
	Icon    string
}

func NewDesktop(appName string, enabled bool) *Desktop {
	if appName == "" {
		appName = "Nudge"
	}
	return &Desktop{AppName: appName, Enabled: enabled}
}

func (d *Desktop) Permitted() bool { return d.Enabled }

// Send uses an alert for session endings and a plain notification
// otherwise.
func (d *Desktop) Send(c Content) error {
	if !d.Enabled {
		return ErrPermissionDenied
	}
	title := c.Title
	if title == "" {
		title = d.AppName
	}
	if c.Channel == ChannelSession {
		return beeep.Alert(title, c.Body, d.Icon)
	}
	return beeep.Notify(title, c.Body, d.Icon)
}

// LogSink writes notifications to a logger. Useful headless and as a
// fallback when the desktop refuses.
type LogSink struct {
	Log *log.Logger
}

func (s LogSink) Send(c Content) error {
	s.Log.Info(c.Title, "body", c.Body, "channel", c.Channel)
	return nil
}

// Fanout delivers to every sink and reports the combined error.
type Fanout []Sink

func (f Fanout) Send(c Content) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Permitted is true when any member may deliver.
func (f Fanout) Permitted() bool {
	for _, s := range f {
		p, ok := s.(Permitter)
		if !ok || p.Permitted() {
			return true
		}
	}
	return false
}

// Memory records deliveries; tests and dry runs use it.
type Memory struct {
	mu     sync.Mutex
	Denied bool
	sent   []Content
}

func (m *Memory) Send(c Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Denied {
		return ErrPermissionDenied
	}
	m.sent = append(m.sent, c)
	return nil
}

func (m *Memory) Permitted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.Denied
}

func (m *Memory) Sent() []Content {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Content(nil), m.sent...)
}
