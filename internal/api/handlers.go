package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ramanasai/nudge/internal/config"
	"github.com/ramanasai/nudge/internal/ledger"
	"github.com/ramanasai/nudge/internal/pubsub"
	"github.com/ramanasai/nudge/internal/schedule"
	"github.com/ramanasai/nudge/internal/session"
	"github.com/ramanasai/nudge/internal/utils"
)

// ============================================================
// Timer
// ============================================================

type timerView struct {
	Status           session.Status `json:"status"`
	Kind             session.Kind   `json:"kind"`
	Label            string         `json:"label,omitempty"`
	TotalSeconds     int64          `json:"totalSeconds"`
	RemainingSeconds int64          `json:"remainingSeconds"`
	IsPaused         bool           `json:"isPaused"`
	RunStartedAt     *time.Time     `json:"runStartedAt,omitempty"`
}

func viewOf(st session.State) timerView {
	return timerView{
		Status:           st.Status,
		Kind:             st.Kind,
		Label:            st.Label,
		TotalSeconds:     st.TotalSeconds(),
		RemainingSeconds: st.RemainingSeconds(),
		IsPaused:         st.Status == session.Paused,
		RunStartedAt:     st.RunStartedAt,
	}
}

func (s *Server) timerState(c *gin.Context) {
	c.JSON(http.StatusOK, viewOf(s.Session.State()))
}

type startReq struct {
	DurationSeconds int64  `json:"durationSeconds"`
	Kind            string `json:"kind"`
	Label           string `json:"label"`
}

func (s *Server) timerStart(c *gin.Context) {
	var req startReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}
	d := time.Duration(req.DurationSeconds) * time.Second
	if req.DurationSeconds == 0 {
		d = s.DefaultDuration
	}
	kind, err := session.ParseKind(req.Kind)
	if err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := s.Session.Start(d, kind, req.Label); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(s.Session.State()))
}

func (s *Server) timerPause(c *gin.Context)  { s.timerCmd(c, s.Session.Pause) }
func (s *Server) timerResume(c *gin.Context) { s.timerCmd(c, s.Session.Resume) }
func (s *Server) timerReset(c *gin.Context)  { s.timerCmd(c, s.Session.Reset) }

func (s *Server) timerCmd(c *gin.Context, fn func() error) {
	if err := fn(); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(s.Session.State()))
}

func (s *Server) timerDuration(c *gin.Context) {
	var req struct {
		DurationSeconds int64 `json:"durationSeconds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	s.timerCmd(c, func() error {
		return s.Session.SetDuration(time.Duration(req.DurationSeconds) * time.Second)
	})
}

func (s *Server) progressStream(c *gin.Context) { stream(c, s.Session.Progress(), "progress") }
func (s *Server) controlStream(c *gin.Context)  { stream(c, s.Session.Control(), "control") }
func (s *Server) totalsStream(c *gin.Context)   { stream(c, s.Ledger.Totals(), "totals") }

// stream relays a topic as server-sent events until the client leaves.
func stream[T any](c *gin.Context, topic *pubsub.Topic[T], event string) {
	ch, cancel := topic.Subscribe()
	defer cancel()
	ctx := c.Request.Context()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case v, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(event, v)
			return true
		}
	})
}

// ============================================================
// Ledger
// ============================================================

type entryView struct {
	Day               string    `json:"day"`
	TotalFocusMinutes int64     `json:"totalFocusMinutes"`
	TotalWorkMinutes  int64     `json:"totalWorkMinutes"`
	FocusSeconds      int64     `json:"focusSeconds"`
	WorkSeconds       int64     `json:"workSeconds"`
	LastUpdated       time.Time `json:"lastUpdated,omitempty"`
}

func entryOf(e ledger.Entry) entryView {
	return entryView{
		Day:               e.Day,
		TotalFocusMinutes: e.TotalFocusMinutes(),
		TotalWorkMinutes:  e.TotalWorkMinutes(),
		FocusSeconds:      e.FocusSeconds,
		WorkSeconds:       e.WorkSeconds,
		LastUpdated:       e.LastUpdated,
	}
}

func (s *Server) ledgerToday(c *gin.Context) {
	e, err := s.Ledger.Today()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entryOf(e))
}

func (s *Server) ledgerRange(c *gin.Context) {
	preset := c.DefaultQuery("preset", "week")
	st, _ := s.Planner.Settings()
	from, to, err := utils.GetDateRange(preset, s.Clock.Now().In(st.Location()))
	if err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	entries, err := s.Ledger.Range(from, to)
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]entryView, 0, len(entries))
	var focus, work int64
	for _, e := range entries {
		out = append(out, entryOf(e))
		focus += e.FocusSeconds
		work += e.WorkSeconds
	}
	c.JSON(http.StatusOK, gin.H{
		"preset":            preset,
		"from":              from.Format("2006-01-02"),
		"to":                to.Format("2006-01-02"),
		"days":              out,
		"totalFocusMinutes": focus / 60,
		"totalWorkMinutes":  work / 60,
	})
}

func (s *Server) achievements(c *gin.Context) {
	life := int64(s.Ledger.Lifetime() / time.Second)
	c.JSON(http.StatusOK, gin.H{
		"lifetimeFocusMinutes": life / 60,
		"unlocked":             ledger.Unlocked(life),
	})
}

// ============================================================
// Settings
// ============================================================

func (s *Server) settingsGet(c *gin.Context) {
	st, err := s.Planner.Settings()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// settingsPut applies a partial update keyed by option name, then
// reschedules everything.
func (s *Server) settingsPut(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	st, err := s.Planner.Settings()
	if err != nil {
		fail(c, err)
		return
	}
	for name, v := range patch {
		var raw string
		switch v := v.(type) {
		case bool:
			raw = strconv.FormatBool(v)
		case string:
			raw = v
		default:
			fail(c, fmt.Errorf("%w: %s must be a bool or string", errBadRequest, name))
			return
		}
		if err := st.Set(name, raw); err != nil {
			fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}
	if err := config.SaveSettings(s.Planner.KV(), st); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	res, err := s.Planner.RescheduleAll()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": st, "reschedule": res})
}

// ============================================================
// Reminders and notifications
// ============================================================

func (s *Server) remindersList(c *gin.Context) {
	rems, err := s.Planner.Reminders().List()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rems)
}

type reminderReq struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
	Rule  string `json:"rule" binding:"required"`
}

func (s *Server) remindersAdd(c *gin.Context) {
	var req reminderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	st, _ := s.Planner.Settings()
	now := s.Clock.Now().In(st.Location())
	rule, err := schedule.ParseRule(req.Rule, now)
	if err != nil {
		fail(c, err)
		return
	}
	r, err := s.Planner.Reminders().Add(req.Title, req.Body, rule, now)
	if err != nil {
		fail(c, err)
		return
	}
	if _, err := s.Planner.RescheduleAll(); err != nil {
		s.log.Warn("reschedule after add failed", "err", err)
	}
	c.JSON(http.StatusCreated, r)
}

func (s *Server) remindersRemove(c *gin.Context) {
	r, err := s.Planner.Reminders().Resolve(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.Planner.Reminders().Remove(r.ID); err != nil {
		fail(c, err)
		return
	}
	if _, err := s.Planner.RescheduleAll(); err != nil {
		s.log.Warn("reschedule after remove failed", "err", err)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) notificationsList(c *gin.Context) {
	entries, err := s.Dispatcher.Entries()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) reschedule(c *gin.Context) {
	res, err := s.Planner.RescheduleAll()
	if err != nil {
		fail(c, err)
		return
	}
	if res.PermissionDenied {
		// User-initiated, so the denial is reported.
		c.JSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "notification permission denied", "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}
