// Package api exposes the session, ledger and scheduling commands over
// HTTP for a UI layer, with server-sent event streams for the observable
// topics.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/ramanasai/nudge/internal/ledger"
	"github.com/ramanasai/nudge/internal/notify"
	"github.com/ramanasai/nudge/internal/reminder"
	"github.com/ramanasai/nudge/internal/schedule"
	"github.com/ramanasai/nudge/internal/session"
	"github.com/ramanasai/nudge/internal/version"
)

type Deps struct {
	Session    *session.Clock
	Ledger     *ledger.Ledger
	Planner    *reminder.Planner
	Dispatcher *notify.Local
	Clock      clockwork.Clock
	Log        *log.Logger

	// DefaultDuration is used when a start request names no duration.
	DefaultDuration time.Duration
	Rate            float64
	Burst           int
}

type Server struct {
	Deps
	log *log.Logger
}

func New(d Deps) *Server {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.DefaultDuration <= 0 {
		d.DefaultDuration = 25 * time.Minute
	}
	return &Server{Deps: d, log: d.Log.With("component", "api")}
}

type codeBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func errorBody(status int, msg string) codeBody { return codeBody{Code: status, Message: msg} }

// fail maps domain errors to status codes.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrInvalidState), errors.Is(err, session.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, session.ErrInvalidDuration), errors.Is(err, errBadRequest),
		errors.Is(err, schedule.ErrInvalidRule), errors.Is(err, reminder.ErrEmptyTitle):
		status = http.StatusBadRequest
	case errors.Is(err, reminder.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, notify.ErrPermissionDenied):
		status = http.StatusForbidden
	}
	c.AbortWithStatusJSON(status, errorBody(status, err.Error()))
}

var errBadRequest = errors.New("bad request")

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLog())
	r.Use(RateLimit(s.Rate, s.Burst))

	v1 := r.Group("/api/v1")
	v1.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ts": s.Clock.Now().Unix(), "version": version.String()})
	})

	timer := v1.Group("/timer")
	timer.GET("", s.timerState)
	timer.POST("/start", s.timerStart)
	timer.POST("/pause", s.timerPause)
	timer.POST("/resume", s.timerResume)
	timer.POST("/reset", s.timerReset)
	timer.POST("/duration", s.timerDuration)
	timer.GET("/stream", s.progressStream)
	timer.GET("/control", s.controlStream)

	v1.GET("/ledger", s.ledgerRange)
	v1.GET("/ledger/today", s.ledgerToday)
	v1.GET("/ledger/stream", s.totalsStream)
	v1.GET("/achievements", s.achievements)

	v1.GET("/settings", s.settingsGet)
	v1.PUT("/settings", s.settingsPut)

	v1.GET("/reminders", s.remindersList)
	v1.POST("/reminders", s.remindersAdd)
	v1.DELETE("/reminders/:id", s.remindersRemove)

	v1.GET("/notifications", s.notificationsList)
	v1.POST("/notifications/reschedule", s.reschedule)
	return r
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request", "method", c.Request.Method, "path", c.FullPath(), "status", c.Writer.Status(), "took", time.Since(start))
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		// Streams end when ctx does.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
