// Package worker provides the HTTP service exposing the soil analysis session.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/soilsense/internal/config"
	"github.com/thebtf/soilsense/internal/dashboard"
	"github.com/thebtf/soilsense/internal/session"
	"github.com/thebtf/soilsense/internal/worker/sse"
)

const eventBufferSize = 64

// Service is the worker HTTP service.
type Service struct {
	version        string
	config         *config.Config
	controller     *session.Controller
	dashboard      *dashboard.Registry
	sseBroadcaster *sse.Broadcaster
	router         *chi.Mux
	events         chan sseEvent
	startTime      time.Time
	ready          atomic.Bool
	dropped        atomic.Int64
}

type sseEvent struct {
	name string
	data interface{}
}

// NewService wires the HTTP routes for ctrl. Call Run to serve.
func NewService(version string, cfg *config.Config, ctrl *session.Controller, dash *dashboard.Registry) *Service {
	if dash == nil {
		dash = dashboard.New(dashboard.Default())
	}
	s := &Service{
		version:        version,
		config:         cfg,
		controller:     ctrl,
		dashboard:      dash,
		sseBroadcaster: sse.NewBroadcaster(),
		router:         chi.NewRouter(),
		events:         make(chan sseEvent, eventBufferSize),
		startTime:      time.Now(),
	}
	s.setupRoutes()
	return s
}

// Handler returns the service router.
func (s *Service) Handler() http.Handler {
	return s.router
}

func (s *Service) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", serveIndex)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireReady)

		r.Post("/analysis", s.handleStartAnalysis)
		r.Get("/analysis", s.handleGetState)
		r.Post("/analysis/dismiss", s.handleDismiss)
		r.Post("/analysis/reset", s.handleReset)
		r.Get("/reading", s.handleSampleReading)

		r.Get("/history", s.handleGetHistory)
		r.Delete("/history", s.handleClearHistory)

		r.Post("/reminders", s.handleScheduleReminder)
		r.Get("/reminders", s.handleGetReminders)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/events", s.sseBroadcaster.HandleSSE)
	})
}

// OnSessionEvent is a session.Listener that forwards events to SSE clients.
// It never blocks; events are dropped when the buffer is full.
func (s *Service) OnSessionEvent(ev session.Event) {
	s.enqueue(string(ev.Type), ev)
}

// OnReminderFired forwards a delivered reminder to SSE clients.
func (s *Service) OnReminderFired(message string, firedAt time.Time) {
	s.enqueue("reminder_fired", map[string]interface{}{
		"message": message,
		"firedAt": firedAt.UTC(),
	})
}

func (s *Service) enqueue(name string, data interface{}) {
	select {
	case s.events <- sseEvent{name: name, data: data}:
	default:
		s.dropped.Add(1)
		log.Warn().Str("event", name).Msg("SSE buffer full, dropping event")
	}
}

func (s *Service) pumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.sseBroadcaster.Broadcast(ev.name, ev.data)
		}
	}
}

// Run serves HTTP on the configured port until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.config.WorkerPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves HTTP on ln until ctx is cancelled.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go s.pumpEvents(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()
	s.ready.Store(true)
	log.Info().Str("addr", ln.Addr().String()).Str("version", s.version).Msg("Worker listening")

	select {
	case err := <-errCh:
		s.ready.Store(false)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.ready.Store(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Worker shutdown incomplete")
		return err
	}
	log.Info().Msg("Worker stopped")
	return nil
}

func (s *Service) requireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			writeError(w, http.StatusServiceUnavailable, "service not ready")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("requestId", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
