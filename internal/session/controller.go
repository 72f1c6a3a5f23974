// Package session drives a single soil analysis session: sampling, report
// rendering, history persistence, the progress indicator and reminders.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/soilsense/internal/analysis"
	"github.com/thebtf/soilsense/internal/history"
	"github.com/thebtf/soilsense/internal/metrics"
	"github.com/thebtf/soilsense/internal/reminder"
	"github.com/thebtf/soilsense/pkg/models"
)

var (
	// ErrAnalysisInProgress is returned when a start is requested while running.
	ErrAnalysisInProgress = errors.New("session: analysis already in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session: controller closed")
)

const (
	DefaultTickInterval = time.Second
	DefaultProgressStep = 20
)

// Options configures a Controller. History is required.
type Options struct {
	Sampler      analysis.Sampler
	History      *history.Log
	Scheduler    *reminder.Scheduler
	Metrics      *metrics.Recorder
	TickInterval time.Duration
	ProgressStep int
	Now          func() time.Time
}

// Controller owns the session state. Only one analysis runs at a time.
//
// Progress is a fixed-cadence animation that is independent of completion:
// it advances by ProgressStep every TickInterval until 100, and is cancelled
// when a new analysis starts or the controller closes.
type Controller struct {
	sampler   analysis.Sampler
	history   *history.Log
	scheduler *reminder.Scheduler
	metrics   *metrics.Recorder
	tick      time.Duration
	step      int
	now       func() time.Time

	mu         sync.Mutex
	state      models.SessionState
	closed     bool
	generation uint64
	stopTicker context.CancelFunc
	tickers    sync.WaitGroup

	listenersMu  sync.RWMutex
	listeners    map[int]Listener
	nextListener int
}

// New creates a controller in the idle state.
func New(opts Options) (*Controller, error) {
	if opts.History == nil {
		return nil, fmt.Errorf("session: history is required")
	}
	if opts.Sampler == nil {
		opts.Sampler = analysis.NewRandomSampler()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = reminder.NewScheduler(nil)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.ProgressStep <= 0 {
		opts.ProgressStep = DefaultProgressStep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Controller{
		sampler:   opts.Sampler,
		history:   opts.History,
		scheduler: opts.Scheduler,
		metrics:   opts.Metrics,
		tick:      opts.TickInterval,
		step:      opts.ProgressStep,
		now:       opts.Now,
		state:     models.IdleState(),
		listeners: make(map[int]Listener),
	}, nil
}

// Load hydrates history and reminders from the store. Failures are logged and
// returned; the controller stays usable with whatever could be loaded.
func (c *Controller) Load(ctx context.Context) error {
	var errs []error
	if err := c.history.Load(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.scheduler.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to load reminders")
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StartAnalysis runs one analysis: it starts the progress indicator, samples a
// reading, renders the report and appends it to history. The returned error is
// ErrAnalysisInProgress, ErrClosed, or a history storage error. The session
// never stays running after this returns.
func (c *Controller) StartAnalysis(ctx context.Context, plantType string) (models.AnalysisRecord, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return models.AnalysisRecord{}, ErrClosed
	}
	if c.state.Phase == models.PhaseRunning {
		c.mu.Unlock()
		c.metrics.AnalysisRejected(ctx)
		log.Debug().Msg("Analysis start rejected, already running")
		return models.AnalysisRecord{}, ErrAnalysisInProgress
	}

	c.generation++
	gen := c.generation
	if c.stopTicker != nil {
		c.stopTicker()
	}
	tickCtx, cancel := context.WithCancel(context.Background())
	c.stopTicker = cancel
	c.state = Reduce(c.state, ActionStart{})
	started := c.state
	c.tickers.Add(1)
	c.mu.Unlock()

	go c.runTicker(tickCtx, gen)
	c.emit(Event{Type: EventStarted, State: started})
	c.metrics.AnalysisStarted(ctx, plantType)

	reading := c.sampler.Sample()
	report := analysis.Evaluate(reading)
	rec := models.NewAnalysisRecord(uuid.New().String(), reading, report, plantType, c.now())

	c.dispatch(ActionReportReady{Report: report})

	if err := c.history.Append(ctx, rec); err != nil {
		st := c.dispatch(ActionPersistFailed{Err: err})
		log.Error().Err(err).Str("record", rec.ID).Msg("Failed to record analysis")
		c.metrics.AnalysisFailed(ctx, failureReason(err))
		c.emit(Event{Type: EventFailed, State: st, Record: &rec, Error: err.Error()})
		return rec, err
	}

	st := c.dispatch(ActionPersisted{})
	log.Info().
		Str("record", rec.ID).
		Float64("ph", reading.PH).
		Int("moisture", reading.Moisture).
		Int("temp", reading.Temperature).
		Msg("Analysis recorded")
	c.metrics.AnalysisCompleted(ctx, len(report))
	c.emit(Event{Type: EventCompleted, State: st, Record: &rec})
	return rec, nil
}

// SampleReading returns a fresh reading without running an analysis.
func (c *Controller) SampleReading() models.Reading {
	return c.sampler.Sample()
}

// ScheduleReminder schedules message to fire after delay.
func (c *Controller) ScheduleReminder(ctx context.Context, message string, delay time.Duration) (models.Reminder, error) {
	rem, err := c.scheduler.Schedule(ctx, message, delay)
	if err != nil {
		return models.Reminder{}, err
	}
	c.metrics.ReminderScheduled(ctx)
	c.emit(Event{Type: EventReminderScheduled, State: c.State(), Reminder: &rem})
	return rem, nil
}

// DismissResult hides the result panel.
func (c *Controller) DismissResult() models.SessionState {
	st := c.dispatch(ActionDismissResult{})
	c.emit(Event{Type: EventDismissed, State: st})
	return st
}

// Reset returns a finished session to idle.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase == models.PhaseRunning {
		return ErrAnalysisInProgress
	}
	c.generation++
	if c.stopTicker != nil {
		c.stopTicker()
		c.stopTicker = nil
	}
	c.state = Reduce(c.state, ActionReset{})
	return nil
}

// State returns a snapshot of the session state.
func (c *Controller) State() models.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// History returns the recorded analyses, oldest first.
func (c *Controller) History() []models.AnalysisRecord {
	return c.history.Records()
}

// RecentHistory returns up to limit of the newest records, oldest first.
func (c *Controller) RecentHistory(limit int) []models.AnalysisRecord {
	return c.history.Recent(limit)
}

// HistoryLen returns the number of recorded analyses.
func (c *Controller) HistoryLen() int {
	return c.history.Len()
}

// LatestRecord returns the newest record.
func (c *Controller) LatestRecord() (models.AnalysisRecord, bool) {
	return c.history.Latest()
}

// ClearHistory removes every recorded analysis.
func (c *Controller) ClearHistory(ctx context.Context) error {
	return c.history.Clear(ctx)
}

// Reminders returns the scheduled reminders, oldest first.
func (c *Controller) Reminders() []models.Reminder {
	return c.scheduler.Reminders()
}

// Subscribe registers l for events and returns a function that removes it.
func (c *Controller) Subscribe(l Listener) func() {
	c.listenersMu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = l
	c.listenersMu.Unlock()

	return func() {
		c.listenersMu.Lock()
		delete(c.listeners, id)
		c.listenersMu.Unlock()
	}
}

// Close stops the progress indicator and pending reminders. It waits for the
// ticker goroutine to exit. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	if c.stopTicker != nil {
		c.stopTicker()
		c.stopTicker = nil
	}
	c.mu.Unlock()

	c.tickers.Wait()
	c.scheduler.Close()
}

func (c *Controller) runTicker(ctx context.Context, gen uint64) {
	defer c.tickers.Done()

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return
		}
		next := c.state.ProgressPercent + c.step
		c.state = Reduce(c.state, ActionProgress{Percent: next})
		st := c.state
		c.mu.Unlock()

		c.emit(Event{Type: EventProgress, State: st})
		if st.ProgressPercent >= 100 {
			return
		}
	}
}

func (c *Controller) dispatch(a Action) models.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, a)
	return c.state
}

func (c *Controller) emit(ev Event) {
	c.listenersMu.RLock()
	defer c.listenersMu.RUnlock()
	for _, l := range c.listeners {
		l(ev)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, history.ErrStorageRead):
		return "storage_read"
	case errors.Is(err, history.ErrSerialization):
		return "serialization"
	case errors.Is(err, history.ErrStorageWrite):
		return "storage_write"
	}
	return "unknown"
}
