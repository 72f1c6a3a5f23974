package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/soilsense/internal/kv"
	"github.com/thebtf/soilsense/pkg/models"
)

// StorageKey is the store key holding the serialized reminder list.
const StorageKey = "soilAnalysisReminders"

var (
	// ErrInvalidDelay is returned for negative delays.
	ErrInvalidDelay = errors.New("reminder: delay must not be negative")
	// ErrEmptyMessage is returned when the message is blank.
	ErrEmptyMessage = errors.New("reminder: message is required")
)

// Scheduler records reminders and forwards them to a Notifier.
// The local list is appended regardless of whether the notifier succeeds.
type Scheduler struct {
	notifier Notifier
	store    kv.Store
	now      func() time.Time
	noRearm  bool

	mu        sync.Mutex
	reminders []models.Reminder
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithStore persists the reminder list to store.
func WithStore(store kv.Store) SchedulerOption {
	return func(s *Scheduler) { s.store = store }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithoutRearm makes Load restore the list without handing pending reminders
// back to the notifier.
func WithoutRearm() SchedulerOption {
	return func(s *Scheduler) { s.noRearm = true }
}

// NewScheduler creates a scheduler delivering through notifier.
func NewScheduler(notifier Notifier, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		notifier:  notifier,
		now:       time.Now,
		reminders: []models.Reminder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule computes fireAt = now + delay, asks the notifier to deliver it and
// appends the reminder to the local list. A notifier failure is logged and
// does not fail the call.
func (s *Scheduler) Schedule(ctx context.Context, message string, delay time.Duration) (models.Reminder, error) {
	if delay < 0 {
		return models.Reminder{}, ErrInvalidDelay
	}
	if message == "" {
		return models.Reminder{}, ErrEmptyMessage
	}

	now := s.now().UTC()
	rem := models.Reminder{
		ID:            uuid.New().String(),
		Message:       message,
		ScheduledTime: now.Add(delay),
		CreatedAt:     now,
	}

	if s.notifier != nil {
		if err := s.notifier.ScheduleLocal(ctx, message, rem.ScheduledTime); err != nil {
			log.Warn().Err(fmt.Errorf("%w: %v", ErrNotificationScheduling, err)).
				Str("reminder", rem.ID).
				Msg("Notification not scheduled, keeping local reminder")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append(s.reminders, rem)
	s.persist(ctx, s.snapshotLocked())
	return rem, nil
}

// Load restores persisted reminders and re-arms the ones still in the future
// unless the scheduler was built WithoutRearm.
func (s *Scheduler) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	blob, ok, err := s.store.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}
	var loaded []models.Reminder
	if ok && blob != "" {
		if err := json.Unmarshal([]byte(blob), &loaded); err != nil {
			return fmt.Errorf("decode reminders: %w", err)
		}
	}
	if loaded == nil {
		loaded = []models.Reminder{}
	}

	s.mu.Lock()
	s.reminders = loaded
	s.mu.Unlock()

	now := s.now()
	rearmed := 0
	for _, rem := range loaded {
		if rem.Due(now) || s.notifier == nil || s.noRearm {
			continue
		}
		if err := s.notifier.ScheduleLocal(ctx, rem.Message, rem.ScheduledTime); err != nil {
			log.Warn().Err(err).Str("reminder", rem.ID).Msg("Failed to re-arm reminder")
			continue
		}
		rearmed++
	}
	log.Debug().Int("reminders", len(loaded)).Int("rearmed", rearmed).Msg("Reminders loaded")
	return nil
}

// Reminders returns a copy of the local reminder list, oldest first.
func (s *Scheduler) Reminders() []models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Pending returns reminders whose fire time is after now.
func (s *Scheduler) Pending() []models.Reminder {
	now := s.now()
	var out []models.Reminder
	for _, rem := range s.Reminders() {
		if !rem.Due(now) {
			out = append(out, rem)
		}
	}
	return out
}

// Close releases the notifier when it holds resources such as timers or a
// broker connection.
func (s *Scheduler) Close() {
	if c, ok := s.notifier.(interface{ Close() }); ok {
		c.Close()
	}
}

func (s *Scheduler) snapshotLocked() []models.Reminder {
	out := make([]models.Reminder, len(s.reminders))
	copy(out, s.reminders)
	return out
}

func (s *Scheduler) persist(ctx context.Context, reminders []models.Reminder) {
	if s.store == nil {
		return
	}
	data, err := json.Marshal(reminders)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode reminders")
		return
	}
	if err := s.store.Set(ctx, StorageKey, string(data)); err != nil {
		log.Error().Err(err).Msg("Failed to persist reminders")
	}
}
