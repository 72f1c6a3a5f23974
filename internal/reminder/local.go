package reminder

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// LocalNotifier fires notifications in-process using timers.
type LocalNotifier struct {
	mu      sync.Mutex
	timers  map[uint64]*time.Timer
	nextID  uint64
	onFire  FireFunc
	stopped bool
}

var _ Notifier = (*LocalNotifier)(nil)

// NewLocalNotifier creates a notifier that calls onFire for each delivery.
func NewLocalNotifier(onFire FireFunc) *LocalNotifier {
	return &LocalNotifier{
		timers: make(map[uint64]*time.Timer),
		onFire: onFire,
	}
}

// ScheduleLocal arms a timer for fireAt. Past fire times fire immediately.
func (n *LocalNotifier) ScheduleLocal(ctx context.Context, message string, fireAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stopped {
		return ErrNotificationScheduling
	}

	n.nextID++
	id := n.nextID
	delay := time.Until(fireAt)
	if delay < 0 {
		delay = 0
	}
	n.timers[id] = time.AfterFunc(delay, func() {
		n.fire(id, message)
	})

	log.Debug().Str("message", message).Time("fireAt", fireAt).Msg("Local notification scheduled")
	return nil
}

func (n *LocalNotifier) fire(id uint64, message string) {
	n.mu.Lock()
	_, pending := n.timers[id]
	delete(n.timers, id)
	onFire := n.onFire
	n.mu.Unlock()

	if !pending {
		return
	}

	log.Info().Str("message", message).Msg("Reminder fired")
	if onFire != nil {
		onFire(message, time.Now())
	}
}

// Pending returns the number of notifications not yet fired.
func (n *LocalNotifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.timers)
}

// Close cancels every pending notification. Later schedules fail.
func (n *LocalNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopped = true
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
}
