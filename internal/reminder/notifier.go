// Package reminder schedules best-effort local notifications and keeps the
// list of reminders shown to the user.
package reminder

import (
	"context"
	"errors"
	"time"
)

// ErrNotificationScheduling marks a notifier failure. It is never fatal.
var ErrNotificationScheduling = errors.New("reminder: notification scheduling failed")

// Notifier delivers a message at a future point in time, best effort.
type Notifier interface {
	ScheduleLocal(ctx context.Context, message string, fireAt time.Time) error
}

// FireFunc is called when a locally scheduled notification fires.
type FireFunc func(message string, firedAt time.Time)
