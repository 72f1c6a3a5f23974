package models

import "time"

// Reminder is a user-scheduled notification shown in the reminders list.
type Reminder struct {
	ID            string    `json:"id"`
	Message       string    `json:"message"`
	ScheduledTime time.Time `json:"scheduledTime"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Due reports whether the reminder fire time is at or before now.
func (r Reminder) Due(now time.Time) bool {
	return !r.ScheduledTime.After(now)
}
