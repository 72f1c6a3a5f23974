package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/soilsense/internal/kv"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (n *recordingNotifier) ScheduleLocal(_ context.Context, _ string, fireAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, fireAt)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type SchedulerSuite struct {
	suite.Suite
	store    *kv.MemoryStore
	notifier *recordingNotifier
	now      time.Time
	sched    *Scheduler
}

func (s *SchedulerSuite) SetupTest() {
	s.store = kv.NewMemoryStore()
	s.notifier = &recordingNotifier{}
	s.now = time.Date(2026, 4, 10, 8, 0, 0, 0, time.UTC)
	s.sched = NewScheduler(s.notifier, WithStore(s.store), WithClock(func() time.Time { return s.now }))
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) TestSchedule_ComputesFireTime() {
	rem, err := s.sched.Schedule(context.Background(), "Time to water your plants!", 10*time.Second)
	s.Require().NoError(err)

	s.NotEmpty(rem.ID)
	s.Equal(s.now.Add(10*time.Second), rem.ScheduledTime)
	s.Equal(s.now, rem.CreatedAt)
	s.Require().Len(s.notifier.calls, 1)
	s.Equal(rem.ScheduledTime, s.notifier.calls[0])
	s.Len(s.sched.Reminders(), 1)
}

func (s *SchedulerSuite) TestSchedule_ZeroDelay() {
	rem, err := s.sched.Schedule(context.Background(), "now", 0)
	s.Require().NoError(err)
	s.Equal(s.now, rem.ScheduledTime)
}

func (s *SchedulerSuite) TestSchedule_NegativeDelayRejected() {
	_, err := s.sched.Schedule(context.Background(), "m", -time.Second)
	s.ErrorIs(err, ErrInvalidDelay)
	s.Empty(s.sched.Reminders())
	s.Equal(0, s.notifier.count())
}

func (s *SchedulerSuite) TestSchedule_EmptyMessageRejected() {
	_, err := s.sched.Schedule(context.Background(), "", time.Second)
	s.ErrorIs(err, ErrEmptyMessage)
}

func (s *SchedulerSuite) TestSchedule_NotifierFailureKeepsLocalReminder() {
	s.notifier.err = errors.New("permission denied")

	rem, err := s.sched.Schedule(context.Background(), "m", time.Minute)
	s.Require().NoError(err)

	reminders := s.sched.Reminders()
	s.Require().Len(reminders, 1)
	s.Equal(rem.ID, reminders[0].ID)
}

func (s *SchedulerSuite) TestSchedule_PersistsAndLoads() {
	_, err := s.sched.Schedule(context.Background(), "soon", time.Minute)
	s.Require().NoError(err)
	_, err = s.sched.Schedule(context.Background(), "instant", 0)
	s.Require().NoError(err)

	blob, ok, err := s.store.Get(context.Background(), StorageKey)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Contains(blob, "soon")

	reloadNotifier := &recordingNotifier{}
	later := s.now.Add(time.Second)
	reloaded := NewScheduler(reloadNotifier, WithStore(s.store), WithClock(func() time.Time { return later }))
	s.Require().NoError(reloaded.Load(context.Background()))

	s.Len(reloaded.Reminders(), 2)
	// Only the reminder still in the future is re-armed.
	s.Equal(1, reloadNotifier.count())
	s.Len(reloaded.Pending(), 1)
}

func (s *SchedulerSuite) TestLoad_WithoutRearm() {
	_, err := s.sched.Schedule(context.Background(), "soon", time.Minute)
	s.Require().NoError(err)

	reloadNotifier := &recordingNotifier{}
	reloaded := NewScheduler(reloadNotifier,
		WithStore(s.store),
		WithClock(func() time.Time { return s.now }),
		WithoutRearm(),
	)
	s.Require().NoError(reloaded.Load(context.Background()))

	s.Len(reloaded.Pending(), 1)
	s.Equal(0, reloadNotifier.count())
}

func (s *SchedulerSuite) TestLoad_MissingKey() {
	s.Require().NoError(s.sched.Load(context.Background()))
	s.Empty(s.sched.Reminders())
}

func (s *SchedulerSuite) TestLoad_MalformedBlob() {
	s.Require().NoError(s.store.Set(context.Background(), StorageKey, "{nope"))
	s.Error(s.sched.Load(context.Background()))
}

func (s *SchedulerSuite) TestSchedule_StoreFailureKeepsLocalReminder() {
	faulty := kv.NewFaultyStore(s.store)
	faulty.FailSets(kv.ErrInjected)
	sched := NewScheduler(s.notifier, WithStore(faulty))

	_, err := sched.Schedule(context.Background(), "m", time.Second)
	s.Require().NoError(err)
	s.Len(sched.Reminders(), 1)
}

func TestScheduler_RemindersReturnsCopy(t *testing.T) {
	sched := NewScheduler(nil)
	_, err := sched.Schedule(context.Background(), "m", time.Second)
	require.NoError(t, err)

	got := sched.Reminders()
	got[0].Message = "changed"
	assert.Equal(t, "m", sched.Reminders()[0].Message)
}

func TestScheduler_CloseStopsLocalNotifier(t *testing.T) {
	n := NewLocalNotifier(nil)
	sched := NewScheduler(n)

	_, err := sched.Schedule(context.Background(), "m", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n.Pending())

	sched.Close()
	assert.Equal(t, 0, n.Pending())
}
