package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebtf/soilsense/internal/session"
	"github.com/thebtf/soilsense/pkg/models"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) snapshot() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]kafka.Message, len(w.msgs))
	copy(out, w.msgs)
	return out
}

func testRecord() *models.AnalysisRecord {
	rec := models.NewAnalysisRecord("rec-1", models.DefaultReading, "report", "basil",
		time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return &rec
}

func TestPublisher_PublishesCompletedAnalysis(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisherWithWriter(Config{Enabled: true, Topic: "soilsense.analyses"}, w)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.Listen(session.Event{Type: session.EventCompleted, Record: testRecord()})

	require.Eventually(t, func() bool { return len(w.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	msgs := w.snapshot()
	assert.Equal(t, []byte("rec-1"), msgs[0].Key)

	var got message
	require.NoError(t, json.Unmarshal(msgs[0].Value, &got))
	assert.Equal(t, session.EventCompleted, got.Type)
	assert.Equal(t, 6.5, got.PH)
	assert.Equal(t, 40, got.Moisture)
	assert.Equal(t, 25, got.Temp)
	assert.Equal(t, "basil", got.PlantType)
	assert.True(t, w.closed)
}

func TestPublisher_SkipsProgressEvents(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisherWithWriter(Config{Enabled: true, Topic: "t"}, w)

	p.Listen(session.Event{Type: session.EventProgress})
	p.Listen(session.Event{Type: session.EventStarted})
	p.Listen(session.Event{Type: session.EventCompleted})

	assert.Len(t, p.queue, 0)
}

func TestPublisher_ReminderEvent(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisherWithWriter(Config{Enabled: true, Topic: "t"}, w)

	rem := models.Reminder{ID: "r", Message: "water", ScheduledTime: time.Now().Add(time.Minute)}
	p.Listen(session.Event{Type: session.EventReminderScheduled, Reminder: &rem})

	require.Len(t, p.queue, 1)
	msg := <-p.queue
	var got message
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "water", got.Reminder)
	require.NotNil(t, got.FireAt)
}

func TestPublisher_DropsWhenQueueFull(t *testing.T) {
	p := newPublisherWithWriter(Config{Enabled: true, Topic: "t"}, &fakeWriter{})

	for i := 0; i < queueSize+3; i++ {
		p.Listen(session.Event{Type: session.EventCompleted, Record: testRecord()})
	}
	assert.Equal(t, int64(3), p.Dropped())
}

func TestPublisher_DrainsOnShutdown(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisherWithWriter(Config{Enabled: true, Topic: "t"}, w)

	for i := 0; i < 5; i++ {
		p.Listen(session.Event{Type: session.EventFailed, Record: testRecord(), Error: "boom"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))
	assert.Len(t, w.snapshot(), 5)
}

func TestNewPublisher_Disabled(t *testing.T) {
	p, err := NewPublisher(Config{})
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	p.Listen(session.Event{Type: session.EventCompleted, Record: testRecord()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, p.Run(ctx))
}

func TestNewPublisher_Validation(t *testing.T) {
	_, err := NewPublisher(Config{Enabled: true, Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	_, err = NewPublisher(Config{Enabled: true, Topic: "t"})
	assert.Error(t, err)

	p, err := NewPublisher(Config{Enabled: true, Topic: "t", Brokers: []string{"localhost:9092"}})
	require.NoError(t, err)
	assert.True(t, p.Enabled())
}
