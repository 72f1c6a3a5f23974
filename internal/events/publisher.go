// Package events forwards analysis events to a Kafka topic.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/thebtf/soilsense/internal/session"
)

const queueSize = 256

// Config configures the publisher.
type Config struct {
	Enabled bool
	Topic   string
	Brokers []string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// message is the payload written to Kafka.
type message struct {
	Type      session.EventType `json:"type"`
	RecordID  string            `json:"recordId,omitempty"`
	PH        float64           `json:"ph,omitempty"`
	Moisture  int               `json:"moisture,omitempty"`
	Temp      int               `json:"temp,omitempty"`
	PlantType string            `json:"plantType,omitempty"`
	Result    string            `json:"result,omitempty"`
	Reminder  string            `json:"reminder,omitempty"`
	FireAt    *time.Time        `json:"fireAt,omitempty"`
	Error     string            `json:"error,omitempty"`
	At        time.Time         `json:"at"`
}

// Publisher queues session events and writes them to Kafka from a single
// goroutine. Progress events are not published.
type Publisher struct {
	cfg     Config
	writer  messageWriter
	queue   chan kafka.Message
	dropped atomic.Int64
	now     func() time.Time
}

// NewPublisher creates a publisher. A disabled config yields a publisher whose
// Enqueue and Run are no-ops.
func NewPublisher(cfg Config) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{cfg: cfg, now: time.Now}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newPublisherWithWriter(cfg, w), nil
}

func newPublisherWithWriter(cfg Config, w messageWriter) *Publisher {
	return &Publisher{
		cfg:    cfg,
		writer: w,
		queue:  make(chan kafka.Message, queueSize),
		now:    time.Now,
	}
}

// Enabled reports whether events are forwarded.
func (p *Publisher) Enabled() bool {
	return p.writer != nil
}

// Dropped returns the number of events discarded because the queue was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Listen is a session.Listener. It never blocks.
func (p *Publisher) Listen(ev session.Event) {
	if !p.Enabled() {
		return
	}
	msg, ok := p.toMessage(ev)
	if !ok {
		return
	}
	value, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("type", string(ev.Type)).Msg("Failed to encode analysis event")
		return
	}

	var key []byte
	if msg.RecordID != "" {
		key = []byte(msg.RecordID)
	}
	select {
	case p.queue <- kafka.Message{Key: key, Value: value}:
	default:
		p.dropped.Add(1)
		log.Warn().Str("type", string(ev.Type)).Msg("Event queue full, dropping analysis event")
	}
}

// Run writes queued events until ctx is done, then drains the queue and
// closes the writer.
func (p *Publisher) Run(ctx context.Context) error {
	if !p.Enabled() {
		<-ctx.Done()
		return nil
	}
	log.Info().Str("topic", p.cfg.Topic).Strs("brokers", p.cfg.Brokers).Msg("Event publisher started")

	for {
		select {
		case <-ctx.Done():
			p.drain()
			if err := p.writer.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close kafka writer")
			}
			log.Info().Msg("Event publisher stopped")
			return nil
		case msg := <-p.queue:
			p.deliver(ctx, msg)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-p.queue:
			p.deliver(ctx, msg)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, msg kafka.Message) {
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error().Err(err).Str("topic", p.cfg.Topic).Msg("Failed to publish analysis event")
	}
}

func (p *Publisher) toMessage(ev session.Event) (message, bool) {
	msg := message{Type: ev.Type, At: p.now().UTC(), Error: ev.Error}
	switch ev.Type {
	case session.EventCompleted, session.EventFailed:
		if ev.Record == nil {
			return message{}, false
		}
		msg.RecordID = ev.Record.ID
		msg.PH = ev.Record.Reading.PH
		msg.Moisture = ev.Record.Reading.Moisture
		msg.Temp = ev.Record.Reading.Temperature
		msg.PlantType = ev.Record.PlantType
		msg.Result = ev.Record.ReportText
	case session.EventReminderScheduled:
		if ev.Reminder == nil {
			return message{}, false
		}
		msg.Reminder = ev.Reminder.Message
		fireAt := ev.Reminder.ScheduledTime
		msg.FireAt = &fireAt
	default:
		return message{}, false
	}
	return msg, true
}
