package reminder

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// MQTTConfig configures the MQTT notifier.
type MQTTConfig struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string
	QoS      byte
	Timeout  time.Duration
}

// mqttPublisher is the subset of mqtt.Client the notifier uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// mqttSchedule is the payload sent to field devices, which own the actual timer.
type mqttSchedule struct {
	Message string    `json:"message"`
	FireAt  time.Time `json:"fireAt"`
	SentAt  time.Time `json:"sentAt"`
}

// MQTTNotifier hands reminders to devices subscribed on an MQTT topic.
type MQTTNotifier struct {
	client  mqttPublisher
	closer  func()
	topic   string
	qos     byte
	timeout time.Duration
}

var _ Notifier = (*MQTTNotifier)(nil)

// NewMQTTNotifier connects to the broker.
func NewMQTTNotifier(cfg MQTTConfig) (*MQTTNotifier, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.Timeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("mqtt connect: timed out after %s", cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	log.Info().Str("broker", cfg.Broker).Str("topic", cfg.Topic).Msg("MQTT notifier connected")
	n := newMQTTNotifier(client, cfg)
	n.closer = func() { client.Disconnect(250) }
	return n, nil
}

func newMQTTNotifier(client mqttPublisher, cfg MQTTConfig) *MQTTNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MQTTNotifier{
		client:  client,
		topic:   cfg.Topic,
		qos:     cfg.QoS,
		timeout: cfg.Timeout,
	}
}

// ScheduleLocal publishes the schedule request and waits for the broker to accept it.
func (n *MQTTNotifier) ScheduleLocal(ctx context.Context, message string, fireAt time.Time) error {
	payload, err := json.Marshal(mqttSchedule{Message: message, FireAt: fireAt, SentAt: time.Now()})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationScheduling, err)
	}

	token := n.client.Publish(n.topic, n.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrNotificationScheduling, ctx.Err())
	case <-time.After(n.timeout):
		return fmt.Errorf("%w: publish timed out", ErrNotificationScheduling)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationScheduling, err)
	}
	return nil
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	if n.closer != nil {
		n.closer()
	}
}
