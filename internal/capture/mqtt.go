package capture

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions configures an MQTTSink.
type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
	QoS      byte
	Retain   bool
	Timeout  time.Duration
}

// publisher is the part of mqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes each chunk's bytes as one message.
type MQTTSink struct {
	client  publisher
	topic   string
	qos     byte
	retain  bool
	timeout time.Duration
}

// NewMQTTSink connects to the broker and returns a sink publishing to
// opts.Topic.
func NewMQTTSink(opts MQTTOptions) (*MQTTSink, error) {
	if opts.Topic == "" {
		return nil, fmt.Errorf("mqtt topic is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	co := mqtt.NewClientOptions().AddBroker(opts.Broker).SetClientID(opts.ClientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	co.SetConnectTimeout(opts.Timeout)

	client := mqtt.NewClient(co)
	tok := client.Connect()
	if !tok.WaitTimeout(opts.Timeout) {
		return nil, fmt.Errorf("MQTT connection to %s timed out", opts.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("MQTT connection failed: %w", err)
	}
	return newMQTTSink(client, opts), nil
}

func newMQTTSink(client publisher, opts MQTTOptions) *MQTTSink {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &MQTTSink{
		client:  client,
		topic:   opts.Topic,
		qos:     opts.QoS,
		retain:  opts.Retain,
		timeout: opts.Timeout,
	}
}

func (s *MQTTSink) Write(c Chunk) error {
	tok := s.client.Publish(s.topic, s.qos, s.retain, c.Data)
	if !tok.WaitTimeout(s.timeout) {
		return fmt.Errorf("MQTT publish to %s timed out", s.topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("MQTT publish error: %w", err)
	}
	return nil
}

func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
