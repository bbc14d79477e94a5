package sink

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

type MQTTConfig struct {
	Broker   string // "tcp://host:1883"
	Topic    string
	ClientID string
}

// MQTT publishes each record as a compact JSON document, QoS 0 and
// retained, so subscribers always see the last known position immediately.
type MQTT struct {
	cfg    MQTTConfig
	client mqtt.Client
}

type mqttRecord struct {
	telemetry.Record
	telemetry.Link
	ReceivedUTC string `json:"received_utc"`
}

func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt sink broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("mqtt sink topic is required")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectRetry(true).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}

	return &MQTT{cfg: cfg, client: client}, nil
}

func (m *MQTT) Write(rec telemetry.Record, link telemetry.Link) error {
	payload, err := json.Marshal(mqttRecord{
		Record:      rec,
		Link:        link,
		ReceivedUTC: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("mqtt sink marshal: %w", err)
	}

	token := m.client.Publish(m.cfg.Topic, 0, true, payload)
	// Bounded wait: a wedged broker connection must not stall the receive
	// loop longer than one record interval.
	if !token.WaitTimeout(time.Second) {
		return fmt.Errorf("mqtt sink publish timeout on %s", m.cfg.Topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("mqtt sink publish %s: %w", m.cfg.Topic, token.Error())
	}
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
