package reporter

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

// MQTTConfig carries the broker settings for the MQTT reporter.
type MQTTConfig struct {
	Server   string
	Username string
	Password string
	ClientID string
	Topic    string
	PackName string
	PackCode string
}

// MQTT publishes each accepted sample as a JSON payload. Publishes are
// fire-and-forget: the sampling cadence never waits on the broker.
type MQTT struct {
	client mqtt.Client
	topic  string
	pack   string
	code   string
}

func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Server, token.Error())
	}
	return &MQTT{client: client, topic: cfg.Topic, pack: cfg.PackName, code: cfg.PackCode}, nil
}

func (m *MQTT) Report(s domain.Sample) {
	payload := map[string]any{
		"ts":                      s.Timestamp.Format(time.RFC3339Nano),
		"internal_resistance_ohm": s.InternalResistance,
		"open_circuit_voltage_v":  s.OpenCircuitVoltage,
	}
	if m.pack != "" {
		payload["pack_name"] = m.pack
	}
	if m.code != "" {
		payload["pack_code"] = m.code
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("mqtt reporter: marshal: %v", err)
		return
	}
	// Not waiting on the token keeps the loop decoupled from broker
	// latency; delivery errors only matter for the live view.
	m.client.Publish(m.topic, 0, false, b)
}

func (m *MQTT) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

var _ ports.Reporter = (*MQTT)(nil)
