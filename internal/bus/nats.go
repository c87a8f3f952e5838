// Package bus bridges the controller onto NATS: raw readings and fused zone
// status arrive as JSON messages, alerts and shutdown lifecycle events fan
// out to the vehicle control system and telemetry consumers.
package bus

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"thermoguard/internal/notify"
	"thermoguard/internal/zone"
)

const (
	SubjectReadings       = "reading.submitted"
	SubjectZoneStatus     = "zone.status"
	SubjectAlerts         = "thermo.alert"
	SubjectShutdownEvents = "thermo.shutdown"
)

// ReadingMessage is the wire form of a raw sensor sample.
type ReadingMessage struct {
	SensorID      string    `json:"sensor_id"`
	Current       float64   `json:"current"`
	Voltage       float64   `json:"voltage"`
	Temperature   float64   `json:"temperature"`
	Resistance    float64   `json:"resistance"`
	SignalQuality float64   `json:"signal_quality"`
	Timestamp     time.Time `json:"ts"`
}

// ZoneStatusMessage is the wire form of a fused per-zone update.
type ZoneStatusMessage struct {
	ZoneID      string   `json:"zone_id"`
	Temperature float64  `json:"temperature"`
	Power       *float64 `json:"power,omitempty"`
}

type Bus struct {
	Conn *nats.Conn
}

func Connect(url string) (*Bus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Bus{Conn: conn}, nil
}

func (b *Bus) Close() {
	if b.Conn != nil {
		b.Conn.Drain()
		b.Conn.Close()
	}
}

func (b *Bus) PublishAlert(a notify.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return b.Conn.Publish(SubjectAlerts, data)
}

func (b *Bus) PublishShutdownEvent(e zone.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.Conn.Publish(SubjectShutdownEvents+"."+e.Status, data)
}

func (b *Bus) SubscribeReadings(handler func(ReadingMessage)) (*nats.Subscription, error) {
	return b.Conn.Subscribe(SubjectReadings, func(msg *nats.Msg) {
		var m ReadingMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			return
		}
		handler(m)
	})
}

func (b *Bus) SubscribeZoneStatus(handler func(ZoneStatusMessage)) (*nats.Subscription, error) {
	return b.Conn.Subscribe(SubjectZoneStatus, func(msg *nats.Msg) {
		var m ZoneStatusMessage
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			return
		}
		handler(m)
	})
}
