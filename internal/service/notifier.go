package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-patients/internal/domain"

	"github.com/google/uuid"
)

// RegistrationNotifier 患者登记成功后的通知
type RegistrationNotifier interface {
	PatientRegistered(ctx context.Context, p domain.Patient) error
}

// NopNotifier 不发送任何通知（MQTT 未启用时）
type NopNotifier struct{}

func (NopNotifier) PatientRegistered(context.Context, domain.Patient) error { return nil }

// Publisher MQTT 发布接口（由 internal/mqtt.Client 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// PatientRegisteredEvent 发布到 MQTT 的事件体（不含病史等敏感字段）
type PatientRegisteredEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	PatientID    string    `json:"patient_id"`
	RegisteredAt time.Time `json:"registered_at"`
	Link         string    `json:"link"`
}

// MQTTNotifier 以 JSON 事件发布登记通知
type MQTTNotifier struct {
	pub     Publisher
	topic   string
	qos     byte
	baseURL string
}

func NewMQTTNotifier(pub Publisher, topic string, qos byte, baseURL string) *MQTTNotifier {
	return &MQTTNotifier{pub: pub, topic: topic, qos: qos, baseURL: baseURL}
}

func (n *MQTTNotifier) PatientRegistered(_ context.Context, p domain.Patient) error {
	payload, err := json.Marshal(PatientRegisteredEvent{
		EventID:      uuid.NewString(),
		EventType:    "patient.registered",
		PatientID:    p.Identifier,
		RegisteredAt: p.RegisteredAt,
		Link:         PatientLink(n.baseURL, p.Identifier),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal registration event: %w", err)
	}
	return n.pub.Publish(n.topic, n.qos, false, payload)
}
