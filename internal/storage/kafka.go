package storage

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// NotificationMessage is the payload pushed onto the notifications topic for
// the out-of-process delivery workers.
type NotificationMessage struct {
	ShiftID   int64  `json:"shift_id"`
	StaffID   int64  `json:"staff_id,omitempty"`
	DeviceID  int64  `json:"device_id,omitempty"`
	Channel   string `json:"channel"`
	Kind      string `json:"kind"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// KafkaPublisher publishes notification messages to the broker.
type KafkaPublisher struct {
	Writer *kafka.Writer
}

// NewKafkaWriter builds a writer for the given topic.
func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(broker),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Writer: writer}
}

// PublishNotification writes one notification message, keyed by shift so
// per-shift ordering is preserved across partitions.
func (p *KafkaPublisher) PublishNotification(ctx context.Context, msg NotificationMessage) error {
	payload, _ := json.Marshal(msg)
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(msg.ShiftID, 10)),
		Value: payload,
	})
}
