package kafka

import (
	"context"
	"encoding/json"

	"github.com/ParcelDesk/ParcelDesk/internal/broker/messages"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Producer struct {
	w     messageWriter
	topic string
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
		topic: topic,
	}
}

func newProducerWithWriter(w messageWriter, topic string) *Producer {
	return &Producer{w: w, topic: topic}
}

func (p *Producer) Close() error {
	if w, ok := p.w.(*kafka.Writer); ok {
		return w.Close()
	}
	return nil
}

// PublishTrackingChanged шлёт событие с ключом trackingId,
// чтобы изменения одной записи попадали в одну партицию по порядку.
func (p *Producer) PublishTrackingChanged(ctx context.Context, msg messages.TrackingChanged) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal tracking changed")
	}
	if err := p.w.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(msg.TrackingID),
		Value: value,
	}); err != nil {
		return errors.Wrap(err, "kafka publish")
	}
	return nil
}
