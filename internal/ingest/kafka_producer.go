package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer writes events to one topic, and profile_location events
// to a separate location topic when one is set.
type KafkaProducer struct {
	writer         messageWriter
	locationWriter messageWriter
	timeout        time.Duration
}

func NewKafkaProducer(brokers []string, topic, locationTopic string) *KafkaProducer {
	p := &KafkaProducer{
		writer:  &kafka.Writer{Addr: kafka.TCP(brokers...), Topic: topic, Balancer: &kafka.Hash{}},
		timeout: 2 * time.Second,
	}
	if locationTopic != "" && locationTopic != topic {
		p.locationWriter = &kafka.Writer{Addr: kafka.TCP(brokers...), Topic: locationTopic, Balancer: &kafka.Hash{}}
	}
	return p
}

func (k *KafkaProducer) Publish(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Kind, err)
	}
	w := k.writer
	if ev.Kind == EventProfileLocation && k.locationWriter != nil {
		w = k.locationWriter
	}
	msg := kafka.Message{
		Key:     []byte(ev.Key),
		Value:   b,
		Headers: []kafka.Header{{Key: "kind", Value: []byte(ev.Kind)}},
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Kind, err)
	}
	return nil
}

func (k *KafkaProducer) Close() error {
	var err error
	if k.writer != nil {
		err = k.writer.Close()
	}
	if k.locationWriter != nil {
		if cerr := k.locationWriter.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
