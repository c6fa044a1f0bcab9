package logs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/retry"
)

// KafkaSource consumes raw log lines from a Kafka topic and feeds them to the
// aggregator. Each message value may carry one line or several separated by
// newlines.
type KafkaSource struct {
	reader *kafka.Reader
	out    chan<- string
	retry  retry.Config
}

// NewKafkaSource creates a consumer for the given brokers, topic and group.
func NewKafkaSource(brokers []string, topic, groupID string, out chan<- string) (*KafkaSource, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka group id is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    10e3,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	slog.Info("Starting Kafka log source",
		"brokers", brokers,
		"topic", topic,
		"group_id", groupID)

	return &KafkaSource{
		reader: reader,
		out:    out,
		retry:  retry.DefaultConfig(),
	}, nil
}

// Run consumes messages until ctx is canceled.
func (s *KafkaSource) Run(ctx context.Context) {
	attempt := 0
	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				slog.Info("Kafka log source stopped")
				return
			}
			attempt++
			backoff := retry.Backoff(s.retry, attempt)
			slog.Warn("Failed to read Kafka message",
				"error", err,
				"attempt", attempt,
				"backoff", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}
		attempt = 0

		for _, line := range strings.Split(string(msg.Value), "\n") {
			select {
			case s.out <- line:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close releases the underlying Kafka reader.
func (s *KafkaSource) Close() error {
	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %w", err)
	}
	return nil
}
