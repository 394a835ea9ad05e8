package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/pkg/metric"
	"github.com/rs/zerolog/log"
	kafka "github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
)

var captureWriter *kafka.Writer

// InitCaptureLogger initializes the Kafka writer that ships captured
// inference records to the capture topic. Without broker config the gateway
// still serves predictions, it just captures nothing.
func InitCaptureLogger() {
	brokers := viper.GetString("CAPTURE_KAFKA_BROKERS")
	if brokers == "" {
		log.Info().Msg("Capture Kafka brokers not configured, inference capture disabled")
		return
	}
	topic := viper.GetString("CAPTURE_KAFKA_TOPIC")
	if topic == "" {
		log.Info().Msg("Capture Kafka topic not configured, inference capture disabled")
		return
	}

	captureWriter = &kafka.Writer{
		Addr:         kafka.TCP(brokers),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
	}
	log.Info().Msgf("Capture writer initialised for topic: %s", topic)
}

// PublishCaptureRecord sends one captured record to the capture topic, keyed
// by endpoint so an endpoint's records stay ordered within a partition.
func PublishCaptureRecord(rec capture.Record) error {
	if captureWriter == nil {
		return nil
	}

	data, err := json.Marshal(rec)
	metricTags := []string{"endpoint:" + rec.EndpointName}
	if err != nil {
		metric.Incr("capture_publish_error", append(metricTags, "error:marshal"))
		return fmt.Errorf("failed to encode capture record %s: %w", rec.EventID, err)
	}

	if err := captureWriter.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(rec.EndpointName),
		Value: data,
	}); err != nil {
		metric.Incr("capture_publish_error", append(metricTags, "error:kafka"))
		return fmt.Errorf("failed to publish capture record %s: %w", rec.EventID, err)
	}

	metric.Incr("capture_records_published", metricTags)
	return nil
}

// CloseCaptureLogger flushes and closes the capture writer.
func CloseCaptureLogger() {
	if captureWriter != nil {
		if err := captureWriter.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing capture writer")
		}
	}
}
