package listeners

import (
	"encoding/json"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	kafkaConf "github.com/Meesho/BharatMLStack/vigil/internal/consumer/config"
	"github.com/Meesho/BharatMLStack/vigil/pkg/metric"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog/log"
)

const (
	envPrefix            = "KAFKA_CONSUMERS_CAPTURE_CONSUMER"
	bootstrapServers     = "bootstrap.servers"
	groupID              = "group.id"
	autoOffsetReset      = "auto.offset.reset"
	enableAutoCommit     = "enable.auto.commit"
	autoCommitIntervalMs = "auto.commit.interval.ms"
	saslUsername         = "sasl.username"
	saslPassword         = "sasl.password"
	saslMechanism        = "sasl.mechanisms"
	securityProtocol     = "security.protocol"
	clientId             = "client.id"
)

var (
	once          sync.Once
	kafkaListener *KafkaListener
)

// KafkaListener drains the capture topic and persists inference records into
// the capture store, where monitor runs read them back by time window.
type KafkaListener struct {
	store       *capture.Store
	consumer    *kafka.Consumer
	kafkaConfig *kafkaConf.KafkaConfig
	sigChan     chan os.Signal
}

func NewKafkaListener(store *capture.Store) *KafkaListener {
	once.Do(func() {
		kafkaConfig, err := kafkaConf.BuildConfigFromEnv(envPrefix)
		if err != nil {
			log.Panic().Err(err).Msg("Failed to build kafka config")
		}
		kafkaListener = &KafkaListener{
			store:       store,
			kafkaConfig: kafkaConfig,
		}
	})
	return kafkaListener
}

func (k *KafkaListener) Init() {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		bootstrapServers:     k.kafkaConfig.BootstrapURLs,
		groupID:              k.kafkaConfig.GroupID,
		autoOffsetReset:      k.kafkaConfig.AutoOffsetReset,
		enableAutoCommit:     k.kafkaConfig.AutoCommitEnable,
		autoCommitIntervalMs: k.kafkaConfig.AutoCommitIntervalInMs,
		saslUsername:         k.kafkaConfig.SaslUsername,
		saslPassword:         k.kafkaConfig.SaslPassword,
		securityProtocol:     k.kafkaConfig.SecurityProtocol,
		saslMechanism:        k.kafkaConfig.SaslMechanism,
		clientId:             k.kafkaConfig.ClientID,
	})
	if err != nil {
		log.Panic().Err(err).Msg("Failed to create Kafka consumer")
	}
	if err := consumer.SubscribeTopics([]string{k.kafkaConfig.Topic}, nil); err != nil {
		log.Panic().Err(err).Msgf("Failed to subscribe to topic %s", k.kafkaConfig.Topic)
	}
	k.consumer = consumer

	k.sigChan = make(chan os.Signal, 1)
	signal.Notify(k.sigChan, syscall.SIGINT, syscall.SIGTERM)
}

// Consume polls until SIGINT/SIGTERM, batching messages and flushing them to
// the store either when the batch fills or on the flush ticker.
func (k *KafkaListener) Consume() {
	c := k.consumer
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			partitions, _ := c.Assignment()
			if _, err := c.SeekPartitions(partitions); err != nil {
				log.Error().Msg("Failed to seek partitions after panic")
			}
			metric.Incr("consumer_panic", []string{"group:" + k.kafkaConfig.GroupID})
		}
	}()

	batch := make([]*kafka.Message, 0, k.kafkaConfig.BatchSize)
	flushTimer := time.NewTicker(time.Duration(k.kafkaConfig.FlushIntervalSec) * time.Second)
	defer flushTimer.Stop()

	run := true
	for run {
		select {
		case <-k.sigChan:
			log.Info().Msg("Terminating capture consumer")
			if len(batch) > 0 {
				k.process(batch)
			}
			if err := c.Unsubscribe(); err != nil {
				log.Error().Msg("Error while unsubscribing topic")
			}
			if err := c.Close(); err != nil {
				log.Error().Msg("Error while closing consumer")
			}
			run = false

		case <-flushTimer.C:
			if len(batch) > 0 {
				k.process(batch)
				batch = batch[:0]
			}

		default:
			ev := c.Poll(k.kafkaConfig.PollTimeout)
			if ev == nil {
				continue
			}
			switch e := ev.(type) {
			case *kafka.Message:
				metric.Incr("capture_events_consumed", []string{
					"topic:" + *e.TopicPartition.Topic,
					"group:" + k.kafkaConfig.GroupID,
				})
				batch = append(batch, e)
				if len(batch) >= k.kafkaConfig.BatchSize {
					k.process(batch)
					batch = batch[:0]
				}

			case kafka.Error:
				if e.IsFatal() {
					log.Error().Err(e).Msg("Fatal Kafka error, shutting down consumer")
					if len(batch) > 0 {
						k.process(batch)
					}
					run = false
				} else {
					log.Error().Err(e).Msg("Non-fatal Kafka error")
				}

			default:
				log.Debug().Msgf("Ignored event: %#v", e)
			}
		}
	}
}

func (k *KafkaListener) process(messages []*kafka.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Panic while processing batch: %v\n%s", r, debug.Stack())
		}
	}()

	records := make([]capture.Record, 0, len(messages))
	for _, msg := range messages {
		var rec capture.Record
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			// A record that cannot be decoded is dropped, not retried;
			// redelivery would not make it parseable.
			log.Error().Err(err).Msg("Failed to decode capture record, skipping")
			metric.Incr("capture_decode_error", []string{"group:" + k.kafkaConfig.GroupID})
			continue
		}
		records = append(records, rec)
	}

	startOffset := messages[0].TopicPartition
	if err := k.store.Append(records); err != nil {
		log.Error().Err(err).Msg("Failed to persist capture batch")
		metric.Incr("capture_persist_error", []string{"group:" + k.kafkaConfig.GroupID})
		if !k.kafkaConfig.AutoCommitEnable {
			if _, seekErr := k.consumer.SeekPartitions([]kafka.TopicPartition{startOffset}); seekErr != nil {
				log.Error().Msg("Failed to seek partitions after persist failure")
			}
		}
		return
	}

	metric.Count("capture_records_persisted", int64(len(records)), []string{"group:" + k.kafkaConfig.GroupID})
	if !k.kafkaConfig.AutoCommitEnable {
		if _, err := k.consumer.Commit(); err != nil {
			log.Error().Err(err).Msg("Failed to commit offsets")
		}
	}
}
