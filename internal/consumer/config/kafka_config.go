package config

import (
	"errors"

	"github.com/spf13/viper"
)

const (
	topic                = "_TOPIC"
	bootstrapURLs        = "_BOOTSTRAP_SERVERS"
	groupID              = "_GROUP_ID"
	autoOffsetReset      = "_AUTO_OFFSET_RESET"
	autoCommitEnable     = "_ENABLE_AUTO_COMMIT"
	autoCommitIntervalMs = "_AUTO_COMMIT_INTERVAL_MS"
	clientId             = "_CLIENT_ID"
	batchSize            = "_BATCH_SIZE"
	pollTimeout          = "_POLL_TIMEOUT"
	flushIntervalSec     = "_FLUSH_INTERVAL_SEC"
	saslUsername         = "_SASL_USERNAME"
	saslPassword         = "_SASL_PASSWORD"
	saslMechanism        = "_SASL_MECHANISM"
	securityProtocol     = "_SECURITY_PROTOCOL"
)

const (
	defaultBatchSize        = 100
	defaultPollTimeoutMs    = 100
	defaultFlushIntervalSec = 30
)

// KafkaConfig describes one consumer group reading the capture topic. Values
// come from env variables under a per-consumer prefix.
type KafkaConfig struct {
	BootstrapURLs          string
	GroupID                string
	ClientID               string
	Topic                  string
	AutoOffsetReset        string
	SaslUsername           string
	SaslPassword           string
	SaslMechanism          string
	SecurityProtocol       string
	AutoCommitIntervalInMs int
	AutoCommitEnable       bool
	BatchSize              int
	PollTimeout            int
	FlushIntervalSec       int
}

func BuildConfigFromEnv(envPrefix string) (*KafkaConfig, error) {
	for _, key := range []string{topic, bootstrapURLs, groupID, clientId} {
		if !viper.IsSet(envPrefix + key) {
			return nil, errors.New(envPrefix + key + " not set")
		}
	}

	cfg := &KafkaConfig{
		Topic:                  viper.GetString(envPrefix + topic),
		BootstrapURLs:          viper.GetString(envPrefix + bootstrapURLs),
		GroupID:                viper.GetString(envPrefix + groupID),
		ClientID:               viper.GetString(envPrefix + clientId),
		AutoOffsetReset:        viper.GetString(envPrefix + autoOffsetReset),
		SaslUsername:           viper.GetString(envPrefix + saslUsername),
		SaslPassword:           viper.GetString(envPrefix + saslPassword),
		SaslMechanism:          viper.GetString(envPrefix + saslMechanism),
		SecurityProtocol:       viper.GetString(envPrefix + securityProtocol),
		AutoCommitEnable:       viper.GetBool(envPrefix + autoCommitEnable),
		AutoCommitIntervalInMs: viper.GetInt(envPrefix + autoCommitIntervalMs),
		BatchSize:              viper.GetInt(envPrefix + batchSize),
		PollTimeout:            viper.GetInt(envPrefix + pollTimeout),
		FlushIntervalSec:       viper.GetInt(envPrefix + flushIntervalSec),
	}
	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = "earliest"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeoutMs
	}
	if cfg.FlushIntervalSec <= 0 {
		cfg.FlushIntervalSec = defaultFlushIntervalSec
	}
	return cfg, nil
}
