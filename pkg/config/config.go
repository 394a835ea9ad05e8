package config

import "github.com/spf13/viper"

// Env keys shared across the vigil binaries. Component-specific keys live
// next to their consumers.
const (
	AppName               = "APP_NAME"
	AppEnv                = "APP_ENV"
	AppPort               = "APP_PORT"
	AppLogLevel           = "APP_LOG_LEVEL"
	MetricSamplingRate    = "APP_METRIC_SAMPLING_RATE"
	CaptureStoreRoot      = "CAPTURE_STORE_ROOT"
	CaptureKafkaBrokers   = "CAPTURE_KAFKA_BROKERS"
	CaptureKafkaTopic     = "CAPTURE_KAFKA_TOPIC"
	ModelBackendURL       = "MODEL_BACKEND_URL"
	ModelRequestTimeoutMs = "MODEL_REQUEST_TIMEOUT_MS"
)

// InitEnv binds configuration to process environment variables. All config in
// vigil is env-driven; viper.Get* at the use site reads through to the
// environment after this call.
func InitEnv() {
	viper.AutomaticEnv()
}
