package metric

import (
	"sync"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const defaultTelegrafAddress = "localhost:8125"

var (
	// one client is safe to share across goroutines
	statsDClient = noopClient()
	samplingRate = 0.0
	appName      = ""
	once         sync.Once
)

// Init wires the statsd client from APP_* env config. Before Init (and in
// unit tests) the package falls back to a localhost client, so metric calls
// never have to be guarded.
func Init() {
	once.Do(func() {
		samplingRate = viper.GetFloat64("APP_METRIC_SAMPLING_RATE")
		appName = viper.GetString("APP_NAME")
		address := viper.GetString("TELEGRAF_ADDRESS")
		if address == "" {
			address = defaultTelegrafAddress
		}

		client, err := statsd.New(address, statsd.WithTags(globalTags()))
		if err != nil {
			log.Panic().AnErr("StatsD client initialization failed", err)
		}
		statsDClient = client
		log.Info().Msgf("Metrics client initialized with telegraf address - %s and sampling rate - %f",
			address, samplingRate)
	})
}

func noopClient() *statsd.Client {
	client, _ := statsd.New(defaultTelegrafAddress)
	return client
}

func globalTags() []string {
	env := viper.GetString("APP_ENV")
	if len(env) == 0 {
		log.Warn().Msg("APP_ENV is not set")
	}
	return []string{
		TagAsString(TagEnv, env),
		TagAsString(TagService, appName),
	}
}

// Timing sends timing information
func Timing(name string, value time.Duration, tags []string) {
	err := statsDClient.Timing(name, value, tags, samplingRate)
	if err != nil {
		log.Warn().AnErr("Error occurred while doing statsd timing", err)
	}
}

// Count increases a metric counter by value
func Count(name string, value int64, tags []string) {
	err := statsDClient.Count(name, value, tags, samplingRate)
	if err != nil {
		log.Warn().AnErr("Error occurred while doing statsd count", err)
	}
}

// Incr increases a metric counter by 1
func Incr(name string, tags []string) {
	Count(name, 1, tags)
}
