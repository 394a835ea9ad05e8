package main

import (
	http2 "net/http"
	_ "net/http/pprof"

	"github.com/Meesho/BharatMLStack/vigil/internal/capture"
	"github.com/Meesho/BharatMLStack/vigil/internal/consumer/listeners"
	"github.com/Meesho/BharatMLStack/vigil/pkg/config"
	"github.com/Meesho/BharatMLStack/vigil/pkg/logger"
	"github.com/Meesho/BharatMLStack/vigil/pkg/metric"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func main() {
	config.InitEnv()
	go func() {
		http2.ListenAndServe(":8080", nil)
	}()
	logger.Init()
	metric.Init()

	store, err := capture.NewStore(viper.GetString(config.CaptureStoreRoot))
	if err != nil {
		log.Panic().Err(err).Msg("Failed to open capture store")
	}

	kafkaListener := listeners.NewKafkaListener(store)
	kafkaListener.Init()
	kafkaListener.Consume()
}
