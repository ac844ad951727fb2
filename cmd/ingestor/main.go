package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/gastrack/industrial-gas-monitoring/internal/config"
	"github.com/gastrack/industrial-gas-monitoring/internal/service"
	"github.com/gastrack/industrial-gas-monitoring/internal/store"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	st, err := store.New(context.Background(), store.Config{
		Backend:      config.StoreBackend(),
		DSN:          config.DBDSN(),
		AWSRegion:    config.AWSRegion(),
		DynamoPrefix: config.DynamoTablePrefix(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("store connect failed")
	}
	defer st.Close()

	svcs := service.New(st, nil, nil, log.Logger)

	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker())
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		if err := svcs.Readings.FromMQTT(msg.Topic(), msg.Payload()); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
		}
	}

	topic := config.MQTTTopic()
	if token := client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("subscribe failed")
	}

	log.Info().Str("topic", topic).Msg("ingestor running; Ctrl+C to stop")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("ingestor shutting down")
}
