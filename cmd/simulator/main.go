// The simulator publishes a stream of plausible counter readings for local
// development: a monotonically increasing counter per meter with occasional
// jitter, on the same topic the ingestor subscribes to.
package main

import (
	"encoding/json"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/gastrack/industrial-gas-monitoring/internal/config"
)

type reading struct {
	IndustryID  string  `json:"industry_id"`
	MeterID     string  `json:"meter_id"`
	TimestampMs int64   `json:"timestamp_ms"`
	Value       float64 `json:"value"`
	RecordedBy  string  `json:"recorded_by"`
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker())
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	counter := 10000.0
	for i := 0; i < 100; i++ {
		counter += 50 + rand.Float64()*200
		r := reading{
			IndustryID:  "IND-001",
			MeterID:     "M-01",
			TimestampMs: time.Now().UnixMilli(),
			Value:       counter,
			RecordedBy:  "simulator",
		}
		payload, _ := json.Marshal(r)
		token := client.Publish(config.MQTTTopic(), 0, false, payload)
		token.Wait()
		time.Sleep(500 * time.Millisecond)
	}
	log.Info().Msg("simulation done")
}
