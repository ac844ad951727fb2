// The agent is the field client: it replicates the shared store on a fixed
// cadence, narrows the industry list for its signed-in user, and reports
// per-industry consumption. Dashboards render what it logs here.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gastrack/industrial-gas-monitoring/internal/access"
	"github.com/gastrack/industrial-gas-monitoring/internal/analytics"
	"github.com/gastrack/industrial-gas-monitoring/internal/config"
	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
	"github.com/gastrack/industrial-gas-monitoring/internal/notify"
	"github.com/gastrack/industrial-gas-monitoring/internal/store"
	"github.com/gastrack/industrial-gas-monitoring/internal/syncengine"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx := context.Background()
	st, err := store.New(ctx, store.Config{
		Backend:      config.StoreBackend(),
		DSN:          config.DBDSN(),
		AWSRegion:    config.AWSRegion(),
		DynamoPrefix: config.DynamoTablePrefix(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("store connect failed")
	}
	defer st.Close()

	var notifier notify.Notifier = notify.Noop{}
	if config.UseCloudServices() && config.SNSTopicArn() != "" {
		snsc, err := notify.NewSNSClient(ctx, config.AWSRegion(), config.SNSTopicArn())
		if err != nil {
			log.Fatal().Err(err).Msg("sns client init failed")
		}
		notifier = snsc
	}

	engine := syncengine.New(st, config.PollInterval(), log.Logger)
	if id := config.AgentUserID(); id != "" {
		engine.SignIn(id)
	}

	// Alert only on level transitions, not on every poll.
	lastLevel := map[string]domain.AlertLevel{}

	sub := engine.Start(func(state syncengine.State) {
		if state.ActiveUser == nil {
			log.Info().Msg("no active identity; sign in to see industries")
			return
		}

		visible := access.VisibleIndustries(state.ActiveUser, state.Snapshot.Industries, state.Snapshot.Assignments)
		consumption := analytics.AnalyzeSnapshot(state.Snapshot)

		log.Info().
			Str("user", state.ActiveUser.Username).
			Int("industries", len(visible)).
			Int("readings", len(state.Snapshot.Readings)).
			Msg("snapshot applied")

		for _, ind := range visible {
			cons := consumption[ind.ID]
			log.Info().
				Str("industry", ind.Name).
				Float64("rate_per_day", cons.RatePerDay).
				Float64("percent", cons.Percent).
				Str("level", string(cons.Level)).
				Msg("consumption")

			if cons.Level == domain.AlertCritical && lastLevel[ind.ID] != domain.AlertCritical {
				if err := notifier.SendConsumptionAlert(ctx, ind, cons); err != nil {
					log.Error().Err(err).Str("industry", ind.ID).Msg("alert publish failed")
				}
			}
			lastLevel[ind.ID] = cons.Level
		}
	})
	defer sub.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("agent shutting down")
}
