package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iota-community/optimus-bot/internal/dispatch"
	"github.com/iota-community/optimus-bot/internal/intake"
	"github.com/iota-community/optimus-bot/internal/links"
	"github.com/iota-community/optimus-bot/internal/onboarding"
	"github.com/iota-community/optimus-bot/internal/platform"
	"github.com/iota-community/optimus-bot/internal/platform/discord"
	"github.com/iota-community/optimus-bot/internal/search"
	"github.com/iota-community/optimus-bot/internal/store"
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Connect to the gateway and serve the community assistant",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := GetLogger()
		ctx := cmd.Context()

		token := viper.GetString("discord.token")
		if token == "" {
			return fmt.Errorf("discord.token is required")
		}
		guildID := viper.GetString("discord.guild-id")
		if guildID == "" {
			return fmt.Errorf("discord.guild-id is required")
		}

		db, err := store.Open(viper.GetString("db.path"), logger)
		if err != nil {
			return err
		}
		defer db.Close()

		questionChannels, err := db.QuestionChannels(ctx)
		if err != nil {
			return err
		}
		if len(questionChannels) == 0 {
			return fmt.Errorf("no designated question channels, run \"optimus setup\" first")
		}

		index, err := search.New(
			viper.GetString("meilisearch.host"),
			viper.GetString("meilisearch.api-key"),
			logger)
		if err != nil {
			return err
		}

		aggregator := links.NewAggregator(
			links.NewGoogleScraper(nil, logger),
			index,
			viper.GetStringSlice("search.sites"),
			logger)

		welcome, err := onboarding.LoadWelcome(nil)
		if err != nil {
			return err
		}

		adapter, err := discord.New(token, guildID, logger)
		if err != nil {
			return err
		}

		waiter := platform.NewWaiter()
		dispatcher := dispatch.New(adapter, waiter, logger)

		channels := onboarding.Channels{
			Introduction: viper.GetString("discord.introduction-channel"),
			General:      viper.GetString("discord.general-channel"),
			OffTopic:     viper.GetString("discord.off-topic-channel"),
			Questions:    questionChannels[0],
		}
		onboard := onboarding.NewController(adapter, waiter, db, welcome, channels, logger)
		questions := intake.NewController(adapter, db, aggregator, logger)

		dispatcher.Register(platform.ButtonClick, onboarding.StartButtonID, onboard.HandleStart)
		dispatcher.Register(platform.ButtonClick, intake.CreateButtonID, questions.HandleOpenForm)
		dispatcher.Register(platform.ModalSubmit, intake.ModalID, questions.HandleSubmit)
		dispatcher.Register(platform.ButtonClick, intake.CloseButtonID,
			func(ctx context.Context, ev platform.Event) error {
				return questions.HandleClose(ctx, ev, true)
			})
		dispatcher.Register(platform.SlashCommand, "close",
			func(ctx context.Context, ev platform.Event) error {
				return questions.HandleClose(ctx, ev, false)
			})
		dispatcher.Register(platform.SlashCommand, "statistics", dispatch.NewStatsHandler(db, adapter))

		questionSet := make(map[string]bool, len(questionChannels))
		for _, id := range questionChannels {
			questionSet[id] = true
		}
		dispatcher.Register(platform.Message, "",
			func(ctx context.Context, ev platform.Event) error {
				if !questionSet[ev.ChannelID] {
					return nil
				}
				return questions.HandleChannelMessage(ctx, ev)
			})

		if err := adapter.Start(ctx, dispatcher); err != nil {
			return err
		}
		defer func() {
			if err := adapter.Stop(); err != nil {
				logger.Warn("failed to close gateway connection", "error", err)
			}
		}()

		logger.Info("serving",
			"guild", guildID,
			"question_channels", len(questionChannels))

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-ctx.Done():
		case s := <-sig:
			logger.Info("shutting down", "signal", s.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	viper.SetDefault("db.path", "optimus.db")
	viper.SetDefault("search.sites", []string{"https://wiki.iota.org", "https://github.com/iotaledger"})
}
