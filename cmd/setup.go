package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iota-community/optimus-bot/internal/intake"
	"github.com/iota-community/optimus-bot/internal/onboarding"
	"github.com/iota-community/optimus-bot/internal/platform"
	"github.com/iota-community/optimus-bot/internal/platform/discord"
	"github.com/iota-community/optimus-bot/internal/store"
)

var setupCmd = &cobra.Command{
	Use:   "setup [question-channel-id...]",
	Short: "Designate question channels and post the entry prompts",
	Long: `Setup registers the given channels as question channels and posts the
static entry prompts: the getting-started button in the introduction channel
and the question form button in each question channel. Run it once per guild;
posting can be skipped with --skip-prompts when re-registering channels.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := GetLogger()
		ctx := cmd.Context()

		db, err := store.Open(viper.GetString("db.path"), logger)
		if err != nil {
			return err
		}
		defer db.Close()

		for _, id := range args {
			if err := db.AddQuestionChannel(ctx, id); err != nil {
				return fmt.Errorf("failed to register question channel %s: %w", id, err)
			}
			logger.Info("registered question channel", "channel", id)
		}

		skip, _ := cmd.Flags().GetBool("skip-prompts")
		if skip {
			return nil
		}

		token := viper.GetString("discord.token")
		if token == "" {
			return fmt.Errorf("discord.token is required")
		}
		adapter, err := discord.New(token, viper.GetString("discord.guild-id"), logger)
		if err != nil {
			return err
		}

		if intro := viper.GetString("discord.introduction-channel"); intro != "" {
			if _, err := adapter.SendMessage(ctx, intro, platform.Msg{
				Content: "**Welcome to the IOTA & Shimmer community!** 🎉\nClick the button below to tell us a bit about yourself and unlock the rest of the server.",
				Buttons: [][]platform.Button{{
					{Label: "Let's go", CustomID: onboarding.StartButtonID, Style: platform.StyleSuccess, Emoji: "🚀"},
				}},
			}); err != nil {
				return fmt.Errorf("failed to post getting-started prompt: %w", err)
			}
			logger.Info("posted getting-started prompt", "channel", intro)
		}

		for _, id := range args {
			if _, err := adapter.SendMessage(ctx, id, platform.Msg{
				Content: "Have a question or need help? Use the button below so it gets its own thread:",
				Buttons: [][]platform.Button{{
					{Label: "Ask a question", CustomID: intake.CreateButtonID, Style: platform.StylePrimary, Emoji: "❓"},
				}},
			}); err != nil {
				return fmt.Errorf("failed to post question prompt in %s: %w", id, err)
			}
			logger.Info("posted question prompt", "channel", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().Bool("skip-prompts", false, "register channels without posting the entry prompts")
}
