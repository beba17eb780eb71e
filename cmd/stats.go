package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iota-community/optimus-bot/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats [table]",
	Short: "Print onboarding counter statistics",
	Long: `Print one counter table from the local database. Tables: join_reason
(default) and found_from.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := GetLogger()

		table := "join_reason"
		if len(args) > 0 {
			table = args[0]
		}

		db, err := store.Open(viper.GetString("db.path"), logger)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.CounterStats(cmd.Context(), table)
		if err != nil {
			return err
		}
		for _, st := range stats {
			fmt.Printf("%s: %d\n", st.Category, st.Count)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
