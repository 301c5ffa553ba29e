package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/carebook"
	"github.com/hupe1980/carebook/schedule"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the schedule database with free slots",
	Long: `Creates the schedule database if needed and inserts a free slot for every
doctor, every weekday hour between 09:00 and 15:00 of the configured range.
Existing slots, booked or not, are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		from, to, err := carebook.SeedRange(cfg)
		if err != nil {
			return err
		}

		store, err := schedule.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := schedule.Seed(cmd.Context(), store, from, to)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d slots into %s (%s to %s)\n", n, cfg.DBPath, cfg.SeedFrom, cfg.SeedTo)
		return nil
	},
}
