package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lupppig/obackup/internal/config"
	"github.com/lupppig/obackup/internal/engine"
)

var (
	sourceProfile string
	destProfile   string
	saveArchive   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Back up one instance and restore it into another",
	Long: `Back up the source instance and restore it into the destination in one
operation. Both ends are connectivity-tested before anything destructive
happens, so a bad destination is left untouched. With --save-archive the
intermediate backup is also kept as a durable archive.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		l := newLogger()

		if !confirmRestore {
			return fmt.Errorf("migrate drops the destination database; re-run with --confirm-restore to proceed")
		}
		if sourceProfile == "" || destProfile == "" {
			return fmt.Errorf("--source and --dest are required")
		}

		store := config.GetConfig()
		source, err := store.Profile(sourceProfile)
		if err != nil {
			return err
		}
		dest, err := store.Profile(destProfile)
		if err != nil {
			return err
		}

		obs := newBarObserver("migrate")
		eng, err := engine.New(store, obs, l)
		if err != nil {
			return err
		}
		defer eng.Close()

		err = eng.BackupAndRestore(context.Background(), source, dest, engine.Options{
			DBOnly:      dbOnly,
			SaveArchive: saveArchive,
			OutputDir:   resolveOutputDir(),
		})
		obs.Wait()
		return err
	},
}

func init() {
	migrateCmd.Flags().StringVar(&sourceProfile, "source", "", "source connection profile")
	migrateCmd.Flags().StringVar(&destProfile, "dest", "", "destination connection profile")
	migrateCmd.Flags().BoolVar(&dbOnly, "db-only", false, "migrate only the database")
	migrateCmd.Flags().BoolVar(&saveArchive, "save-archive", false, "keep a durable copy of the intermediate backup")
	migrateCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the saved archive")
	migrateCmd.Flags().BoolVar(&confirmRestore, "confirm-restore", false, "acknowledge that the destination database will be dropped")

	rootCmd.AddCommand(migrateCmd)
}
