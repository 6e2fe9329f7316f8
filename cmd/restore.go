package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lupppig/obackup/internal/engine"
)

var confirmRestore bool

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Restore a backup archive into a database and filestore",
	Long: `Restore a backup archive into the database and filestore named by a
connection profile.

Restoring DROPS and recreates the target database. An existing filestore is
renamed aside with a .bak timestamp suffix, never deleted. The archive
container format (zip, tar.gz, or tar) is detected from content, so
mislabeled files restore fine.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		l := newLogger()

		if !confirmRestore {
			return fmt.Errorf("restore drops the target database; re-run with --confirm-restore to proceed")
		}

		profile, store, err := resolveProfile()
		if err != nil {
			return err
		}

		obs := newBarObserver("restore")
		eng, err := engine.New(store, obs, l)
		if err != nil {
			return err
		}
		defer eng.Close()

		err = eng.Restore(context.Background(), profile, args[0], engine.Options{
			DBOnly:        dbOnly,
			FilestoreOnly: filestoreOnly,
		})
		obs.Wait()
		return err
	},
}

func init() {
	restoreCmd.Flags().StringVar(&profileName, "profile", "", "connection profile name from the config file")
	restoreCmd.Flags().StringVar(&odooConf, "odoo-conf", "", "parse connection settings from an odoo.conf")
	restoreCmd.Flags().BoolVar(&dbOnly, "db-only", false, "restore only the database")
	restoreCmd.Flags().BoolVar(&filestoreOnly, "filestore-only", false, "restore only the filestore")
	restoreCmd.Flags().BoolVar(&confirmRestore, "confirm-restore", false, "acknowledge that the target database will be dropped")

	rootCmd.AddCommand(restoreCmd)
}
