package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lupppig/obackup/internal/config"
	"github.com/lupppig/obackup/internal/engine"
	"github.com/lupppig/obackup/internal/logger"
)

var (
	profileName   string
	odooConf      string
	outputDir     string
	dbOnly        bool
	filestoreOnly bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a backup archive of a database and its filestore",
	Long: `Create a backup of the database and filestore named by a connection profile
and package them into a single portable archive.

The profile comes from the config file (--profile) or is parsed from an
odoo.conf (--odoo-conf). If the backup fails, obackup exits with a non-zero
status code.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		l := newLogger()

		profile, store, err := resolveProfile()
		if err != nil {
			return err
		}
		if dbOnly && filestoreOnly {
			return fmt.Errorf("--db-only and --filestore-only are mutually exclusive")
		}

		obs := newBarObserver("backup")
		eng, err := engine.New(store, obs, l)
		if err != nil {
			return err
		}
		defer eng.Close()

		archivePath, err := eng.Backup(context.Background(), profile, engine.Options{
			DBOnly:        dbOnly,
			FilestoreOnly: filestoreOnly,
			OutputDir:     resolveOutputDir(),
		})
		obs.Wait()
		if err != nil {
			return err
		}

		l.Info("Backup saved", "archive", archivePath)
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVar(&profileName, "profile", "", "connection profile name from the config file")
	backupCmd.Flags().StringVar(&odooConf, "odoo-conf", "", "parse connection settings from an odoo.conf")
	backupCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the backup archive (default: backup_dir from config)")
	backupCmd.Flags().BoolVar(&dbOnly, "db-only", false, "back up only the database")
	backupCmd.Flags().BoolVar(&filestoreOnly, "filestore-only", false, "back up only the filestore")

	rootCmd.AddCommand(backupCmd)
}

func newLogger() *logger.Logger {
	cfg := config.GetConfig()
	return logger.New(logger.Config{
		JSON:    LogJSON || cfg.LogJSON,
		NoColor: NoColor || cfg.NoColor,
	})
}

// resolveProfile loads the profile from --profile or --odoo-conf and returns
// it with the store the engine should resolve linked SSH profiles through.
func resolveProfile() (config.Profile, config.Store, error) {
	store := config.GetConfig()

	if profileName != "" && odooConf != "" {
		return config.Profile{}, nil, fmt.Errorf("--profile and --odoo-conf cannot be used together")
	}

	switch {
	case profileName != "":
		p, err := store.Profile(profileName)
		return p, store, err
	case odooConf != "":
		p, err := config.ParseOdooConf(odooConf)
		return p, store, err
	default:
		return config.Profile{}, nil, fmt.Errorf("--profile or --odoo-conf is required")
	}
}

func resolveOutputDir() string {
	if outputDir != "" {
		return outputDir
	}
	return config.GetConfig().BackupDir
}
