package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lupppig/obackup/internal/config"
)

const OBACKUP_VERSION = "0.1.0"

var (
	cfgFile string
	LogJSON bool
	NoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "obackup",
	Short: "obackup backs up and restores an Odoo database together with its filestore",
	Long: `obackup performs full backup and restore of an Odoo PostgreSQL database plus
its filestore directory, packaging both into a single portable archive. Targets
can be local or reached over SSH. The migrate command chains a backup of one
instance into a restore of another.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Initialize(cfgFile)
	},
}

func init() {
	rootCmd.Version = OBACKUP_VERSION
	rootCmd.SetVersionTemplate("obackup version {{ .Version }}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.obackup/obackup.yaml)")
	rootCmd.PersistentFlags().BoolVar(&LogJSON, "log-json", false, "emit logs as JSON")
	rootCmd.PersistentFlags().BoolVar(&NoColor, "no-color", false, "disable colored log output")
}

func Execute() error {
	return rootCmd.Execute()
}
