package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the obackup version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("obackup version %s\n", OBACKUP_VERSION)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
