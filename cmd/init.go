package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/branch-canvas/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize branchcanvas configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the server and writes the config file (.branchcanvas.yml unless --config says otherwise).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
