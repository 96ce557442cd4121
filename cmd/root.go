package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/artlinkhq/artlink_backend/cmd/http"
	systemcmd "github.com/artlinkhq/artlink_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "artlink",
	Short: "Artlink marketplace backend for booking artists.",
	Long: `Artlink is a marketplace platform connecting clients with artists.
It handles appointment negotiation, deposits and payments, refunds, and the
messaging that surrounds a booking, in one deployment.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
