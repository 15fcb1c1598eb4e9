package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hotspotd",
	Short: "hotspotd - Prepaid Wi-Fi voucher and hotspot access daemon",
	Long: `hotspotd sells and enforces prepaid Wi-Fi vouchers. Vouchers carry a
minute quota and a device cap; the daemon admits devices at the captive
portal boundary, accounts quota only while devices are connected, and
reclaims exhausted vouchers in the background.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to server command when no subcommand is provided
		return runServer(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/hotspotd/config.yaml", "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
