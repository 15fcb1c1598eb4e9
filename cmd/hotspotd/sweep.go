package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goodtune/hotspotd/internal/config"
	"github.com/goodtune/hotspotd/internal/voucher"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one expiry sweep and exit",
	Long: `Run a single pass over all active vouchers, force-disconnect devices on
any voucher that has exhausted its quota, and expire those vouchers.`,
	Example: `  hotspotd -c config.yaml sweep`,
	RunE:    runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Quiet logger; results go to stdout
	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	service := voucher.NewService(store, voucher.RealClock{}, logger)
	sweeper := voucher.NewSweeper(service, 0, logger)

	reclaimed, err := sweeper.ReclaimExpiredVouchers(context.Background())
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	fmt.Println()
	cyan.Println("EXPIRY SWEEP")
	fmt.Println()

	if reclaimed == 0 {
		green.Println("No vouchers to reclaim")
	} else {
		yellow.Printf("Reclaimed %d expired voucher(s)\n", reclaimed)
	}
	fmt.Println()

	return nil
}
