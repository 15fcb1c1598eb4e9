package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goodtune/hotspotd/internal/config"
	"github.com/goodtune/hotspotd/internal/storage"
	"github.com/goodtune/hotspotd/internal/voucher"
)

var statusDeviceID string

var statusCmd = &cobra.Command{
	Use:   "status CODE",
	Short: "Show a voucher's lifecycle state and remaining quota",
	Long:  `Look up a voucher by code and print its status, used and remaining minutes, and connected device count.`,
	Example: `  hotspotd -c config.yaml status ABCD2345
  hotspotd status ABCD2345 --device-id aa:bb:cc:dd:ee:ff`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusDeviceID, "device-id", "", "Also show this device's session on the voucher")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	code := args[0]

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

	ctx := context.Background()
	v, session, valid, err := service.Status(ctx, code, statusDeviceID)
	if err != nil {
		return fmt.Errorf("failed to load voucher %s: %w", code, err)
	}

	remaining, err := service.RemainingMinutes(ctx, v.ID)
	if err != nil {
		return fmt.Errorf("failed to compute remaining minutes: %w", err)
	}

	printVoucherStatus(v, session, valid, remaining)
	return nil
}

func printVoucherStatus(v *storage.Voucher, session *storage.DeviceSession, valid bool, remaining int64) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Println()
	cyan.Println("VOUCHER STATUS")
	fmt.Println()

	fmt.Printf("Code:       %s\n", v.Code)
	fmt.Printf("Owner:      %s\n", v.OwnerID)
	fmt.Printf("Plan:       %s\n", v.PlanID)

	cyan.Print("Status:     ")
	switch v.Status {
	case storage.StatusUnused:
		green.Println("UNUSED")
	case storage.StatusActive:
		green.Println("ACTIVE")
	case storage.StatusPaused:
		yellow.Println("PAUSED")
	case storage.StatusExpired:
		red.Println("EXPIRED")
	}

	fmt.Printf("Valid:      %t\n", valid)
	fmt.Printf("Used:       %d minutes\n", v.UsedTime)
	fmt.Printf("Remaining:  %d minutes\n", remaining)
	fmt.Printf("Devices:    %d of %d connected\n", v.ActiveDevices, v.AllowedDevices)
	if v.ActivationTime != nil {
		fmt.Printf("Activated:  %s\n", v.ActivationTime.Format(time.RFC3339))
	}

	if session != nil {
		fmt.Println()
		cyan.Println("DEVICE SESSION")
		fmt.Println()
		fmt.Printf("Device:     %s\n", session.DeviceID)
		fmt.Printf("Connected:  %t\n", session.Connected)
		if session.IPAddress != "" {
			fmt.Printf("IP:         %s\n", session.IPAddress)
		}
		if session.ConnectedAt != nil {
			fmt.Printf("Since:      %s\n", session.ConnectedAt.Format(time.RFC3339))
		}
	}

	fmt.Println()
}
