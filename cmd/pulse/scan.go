package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/pulse/internal/bledb"
	"github.com/srg/pulse/internal/device"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE devices",
	Long: `Scan for and display Bluetooth Low Energy devices in the vicinity.

Devices are listed in the order they were first seen, with their names,
addresses, RSSI values, and advertised services.

Examples:
  # Find heart rate monitors
  pulse scan --service 180d

  # Devices whose name starts with "Polar", for 5 seconds
  pulse scan --name-prefix Polar --timeout 5s`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanTimeout    time.Duration
	scanNamePrefix string
	scanServices   []string
)

func init() {
	scanCmd.Flags().DurationVarP(&scanTimeout, "timeout", "t", 0, "Scan duration (default from config, 10s)")
	scanCmd.Flags().StringVar(&scanNamePrefix, "name-prefix", "", "Only show devices whose name starts with this prefix")
	scanCmd.Flags().StringSliceVarP(&scanServices, "service", "s", nil, "Only show devices advertising these service UUIDs")
}

func runScan(cmd *cobra.Command, _ []string) error {
	services := make([]string, 0, len(scanServices))
	for _, s := range scanServices {
		if _, err := bledb.CanonicalUUID(s); err != nil {
			return fmt.Errorf("invalid service UUID %q: %w", s, err)
		}
		services = append(services, bledb.NormalizeUUID(s))
	}

	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	if scanTimeout > 0 {
		env.cfg.ScanTimeout = scanTimeout
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	transport, err := newTransport(env.cfg, env.logger, nil)
	if err != nil {
		return fmt.Errorf("failed to open Bluetooth adapter: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	progress := NewCountdownProgressPrinter(progressOutput, "Scanning for BLE devices", "Scanning", env.cfg.ScanTimeout)
	progress.Start()
	candidates, err := transport.Scan(ctx, &device.RequestFilter{
		AcceptAllDevices: len(services) == 0 && scanNamePrefix == "",
		NamePrefix:       scanNamePrefix,
		Services:         services,
	})
	progress.Stop()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Scan cancelled")
		}
		return err
	}
	return newRenderer(cmd.OutOrStdout(), false).candidates(candidates)
}
