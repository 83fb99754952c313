package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/srg/pulse/internal/session"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [device-address]",
	Short: "Inspect services, characteristics, and descriptors of a BLE device",
	Long: `Connects to a BLE device and discovers its services, characteristics,
and descriptors, naming each one from the built-in registry.

Without an address, nearby devices are scanned and you pick one (the first
one is used when not running in a terminal).

Output formats: text (default), json, yaml, cbor.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

var inspectFormat string

func init() {
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", formatText, "Output format (text, json, yaml, cbor)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	if !slices.Contains(snapshotFormats, inspectFormat) {
		return fmt.Errorf("invalid format '%s': must be one of %v", inspectFormat, snapshotFormats)
	}
	var address string
	if len(args) == 1 {
		address = args[0]
	}

	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	transport, err := newTransport(env.cfg, env.logger, terminalPicker())
	if err != nil {
		return fmt.Errorf("failed to open Bluetooth adapter: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	progress := NewProgressPrinter(progressOutput, inspectPrefix(address), session.PhaseScanning,
		session.PhaseReady, session.PhaseFailed)
	progress.Start()
	defer progress.Stop()

	ctrl := session.New(transport, env.sessionOptions(address, true), env.logger, progress.Callback())
	defer func() { _ = ctrl.Close() }()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	progress.Stop()

	snap := ctrl.Snapshot()
	if snap == nil {
		if f := ctrl.Fault(); f != nil {
			return f.Err
		}
		return fmt.Errorf("discovery produced no snapshot")
	}

	if inspectFormat == formatText {
		newRenderer(cmd.OutOrStdout(), false).snapshot(snap)
		return nil
	}
	return encodeSnapshot(cmd.OutOrStdout(), snap, inspectFormat)
}

func inspectPrefix(address string) string {
	if address == "" {
		return "Inspecting device"
	}
	return fmt.Sprintf("Inspecting device %s", address)
}
