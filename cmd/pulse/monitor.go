package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/pulse/internal/fault"
	"github.com/srg/pulse/internal/notify"
	"github.com/srg/pulse/internal/session"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor [device-address]",
	Short: "Stream live heart rate measurements",
	Long: `Connects to a heart rate monitor, prints a summary of its attribute tree,
then streams heart rate, sensor contact, energy expended and RR intervals.

Malformed measurements are reported inline and streaming continues.
Press Ctrl+C to stop.

Examples:
  # Pick a device interactively and stream until Ctrl+C
  pulse monitor

  # Ten measurements as JSON lines
  pulse monitor AA:BB:CC:DD:EE:FF --count 10 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMonitor,
}

var (
	monitorCount int
	monitorJSON  bool
)

// faultPollInterval is how often monitor checks for new non-terminal faults.
const faultPollInterval = 250 * time.Millisecond

func init() {
	monitorCmd.Flags().IntVarP(&monitorCount, "count", "n", 0, "Stop after this many measurements (0 runs until Ctrl+C)")
	monitorCmd.Flags().BoolVar(&monitorJSON, "json", false, "Output one JSON object per measurement")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if monitorCount < 0 {
		return fmt.Errorf("invalid count %d: must not be negative", monitorCount)
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

	progress := NewProgressPrinter(progressOutput, monitorPrefix(address), session.PhaseScanning,
		session.PhaseReady, session.PhaseFailed)
	progress.Start()
	defer progress.Stop()

	ctrl := session.New(transport, env.sessionOptions(address, false), env.logger, progress.Callback())
	defer func() { _ = ctrl.Close() }()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	progress.Stop()

	if !ctrl.Subscribed() {
		if f := ctrl.Fault(); f != nil {
			return fmt.Errorf("heart rate notifications unavailable: %w", f.Err)
		}
		return fmt.Errorf("heart rate notifications unavailable")
	}

	out := cmd.OutOrStdout()
	r := newRenderer(out, isTerminalWriter(out))
	lastFault := ctrl.Fault()
	if snap := ctrl.Snapshot(); snap != nil {
		if !monitorJSON {
			r.summary(snap)
		}
	} else if lastFault != nil {
		// discovery failed but notifications are up
		r.fault(lastFault.Message)
	}
	if !monitorJSON {
		fmt.Fprintln(cmd.ErrOrStderr(), "Streaming heart rate. Press Ctrl+C to stop...")
	}

	err = streamMeasurements(ctx, ctrl, r, out, lastFault)
	stats := ctrl.Stats()
	env.logger.WithFields(logrus.Fields{
		"received":    stats.Received,
		"decoded":     stats.Decoded,
		"dropped":     stats.Dropped,
		"overwritten": stats.Overwritten,
		"queued":      stats.Queued,
	}).Info("Monitor finished")
	return err
}

// streamMeasurements prints events until ctx is done, the count is reached or
// the stream closes. New faults are printed as they appear.
func streamMeasurements(ctx context.Context, ctrl *session.Controller, r *renderer, out io.Writer, lastFault *fault.Fault) error {
	events := ctrl.Measurements()
	encoder := json.NewEncoder(out)
	ticker := time.NewTicker(faultPollInterval)
	defer ticker.Stop()

	checkFault := func() {
		if f := ctrl.Fault(); f != nil && f != lastFault {
			lastFault = f
			if !monitorJSON {
				r.fault(f.Message)
			}
		}
	}

	printed := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			checkFault()
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrConnectionLost
			}
			checkFault()
			if err := printEvent(r, encoder, ev); err != nil {
				return err
			}
			printed++
			if monitorCount > 0 && printed >= monitorCount {
				return nil
			}
		}
	}
}

func printEvent(r *renderer, encoder *json.Encoder, ev notify.Event) error {
	if monitorJSON {
		return encoder.Encode(ev)
	}
	r.measurement(ev)
	return nil
}

func monitorPrefix(address string) string {
	if address == "" {
		return "Connecting to heart rate monitor"
	}
	return fmt.Sprintf("Connecting to %s", address)
}

// isTerminalWriter reports whether w is a terminal, for colour output.
func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
