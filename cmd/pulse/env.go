package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/srg/pulse/internal/device"
	"github.com/srg/pulse/internal/device/goble"
	"github.com/srg/pulse/internal/discovery"
	"github.com/srg/pulse/internal/notify"
	"github.com/srg/pulse/internal/session"
	"github.com/srg/pulse/pkg/config"
)

// bleTransport is what the commands need from a transport: selection plus raw scans.
type bleTransport interface {
	device.Transport
	Scan(ctx context.Context, filter *device.RequestFilter) ([]device.Candidate, error)
}

// newTransport opens the host adapter. Tests replace it with an in-memory transport.
var newTransport = func(cfg *config.Config, logger *logrus.Logger, picker device.Picker) (bleTransport, error) {
	radio, err := goble.NewRadio()
	if err != nil {
		return nil, err
	}
	return goble.NewTransport(radio, logger, goble.Options{
		ScanTimeout:    cfg.ScanTimeout,
		ConnectTimeout: cfg.ConnectTimeout,
		Picker:         picker,
	}), nil
}

// progressOutput receives progress lines; stdout stays clean for command output.
var progressOutput io.Writer = os.Stderr

// environment is the per-command configuration and logger.
type environment struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// loadEnvironment reads --config and configures logging from the global flags.
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger, err := configureLogger(cmd, cfg, path != "")
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, logger: logger}, nil
}

// requestFilter builds the selection filter for an optional explicit address.
func (e *environment) requestFilter(address string) *device.RequestFilter {
	return &device.RequestFilter{
		AcceptAllDevices: true,
		Address:          address,
		OptionalServices: e.cfg.OptionalServices,
	}
}

func (e *environment) sessionOptions(address string, skipSubscription bool) session.Options {
	return session.Options{
		Filter: e.requestFilter(address),
		Walk: discovery.WalkOptions{
			MaxConcurrency:        e.cfg.DiscoveryConcurrency,
			DescriptorReadTimeout: e.cfg.DescriptorReadTimeout,
			SkipDescriptorValues:  e.cfg.DescriptorReadTimeout == 0,
		},
		Notify:           notify.Options{BufferSize: e.cfg.NotificationBuffer},
		SkipSubscription: skipSubscription,
	}
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
