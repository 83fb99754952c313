package main

import (
	"bytes"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/suite"

	"github.com/srg/pulse/internal/device"
	"github.com/srg/pulse/internal/testutils"
	"github.com/srg/pulse/pkg/config"
)

// CommandTestSuite runs commands against an in-memory transport.
type CommandTestSuite struct {
	suite.Suite
	Transport  *testutils.FakeTransport
	Peripheral *testutils.FakePeripheral

	mu      sync.Mutex
	configs []*config.Config
}

func (s *CommandTestSuite) SetupTest() {
	s.Transport, s.Peripheral = testutils.CreateHeartRatePeripheral().BuildTransport()
	s.configs = nil

	origTransport, origProgress := newTransport, progressOutput
	newTransport = func(cfg *config.Config, _ *logrus.Logger, _ device.Picker) (bleTransport, error) {
		s.mu.Lock()
		s.configs = append(s.configs, cfg)
		s.mu.Unlock()
		return s.Transport, nil
	}
	progressOutput = io.Discard
	s.T().Cleanup(func() {
		newTransport, progressOutput = origTransport, origProgress
	})

	resetFlags(rootCmd)
}

// Configs returns the configurations handed to the transport factory.
func (s *CommandTestSuite) Configs() []*config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*config.Config(nil), s.configs...)
}

// ExecuteCommand runs the root command with args, returns stdout and error.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, error) {
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default; cobra keeps values between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
