package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/srg/pulse/internal/device"
	"github.com/srg/pulse/internal/groutine"
)

// ErrSelectionCancelled is returned when the prompt is interrupted or closed.
var ErrSelectionCancelled = errors.New("selection cancelled")

// isTerminal reports whether f is attached to a terminal.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalPicker returns an interactive picker when stdin and stdout are terminals,
// nil otherwise so the transport takes the first candidate.
func terminalPicker() device.Picker {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return nil
	}
	return func(ctx context.Context, candidates []device.Candidate) (device.Candidate, error) {
		if len(candidates) == 1 {
			return candidates[0], nil
		}
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          fmt.Sprintf("Select device [1-%d]: ", len(candidates)),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return device.Candidate{}, fmt.Errorf("failed to create readline: %w", err)
		}
		defer rl.Close()
		return promptCandidate(ctx, rl.Stdout(), rl.Readline, candidates)
	}
}

// promptCandidate lists candidates and reads choices until one is valid.
func promptCandidate(ctx context.Context, out io.Writer, readLine func() (string, error), candidates []device.Candidate) (device.Candidate, error) {
	fmt.Fprintln(out)
	for i, c := range candidates {
		fmt.Fprintf(out, "  %d) %-24s %s  %d dBm\n", i+1, c.DisplayName(), c.ID, c.RSSI)
	}

	for {
		line, err := groutine.Await(ctx, "device-picker", readLine)
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return device.Candidate{}, ErrSelectionCancelled
			}
			return device.Candidate{}, err
		}
		c, err := chooseCandidate(line, candidates)
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		return c, nil
	}
}

// chooseCandidate accepts a 1-based index or an exact address.
func chooseCandidate(input string, candidates []device.Candidate) (device.Candidate, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return device.Candidate{}, fmt.Errorf("enter a number between 1 and %d", len(candidates))
	}
	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(candidates) {
			return device.Candidate{}, fmt.Errorf("enter a number between 1 and %d", len(candidates))
		}
		return candidates[n-1], nil
	}
	for _, c := range candidates {
		if strings.EqualFold(c.ID, input) {
			return c, nil
		}
	}
	return device.Candidate{}, fmt.Errorf("no device %q in the list", input)
}
