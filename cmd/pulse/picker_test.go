package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/pulse/internal/device"
)

var pickerCandidates = []device.Candidate{
	{ID: "11:11:11:11:11:11", Name: "Polar H10", RSSI: -50},
	{ID: "22:22:22:22:22:22", RSSI: -70},
}

// scriptedLines returns each line in turn, then err.
func scriptedLines(err error, lines ...string) func() (string, error) {
	return func() (string, error) {
		if len(lines) == 0 {
			return "", err
		}
		line := lines[0]
		lines = lines[1:]
		return line, nil
	}
}

func TestChooseCandidate(t *testing.T) {
	tests := []struct {
		input   string
		wantID  string
		wantErr string
	}{
		{input: "1", wantID: "11:11:11:11:11:11"},
		{input: " 2 ", wantID: "22:22:22:22:22:22"},
		{input: "22:22:22:22:22:22", wantID: "22:22:22:22:22:22"},
		{input: "0", wantErr: "between 1 and 2"},
		{input: "3", wantErr: "between 1 and 2"},
		{input: "", wantErr: "between 1 and 2"},
		{input: "33:33", wantErr: `no device "33:33"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			c, err := chooseCandidate(tt.input, pickerCandidates)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, c.ID)
		})
	}
}

func TestPromptCandidate(t *testing.T) {
	t.Run("retries until valid", func(t *testing.T) {
		var out bytes.Buffer
		c, err := promptCandidate(context.Background(), &out, scriptedLines(io.EOF, "9", "2"), pickerCandidates)
		require.NoError(t, err)
		assert.Equal(t, "22:22:22:22:22:22", c.ID)
		assert.Contains(t, out.String(), "1) Polar H10")
		assert.Contains(t, out.String(), "2) Unknown Device")
		assert.Contains(t, out.String(), "enter a number between 1 and 2")
	})

	t.Run("interrupt cancels", func(t *testing.T) {
		_, err := promptCandidate(context.Background(), io.Discard, scriptedLines(readline.ErrInterrupt), pickerCandidates)
		assert.ErrorIs(t, err, ErrSelectionCancelled)
	})

	t.Run("eof cancels", func(t *testing.T) {
		_, err := promptCandidate(context.Background(), io.Discard, scriptedLines(io.EOF), pickerCandidates)
		assert.ErrorIs(t, err, ErrSelectionCancelled)
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := promptCandidate(ctx, io.Discard, scriptedLines(io.EOF, "1"), pickerCandidates)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTerminalPickerDisabledWithoutTTY(t *testing.T) {
	orig := isTerminal
	t.Cleanup(func() { isTerminal = orig })
	isTerminal = func(*os.File) bool { return false }

	assert.Nil(t, terminalPicker())
}
