package main

import (
	"os"
	"strings"
	"testing"
)

// withColors forces colors on for the duration of the test: clears the
// --no-color flag and removes NO_COLOR from the environment.
func withColors(t *testing.T) {
	t.Helper()
	restore := noColor
	t.Cleanup(func() { noColor = restore })
	noColor = false
	t.Setenv("NO_COLOR", "") // registers restore of the original value
	os.Unsetenv("NO_COLOR")
}

func TestColorizeWrapsWithReset(t *testing.T) {
	withColors(t)

	got := colorize(colorRed, "boom")
	if !strings.HasPrefix(got, colorRed) || !strings.HasSuffix(got, colorReset) {
		t.Errorf("colorize = %q, want wrapped in escape codes", got)
	}
}

func TestColorizeDisabledByFlag(t *testing.T) {
	withColors(t)
	noColor = true

	if got := colorize(colorGreen, "ok"); got != "ok" {
		t.Errorf("colorize with --no-color = %q, want plain text", got)
	}
}

func TestColorizeDisabledByNoColorEnv(t *testing.T) {
	withColors(t)
	t.Setenv("NO_COLOR", "1")

	if got := colorize(colorGreen, "ok"); got != "ok" {
		t.Errorf("colorize with NO_COLOR = %q, want plain text", got)
	}
}
