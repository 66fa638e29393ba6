package main

import "testing"

func TestProgressWidth(t *testing.T) {
	// Non-terminal runs fall back to an 80-column default, interactive
	// ones report the real size; either way the bar must stay usable
	got := progressWidth()
	if got < 1 || got > 50 {
		t.Errorf("progress bar width %d outside sensible range", got)
	}
}
