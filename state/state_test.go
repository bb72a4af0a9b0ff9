package state

import "testing"

func TestMemoryTracker(t *testing.T) {
	tracker := NewMemoryTracker()

	if tracker.Seen("a") {
		t.Error("fresh tracker reports key as seen")
	}

	tracker.Mark("a", "uid-1")
	if !tracker.Seen("a") {
		t.Error("marked key not reported as seen")
	}
	if tracker.Seen("b") {
		t.Error("unmarked key reported as seen")
	}

	tracker.Mark("a", "uid-2")
	tracker.Mark("b", "uid-3")
	if got := tracker.Snapshot().Seen; got != 2 {
		t.Errorf("Snapshot().Seen = %d, want 2", got)
	}
}

func TestMemoryTrackerIgnoresEmptyKey(t *testing.T) {
	tracker := NewMemoryTracker()

	tracker.Mark("", "uid-1")
	if tracker.Seen("") {
		t.Error("empty key must never be seen")
	}
	if got := tracker.Snapshot().Seen; got != 0 {
		t.Errorf("Snapshot().Seen = %d, want 0", got)
	}
}
