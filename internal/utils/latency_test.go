package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentiles(t *testing.T) {
	tracker := NewLatencyTracker(100)
	for i := 1; i <= 100; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}

	if tracker.Count() != 100 {
		t.Fatalf("expected 100 samples, got %d", tracker.Count())
	}
	if p50 := tracker.Percentile(50); p50 < 45*time.Millisecond || p50 > 55*time.Millisecond {
		t.Fatalf("p50 out of range: %v", p50)
	}
	if p100 := tracker.Percentile(100); p100 != 100*time.Millisecond {
		t.Fatalf("p100 should be the max, got %v", p100)
	}
	if p0 := tracker.Percentile(0); p0 != time.Millisecond {
		t.Fatalf("p0 should be the min, got %v", p0)
	}
}

func TestLatencyTrackerEvictsOldestWhenFull(t *testing.T) {
	tracker := NewLatencyTracker(4)
	for i := 1; i <= 8; i++ {
		tracker.Observe(time.Duration(i) * time.Second)
	}

	if tracker.Count() != 4 {
		t.Fatalf("expected ring bounded at 4, got %d", tracker.Count())
	}
	if min := tracker.Percentile(0); min != 5*time.Second {
		t.Fatalf("oldest samples should be evicted, min is %v", min)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(10)
	if got := tracker.Percentile(95); got != 0 {
		t.Fatalf("empty tracker must report zero, got %v", got)
	}
}
