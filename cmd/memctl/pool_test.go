package main

import (
	"testing"
)

func TestPoolCommand(t *testing.T) {
	resetFlags(t)
	poolCapacity, poolRounds = 4, 3

	output, err := captureOutput(t, runPool)
	if err != nil {
		t.Fatalf("runPool() error = %v", err)
	}
	assertContains(t, output, []string{
		"Fixed pool: capacity 4, exhausted on acquire 5: true, recovered after release: true",
		"Growable pool: 3 rounds, capacity 4, in use 0, backing allocations 4",
		"Stale release detected: true",
	})
}

func TestPoolCommandJSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	poolCapacity, poolRounds = 2, 5

	output, err := captureOutput(t, runPool)
	if err != nil {
		t.Fatalf("runPool() error = %v", err)
	}
	var report PoolReport
	assertJSON(t, output, &report)
	if !report.Fixed.Exhausted || !report.Fixed.Recovered {
		t.Errorf("fixed = %+v", report.Fixed)
	}
	if report.Growable.BackingAllocs != 2 {
		t.Errorf("backing allocs = %d, want 2 (slots are recycled)", report.Growable.BackingAllocs)
	}
}

func TestPoolCommandBadFlags(t *testing.T) {
	resetFlags(t)
	poolCapacity, poolRounds = 0, 1
	if _, err := captureOutput(t, runPool); err == nil {
		t.Fatal("expected error for zero capacity")
	}
}
