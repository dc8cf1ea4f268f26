package metrics

import (
	"math"
	"testing"
	"time"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpGenerate, 10*time.Millisecond)
	c.RecordTiming(OpGenerate, 30*time.Millisecond)

	snap := c.Snapshot()
	if snap.Generate == nil {
		t.Fatal("Generate snapshot missing")
	}
	if snap.Generate.Count != 2 {
		t.Errorf("Count = %d, want 2", snap.Generate.Count)
	}
	if snap.Generate.MinTimeMs != 10 || snap.Generate.MaxTimeMs != 30 {
		t.Errorf("min/max = %d/%d, want 10/30", snap.Generate.MinTimeMs, snap.Generate.MaxTimeMs)
	}
	if snap.Generate.AvgTimeMs != 20 {
		t.Errorf("AvgTimeMs = %v, want 20", snap.Generate.AvgTimeMs)
	}
	if snap.Generate.Retries != nil {
		t.Error("timing-only ops must not carry call stats")
	}
}

func TestRecordModelCall(t *testing.T) {
	c := NewCollector()
	c.RecordModelCall(5*time.Millisecond, 0, false)
	c.RecordModelCall(15*time.Millisecond, 2, false)
	c.RecordModelCall(25*time.Millisecond, 1, true)
	c.RecordModelCall(5*time.Millisecond, 0, true)

	snap := c.Snapshot()
	mi := snap.ModelInvoke
	if mi == nil {
		t.Fatal("ModelInvoke snapshot missing")
	}
	if mi.Count != 4 {
		t.Errorf("Count = %d, want 4", mi.Count)
	}
	if mi.Retries == nil || *mi.Retries != 3 {
		t.Errorf("Retries = %v, want 3", mi.Retries)
	}
	if mi.Drops == nil || *mi.Drops != 2 {
		t.Errorf("Drops = %v, want 2", mi.Drops)
	}
	if mi.DropRate == nil || math.Abs(*mi.DropRate-0.5) > 1e-9 {
		t.Errorf("DropRate = %v, want 0.5", mi.DropRate)
	}
}

func TestSnapshotEmpty(t *testing.T) {
	snap := NewCollector().Snapshot()
	if snap.Generate != nil || snap.ModelInvoke != nil || snap.Analyze != nil {
		t.Error("empty collector must snapshot nil ops")
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("UptimeSeconds = %v", snap.UptimeSeconds)
	}
}
