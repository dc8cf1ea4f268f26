// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration

	// Call counters (only for the model invoke operation)
	Retries int64
	Drops   int64
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64

	// Call stats (nil if not applicable)
	Retries  *int64
	Drops    *int64
	DropRate *float64
}

// Snapshot represents the full process statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Generate      *OperationSnapshot
	ModelInvoke   *OperationSnapshot
	Analyze       *OperationSnapshot
}

// Operation names for the collector.
const (
	OpGenerate    = "generate_data"
	OpModelInvoke = "model_invoke"
	OpAnalyze     = "analyze"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.record(op, duration)
}

// RecordModelCall records timing and outcome for one model invocation,
// including how many retries the call burned and whether the record was
// dropped in the end.
func (c *Collector) RecordModelCall(duration time.Duration, retries int64, dropped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.record(OpModelInvoke, duration)
	m.Retries += retries
	if dropped {
		m.Drops++
	}
}

// record updates the timing aggregates for op. Caller must hold write lock.
func (c *Collector) record(op string, duration time.Duration) *OperationMetrics {
	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
	return m
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics, includeCalls bool) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	snap := &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}

	if includeCalls {
		retries := m.Retries
		drops := m.Drops
		dropRate := float64(m.Drops) / float64(m.Count)

		snap.Retries = &retries
		snap.Drops = &drops
		snap.DropRate = &dropRate
	}

	return snap
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Generate:      snapshotOp(c.ops[OpGenerate], false),
		ModelInvoke:   snapshotOp(c.ops[OpModelInvoke], true),
		Analyze:       snapshotOp(c.ops[OpAnalyze], false),
	}
}
