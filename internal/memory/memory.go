// Package memory tracks per-component memory usage for an index so
// GetStats/GetMemoryUsage can report a snapshot, and exposes pressure
// levels the facade can use to decide when to warn a caller. There is no
// eviction loop or mmap-file machinery here: HGraph/SINDI hold their bytes
// in blockstore slabs, not in an evictable cache, so usage accounting is a
// synchronous snapshot rather than a live policy.
package memory

import (
	"runtime"
	"sync"
	"time"
)

// Usage is a snapshot of memory attributed to each tracked component plus
// process heap usage.
type Usage struct {
	Total     int64
	Nodes     int64
	Adjacency int64
	Postings  int64
	Quantized int64
	HeapInuse int64
	Limit     int64
	Available int64
	Timestamp time.Time
}

// PressureLevel indicates how close Usage.Total is to Usage.Limit.
type PressureLevel int

const (
	NoPressure PressureLevel = iota
	LowPressure
	ModeratePressure
	HighPressure
	CriticalPressure
)

func (l PressureLevel) String() string {
	switch l {
	case NoPressure:
		return "none"
	case LowPressure:
		return "low"
	case ModeratePressure:
		return "moderate"
	case HighPressure:
		return "high"
	case CriticalPressure:
		return "critical"
	default:
		return "unknown"
	}
}

// Accountant tracks named component byte counts for one index instance.
// Components call Set whenever their own memory-owning structure resizes
// (a blockstore growing, a quantizer training); GetUsage sums them into a
// point-in-time total and reports the process heap size alongside it,
// outside that total.
type Accountant struct {
	mu         sync.RWMutex
	limit      int64
	components map[string]int64
}

// NewAccountant creates a tracker with no limit (0 = unlimited) until
// SetLimit is called.
func NewAccountant() *Accountant {
	return &Accountant{components: make(map[string]int64)}
}

// SetLimit configures the soft memory ceiling used to compute Available
// and the pressure level; 0 means unlimited.
func (a *Accountant) SetLimit(bytes int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.limit = bytes
}

// Set records the current byte count for a named component (e.g. "nodes",
// "adjacency", "postings", "quantized").
func (a *Accountant) Set(component string, bytes int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.components[component] = bytes
}

// GetUsage returns a snapshot combining tracked components with the
// process's current heap usage.
func (a *Accountant) GetUsage() Usage {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var total int64
	usage := Usage{
		Nodes:     a.components["nodes"],
		Adjacency: a.components["adjacency"],
		Postings:  a.components["postings"],
		Quantized: a.components["quantized"],
		HeapInuse: int64(memStats.HeapInuse),
		Limit:     a.limit,
		Timestamp: time.Now(),
	}
	for _, v := range a.components {
		total += v
	}
	usage.Total = total

	if a.limit > 0 {
		usage.Available = a.limit - total
		if usage.Available < 0 {
			usage.Available = 0
		}
	} else {
		usage.Available = -1
	}
	return usage
}

// Pressure classifies the current usage against the configured limit using
// a four-tier threshold set (70/80/90/95%).
func (a *Accountant) Pressure() PressureLevel {
	a.mu.RLock()
	limit := a.limit
	a.mu.RUnlock()
	if limit <= 0 {
		return NoPressure
	}
	usage := a.GetUsage()
	ratio := float64(usage.Total) / float64(limit)
	switch {
	case ratio >= 0.95:
		return CriticalPressure
	case ratio >= 0.9:
		return HighPressure
	case ratio >= 0.8:
		return ModeratePressure
	case ratio >= 0.7:
		return LowPressure
	default:
		return NoPressure
	}
}
