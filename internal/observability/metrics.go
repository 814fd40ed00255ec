package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for HTTP traffic and request
// lifecycle transitions.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	requestTime  map[string]time.Duration
	errorCount   map[string]int64
	transitions  map[string]int64
}

// Counter is one exported metric sample.
type Counter struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
	// AvgMillis is set for request counters only.
	AvgMillis float64 `json:"avg_ms,omitempty"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Requests    []Counter `json:"requests"`
	Errors      []Counter `json:"errors"`
	Transitions []Counter `json:"transitions"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		requestTime:  make(map[string]time.Duration),
		errorCount:   make(map[string]int64),
		transitions:  make(map[string]int64),
	}
}

// RecordRequest counts a served request keyed by route, method and status.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestTime[key] += duration
}

// RecordError counts an error response by its error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTransition counts an accepted status change.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[from+"->"+to]++
}

// Snapshot copies the counters, sorted by key.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Requests:    make([]Counter, 0, len(m.requestCount)),
		Errors:      counters(m.errorCount),
		Transitions: counters(m.transitions),
	}
	for key, n := range m.requestCount {
		avg := float64(m.requestTime[key].Microseconds()) / 1000 / float64(n)
		snap.Requests = append(snap.Requests, Counter{Key: key, Count: n, AvgMillis: avg})
	}
	sort.Slice(snap.Requests, func(i, j int) bool { return snap.Requests[i].Key < snap.Requests[j].Key })
	return snap
}

func counters(src map[string]int64) []Counter {
	out := make([]Counter, 0, len(src))
	for key, n := range src {
		out = append(out, Counter{Key: key, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
