package metrics

import (
	"sync"

	"github.com/iaserrat/connwatch/internal/probe"
)

// PhaseCounters holds bucketed counts and the failure count for one
// phase (DNS or connect). Buckets is index-aligned with the aggregator's
// bucket set.
type PhaseCounters struct {
	Buckets  []uint64
	Failures uint64
}

// Counters accumulates all samples for one endpoint since the last
// reset. Attempts increments once per recorded outcome and equals
// sum(phase buckets) + phase failures for each phase independently.
type Counters struct {
	Attempts uint64
	DNS      PhaseCounters
	Connect  PhaseCounters
}

// Aggregator buckets probe outcomes per endpoint under one mutex.
// Record and SnapshotAndReset never interleave, so a snapshot always
// reflects whole outcomes.
type Aggregator struct {
	mu       sync.Mutex
	buckets  []Bucket
	counters map[probe.Endpoint]*Counters
}

func NewAggregator(buckets []Bucket) *Aggregator {
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	return &Aggregator{
		buckets:  buckets,
		counters: make(map[probe.Endpoint]*Counters),
	}
}

// Buckets returns a copy of the aggregator's bucket set.
func (a *Aggregator) Buckets() []Bucket {
	out := make([]Bucket, len(a.buckets))
	copy(out, a.buckets)
	return out
}

// Record classifies both phases of one outcome and updates the
// endpoint's counters as a single atomic unit.
func (a *Aggregator) Record(ep probe.Endpoint, out probe.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.counterFor(ep)
	c.Attempts++
	a.observe(&c.DNS, out.DNS)
	a.observe(&c.Connect, out.Connect)
}

// SnapshotAndReset returns a deep copy of every endpoint's counters and
// clears the aggregator back to empty in the same critical section.
func (a *Aggregator) SnapshotAndReset() map[probe.Endpoint]Counters {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := make(map[probe.Endpoint]Counters, len(a.counters))
	for ep, c := range a.counters {
		cp := Counters{
			Attempts: c.Attempts,
			DNS:      PhaseCounters{Buckets: append([]uint64(nil), c.DNS.Buckets...), Failures: c.DNS.Failures},
			Connect:  PhaseCounters{Buckets: append([]uint64(nil), c.Connect.Buckets...), Failures: c.Connect.Failures},
		}
		snap[ep] = cp
	}
	a.counters = make(map[probe.Endpoint]*Counters)
	return snap
}

func (a *Aggregator) counterFor(ep probe.Endpoint) *Counters {
	c := a.counters[ep]
	if c == nil {
		c = &Counters{
			DNS:     PhaseCounters{Buckets: make([]uint64, len(a.buckets))},
			Connect: PhaseCounters{Buckets: make([]uint64, len(a.buckets))},
		}
		a.counters[ep] = c
	}
	return c
}

func (a *Aggregator) observe(pc *PhaseCounters, res probe.PhaseResult) {
	if !res.OK {
		pc.Failures++
		return
	}
	idx := bucketIndex(a.buckets, res.Elapsed)
	if idx < 0 {
		// at or past the ceiling: slow is indistinguishable from down
		pc.Failures++
		return
	}
	pc.Buckets[idx]++
}
