package bufferpool

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Stats is a snapshot of the pool counters.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	WriteBacks uint64
	Exhausted  uint64
}

// poolMetrics holds the OpenTelemetry instruments mirroring Stats. All
// methods are nil-safe so an unregistered pool costs nothing.
type poolMetrics struct {
	hits       metric.Int64Counter
	misses     metric.Int64Counter
	evictions  metric.Int64Counter
	writeBacks metric.Int64Counter
	exhaustion metric.Int64Counter
}

// RegisterMetrics creates the pool's metric instruments on the given
// meter. Call once after New when telemetry is enabled.
func (p *PagePool) RegisterMetrics(meter metric.Meter) error {
	hits, err := meter.Int64Counter(
		"blastdb.bufferpool.hits_total",
		metric.WithDescription("Page requests served from a resident frame."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	misses, err := meter.Int64Counter(
		"blastdb.bufferpool.misses_total",
		metric.WithDescription("Page requests that materialized a new frame."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	evictions, err := meter.Int64Counter(
		"blastdb.bufferpool.evictions_total",
		metric.WithDescription("Resident pages displaced from their frame."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	writeBacks, err := meter.Int64Counter(
		"blastdb.bufferpool.writebacks_total",
		metric.WithDescription("Dirty frames written back through the flush hook."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}
	exhaustion, err := meter.Int64Counter(
		"blastdb.bufferpool.exhausted_total",
		metric.WithDescription("Page requests rejected because the LRU victim frame was pinned."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	p.metrics = &poolMetrics{
		hits:       hits,
		misses:     misses,
		evictions:  evictions,
		writeBacks: writeBacks,
		exhaustion: exhaustion,
	}
	return nil
}

func (m *poolMetrics) hit() {
	if m != nil {
		m.hits.Add(context.Background(), 1)
	}
}

func (m *poolMetrics) miss() {
	if m != nil {
		m.misses.Add(context.Background(), 1)
	}
}

func (m *poolMetrics) eviction() {
	if m != nil {
		m.evictions.Add(context.Background(), 1)
	}
}

func (m *poolMetrics) writeBack() {
	if m != nil {
		m.writeBacks.Add(context.Background(), 1)
	}
}

func (m *poolMetrics) exhausted() {
	if m != nil {
		m.exhaustion.Add(context.Background(), 1)
	}
}
