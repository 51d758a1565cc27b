// Package otelhooks records cache events as OpenTelemetry counters.
package otelhooks

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/assetram"
)

// Hooks implements assetram.Hooks with these instruments:
//
//	assetram.hits            {mode}
//	assetram.misses          {mode}
//	assetram.bypass
//	assetram.stored_bytes
//	assetram.compute_errors  {mode}
//	assetram.store_events    {event}
type Hooks struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	bypass        metric.Int64Counter
	storedBytes   metric.Int64Counter
	computeErrors metric.Int64Counter
	storeEvents   metric.Int64Counter
}

var _ assetram.Hooks = (*Hooks)(nil)

func New(meter metric.Meter) (*Hooks, error) {
	h := &Hooks{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&h.hits, "assetram.hits", "Lookups served from a backend without computing", "{call}"},
		{&h.misses, "assetram.misses", "Lookups that ran compute", "{call}"},
		{&h.bypass, "assetram.bypass", "Calls made with caching disabled", "{call}"},
		{&h.storedBytes, "assetram.stored_bytes", "Bytes inserted into the in-memory backend", "By"},
		{&h.computeErrors, "assetram.compute_errors", "Failed computations (not cached)", "{error}"},
		{&h.storeEvents, "assetram.store_events", "External store anomalies", "{event}"},
	}
	for _, c := range counters {
		ctr, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
		*c.dst = ctr
	}
	return h, nil
}

func modeAttr(m assetram.Mode) metric.AddOption {
	return metric.WithAttributes(attribute.String("mode", m.String()))
}

func eventAttr(event string) metric.AddOption {
	return metric.WithAttributes(attribute.String("event", event))
}

func (h *Hooks) Hit(mode assetram.Mode, _ string) {
	h.hits.Add(context.Background(), 1, modeAttr(mode))
}

func (h *Hooks) Miss(mode assetram.Mode, _ string) {
	h.misses.Add(context.Background(), 1, modeAttr(mode))
}

func (h *Hooks) Bypass(string) {
	h.bypass.Add(context.Background(), 1)
}

func (h *Hooks) Stored(_ string, bytes int, _ int64) {
	h.storedBytes.Add(context.Background(), int64(bytes))
}

func (h *Hooks) ComputeError(mode assetram.Mode, _ string, _ error) {
	h.computeErrors.Add(context.Background(), 1, modeAttr(mode))
}

func (h *Hooks) ExternalUnavailable(string) {
	h.storeEvents.Add(context.Background(), 1, eventAttr("external_unavailable"))
}

func (h *Hooks) SelfHeal(_ string, reason string) {
	h.storeEvents.Add(context.Background(), 1, eventAttr("self_heal_"+reason))
}

func (h *Hooks) ProviderSetRejected(string) {
	h.storeEvents.Add(context.Background(), 1, eventAttr("set_rejected"))
}
