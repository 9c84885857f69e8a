package session

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type metrics struct {
	toggles   metric.Int64Counter
	finalized metric.Int64Counter
	interim   metric.Int64Counter
	errors    metric.Int64Counter
	restarts  metric.Int64Counter
	exports   metric.Int64Counter

	gauge metric.Registration
}

func newMetrics(meter metric.Meter, entries func() int64) (*metrics, error) {
	var (
		m   metrics
		err error
	)
	if m.toggles, err = meter.Int64Counter("scribe.recording.toggles", metric.WithDescription("Recording toggles requested by the user")); err != nil {
		return nil, err
	}
	if m.finalized, err = meter.Int64Counter("scribe.transcripts.finalized", metric.WithDescription("Finalized results appended to the transcript log")); err != nil {
		return nil, err
	}
	if m.interim, err = meter.Int64Counter("scribe.transcripts.interim_discarded", metric.WithDescription("Interim results discarded")); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Int64Counter("scribe.provider.errors", metric.WithDescription("Speech recognition errors")); err != nil {
		return nil, err
	}
	if m.restarts, err = meter.Int64Counter("scribe.provider.restarts", metric.WithDescription("Recognizer restarts after an end notification")); err != nil {
		return nil, err
	}
	if m.exports, err = meter.Int64Counter("scribe.transcripts.exports", metric.WithDescription("Transcript exports written")); err != nil {
		return nil, err
	}
	gauge, err := meter.Int64ObservableGauge("scribe.transcripts.entries", metric.WithDescription("Entries currently in the transcript log"))
	if err != nil {
		return nil, err
	}
	m.gauge, err = meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		obs.ObserveInt64(gauge, entries())
		return nil
	}, gauge)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// unregister detaches the entry gauge so the meter no longer references the
// controller.
func (m *metrics) unregister() error {
	if m.gauge == nil {
		return nil
	}
	err := m.gauge.Unregister()
	m.gauge = nil
	return err
}

func noopMetrics() *metrics {
	m, _ := newMetrics(noop.NewMeterProvider().Meter(""), func() int64 { return 0 })
	return m
}

func metricAttrs(recording bool) metric.AddOption {
	return metric.WithAttributes(attribute.Bool("recording", recording))
}
