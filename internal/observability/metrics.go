package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope for every skirmish instrument.
const MeterName = "github.com/cory-johannsen/skirmish"

// Metrics holds the OpenTelemetry instruments shared by the behavior engine,
// ability executors and the simulation loop.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	treeTicks    metric.Int64Counter
	leafFaults   metric.Int64Counter
	executions   metric.Int64Counter
	rejections   metric.Int64Counter
	stepDuration metric.Float64Histogram
}

// NewMetrics creates all instruments from mp.
//
// Precondition: mp must not be nil.
// Postcondition: Returns a usable *Metrics or the first instrument creation error.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(MeterName)
	m := &Metrics{}
	var err error

	if m.treeTicks, err = meter.Int64Counter(
		"skirmish.tree.ticks",
		metric.WithDescription("Behavior tree ticks by resulting status"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create tree tick counter: %w", err)
	}
	if m.leafFaults, err = meter.Int64Counter(
		"skirmish.leaf.faults",
		metric.WithDescription("Action or condition callbacks that errored or panicked"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create leaf fault counter: %w", err)
	}
	if m.executions, err = meter.Int64Counter(
		"skirmish.ability.executions",
		metric.WithDescription("Ability executions by exit outcome"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create execution counter: %w", err)
	}
	if m.rejections, err = meter.Int64Counter(
		"skirmish.ability.rejections",
		metric.WithDescription("Ability execute calls rejected before starting"),
		metric.WithUnit("1"),
	); err != nil {
		return nil, fmt.Errorf("create rejection counter: %w", err)
	}
	if m.stepDuration, err = meter.Float64Histogram(
		"skirmish.sim.step.duration",
		metric.WithDescription("Wall-clock time spent in one simulation step"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("create step histogram: %w", err)
	}
	return m, nil
}

// NewNoopMetrics returns instruments backed by the noop provider.
func NewNoopMetrics() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		// The noop provider never fails.
		panic("observability.NewNoopMetrics: " + err.Error())
	}
	return m
}

// TreeTicked records one completed tree tick.
func (m *Metrics) TreeTicked(tree, status string) {
	if m == nil {
		return
	}
	m.treeTicks.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("tree", tree),
		attribute.String("status", status),
	))
}

// LeafFaulted records one faulting leaf callback.
func (m *Metrics) LeafFaulted(tree, node string) {
	if m == nil {
		return
	}
	m.leafFaults.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("tree", tree),
		attribute.String("node", node),
	))
}

// AbilityFinished records an execution reaching an exit condition.
func (m *Metrics) AbilityFinished(ability, outcome string) {
	if m == nil {
		return
	}
	m.executions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("ability", ability),
		attribute.String("outcome", outcome),
	))
}

// AbilityRejected records an execute call rejected before it started.
func (m *Metrics) AbilityRejected(ability string) {
	if m == nil {
		return
	}
	m.rejections.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("ability", ability),
	))
}

// StepTook records the duration of one simulation step.
func (m *Metrics) StepTook(d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.Record(context.Background(), float64(d)/float64(time.Millisecond))
}
