package behavior_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/skirmish/internal/game/behavior"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

func TestNewTree_RejectsNilRoot(t *testing.T) {
	_, err := behavior.NewTree("t", nil, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestNewTree_RejectsSharedNode(t *testing.T) {
	shared := newScripted("shared", S)
	root := behavior.NewSequence("root", shared, behavior.NewInverter("inv", shared))
	_, err := behavior.NewTree("t", root, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"shared"`)
}

func TestTree_TickCountsAndResets(t *testing.T) {
	leaf := newScripted("wait", R, S)
	root := behavior.NewSequence("root", newScripted("first", S), leaf)
	tree, err := behavior.NewTree("t", root, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, R, tree.Tick())
	assert.Equal(t, R, tree.Last())
	assert.Equal(t, 1, root.Cursor())

	tree.Reset()
	assert.Equal(t, 0, root.Cursor())
	assert.Equal(t, S, tree.Tick())
	assert.Equal(t, uint64(2), tree.Ticks())
}

func TestTree_ContextIsSharedAcrossNodes(t *testing.T) {
	write := behavior.NewAction("write", func(ctx *behavior.Context) (behavior.Status, error) {
		ctx.Set("target.id", "goblin-1")
		return S, nil
	})
	read := behavior.NewCondition("read", func(ctx *behavior.Context) (bool, error) {
		return ctx.String("target.id") == "goblin-1", nil
	})
	tree, err := behavior.NewTree("t", behavior.NewSequence("root", write, read), nil)
	require.NoError(t, err)
	assert.Equal(t, S, tree.Tick())
	assert.Equal(t, []string{"target.id"}, tree.Context().Keys())
}

func TestTree_LeafFaultsBecomeFailure(t *testing.T) {
	cases := map[string]behavior.ActionFunc{
		"error": func(*behavior.Context) (behavior.Status, error) {
			return S, errors.New("boom")
		},
		"panic": func(*behavior.Context) (behavior.Status, error) {
			panic("kaboom")
		},
		"invalid": func(*behavior.Context) (behavior.Status, error) {
			return behavior.Status(42), nil
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zapcore.WarnLevel)
			tree, err := behavior.NewTree("t", behavior.NewAction("bad", fn), zap.New(core))
			require.NoError(t, err)

			assert.Equal(t, F, tree.Tick())
			entries := logs.FilterMessage("behavior: leaf fault treated as failure").All()
			require.Len(t, entries, 1)
			assert.Equal(t, "bad", entries[0].ContextMap()["node"])
			assert.Equal(t, "t", entries[0].ContextMap()["tree"])
		})
	}
}

func TestTree_ConditionErrorIsFailure(t *testing.T) {
	c := behavior.NewCondition("bad", func(*behavior.Context) (bool, error) {
		return true, errors.New("nope")
	})
	tree, err := behavior.NewTree("t", behavior.NewInverter("inv", c), nil)
	require.NoError(t, err)
	// The inverter sees Failure from the faulted condition.
	assert.Equal(t, S, tree.Tick())
}

func TestTree_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := observability.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	tree, err := behavior.NewTree("goblin", behavior.NewSequence("root",
		behavior.NewAction("ok", behavior.Returns(S)),
		behavior.NewAction("bad", func(*behavior.Context) (behavior.Status, error) { panic("x") }),
	), nil)
	require.NoError(t, err)
	tree.SetMetrics(m)
	tree.Tick()
	tree.Tick()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if s, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					sums[md.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["skirmish.tree.ticks"])
	assert.Equal(t, int64(2), sums["skirmish.leaf.faults"])
}
