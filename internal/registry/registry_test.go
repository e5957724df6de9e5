package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/caterya/internal/metric"
)

func TestRegistry_Register(t *testing.T) {
	t.Run("duplicate registration", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Register("m", metric.NewProvenance))
		err := r.Register("m", metric.NewProvenance)
		assert.ErrorIs(t, err, ErrAlreadyRegistered)
	})

	t.Run("nil constructor", func(t *testing.T) {
		r := New()
		assert.ErrorIs(t, r.Register("m", nil), ErrNilConstructor)
	})
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := Default()
	_, err := r.Resolve("nonexistent_metric")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownMetric)

	var unknown *UnknownMetricError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nonexistent_metric", unknown.Name)
	assert.Equal(t, r.Names(), unknown.Known)
	assert.Len(t, unknown.Known, 12)
}

func TestRegistry_ResolveReturnsFreshInstances(t *testing.T) {
	r := Default()
	a, err := r.Resolve(metric.SymmetryIndexName)
	require.NoError(t, err)
	b, err := r.Resolve(metric.SymmetryIndexName)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, metric.SymmetryIndexName, a.Name())
}

func TestRegistry_AllMetricsHonorBounds(t *testing.T) {
	r := Default()
	ds := &metric.Dataset{
		Predictions: []float64{0.1, 0.9, 0.4, 0.7, 0.2, 0.8},
		Labels:      []float64{0, 1, 0, 1, 1, 0},
		Groups:      []metric.GroupID{"a", "b", "a", "b", "a", "b"},
	}
	for _, name := range r.Names() {
		t.Run(name, func(t *testing.T) {
			m, err := r.Resolve(name)
			require.NoError(t, err)
			b := m.Bounds()
			assert.Less(t, b.Min, b.Max)

			score, err := m.Compute(context.Background(), nil, ds, nil)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score, b.Min)
			assert.LessOrEqual(t, score, b.Max)
		})
	}
}

func TestRegistry_ConfigureParams(t *testing.T) {
	r := Default()
	require.NoError(t, r.Configure(metric.FeynmanTestName, metric.Params{"floor": 0.1, "span": 0}))

	m, err := r.Resolve(metric.FeynmanTestName)
	require.NoError(t, err)
	score, err := m.Compute(context.Background(), nil, &metric.Dataset{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.1, score)

	err = r.Configure("missing", nil)
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestRegistry_ConstructorFailureSurfaces(t *testing.T) {
	r := Default()
	require.NoError(t, r.Configure(metric.EthicalEnergyName, metric.Params{"weights": "heavy"}))
	_, err := r.Resolve(metric.EthicalEnergyName)
	assert.ErrorIs(t, err, metric.ErrInvalidParam)
}

func TestRegistry_Info(t *testing.T) {
	info, err := Default().Info(metric.SymmetryIndexName)
	require.NoError(t, err)
	assert.Equal(t, metric.SymmetryIndexName, info.Name)
	assert.Equal(t, metric.UnitBounds, info.Bounds)
	assert.NotEmpty(t, info.Description)
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	r := Default()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range r.Names() {
				if _, err := r.Resolve(name); err != nil {
					t.Errorf("Resolve(%s): %v", name, err)
				}
			}
		}()
	}
	wg.Wait()
}

func TestPillars_Default(t *testing.T) {
	p := DefaultPillars()
	assert.Equal(t, []string{PillarBias, PillarInterpretability, PillarRobustness, PillarTransparency}, p.ListPillars())

	ids, err := p.MetricsFor(PillarBias)
	require.NoError(t, err)
	assert.Equal(t, []string{metric.FairnessEnergyName, metric.SymmetryIndexName, metric.EthicalEnergyName}, ids)

	require.NoError(t, p.Check(Default()))
	for _, pl := range p.Catalog() {
		assert.Len(t, pl.Metrics, 3, pl.Name)
	}
}

func TestPillars_Unknown(t *testing.T) {
	_, err := DefaultPillars().MetricsFor("ethics")
	assert.ErrorIs(t, err, ErrUnknownPillar)

	var unknown *UnknownPillarError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "ethics", unknown.Name)
	assert.Len(t, unknown.Known, 4)
}

func TestPillars_CopiesAreIndependent(t *testing.T) {
	p := DefaultPillars()
	ids, _ := p.MetricsFor(PillarBias)
	ids[0] = "mutated"
	again, _ := p.MetricsFor(PillarBias)
	assert.Equal(t, metric.FairnessEnergyName, again[0])
}

func TestPillars_Duplicate(t *testing.T) {
	_, err := NewPillars(Pillar{Name: "a"}, Pillar{Name: "a"})
	assert.ErrorIs(t, err, ErrDuplicatePillar)
}

func TestPillars_CheckFindsUnregistered(t *testing.T) {
	p, err := NewPillars(Pillar{Name: "x", Metrics: []string{"ghost"}})
	require.NoError(t, err)
	assert.ErrorIs(t, p.Check(Default()), ErrUnknownMetric)
}
