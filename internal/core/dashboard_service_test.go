package core

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsShapeAndRanges(t *testing.T) {
	svc := NewDashboardService(rand.New(rand.NewPCG(1, 2)))
	m := svc.Metrics(DemoUser())

	assert.Equal(t, DemoUserID, m.UserID)
	assert.Equal(t, "Green Valley Farm", m.FarmName)
	require.Len(t, m.Weather, 7)
	require.Len(t, m.Yield, 6)
	assert.LessOrEqual(t, len(m.Pests), 3)

	for _, w := range m.Weather {
		assert.GreaterOrEqual(t, w.TemperatureC, 12.0)
		assert.LessOrEqual(t, w.TemperatureC, 32.0)
	}
	assert.GreaterOrEqual(t, m.Soil.PH, 5.5)
	assert.LessOrEqual(t, m.Soil.PH, 7.5)
}

func TestMetricsDeterministicForSeed(t *testing.T) {
	a := NewDashboardService(rand.New(rand.NewPCG(7, 7))).Metrics(nil)
	b := NewDashboardService(rand.New(rand.NewPCG(7, 7))).Metrics(nil)
	assert.Equal(t, a.Soil, b.Soil)
	assert.Equal(t, a.Pests, b.Pests)
}
