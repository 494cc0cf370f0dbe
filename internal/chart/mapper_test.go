package chart_test

import (
	"testing"

	"codeberg.org/mutker/thermochart/internal/chart"
	"codeberg.org/mutker/thermochart/internal/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vp = chart.Viewport{Width: 800, Height: 400}

func scenarioSamples() []sample.Sample {
	return []sample.Sample{
		{Time: 1000, CurrentTemp: 70, DesiredTemp: 68, OutsideTemp: 50, OutsideTempCollectionTime: 1000},
		{Time: 1015, CurrentTemp: 69.5, DesiredTemp: 68, OutsideTemp: 49, OutsideTempCollectionTime: 1015, HeaterIsOn: true},
	}
}

func TestNewMapperEmpty(t *testing.T) {
	_, ok := chart.NewMapper(nil, vp, 15, 1000)
	assert.False(t, ok)
}

func TestTemperatureDomainContainsEverySample(t *testing.T) {
	samples := []sample.Sample{
		{Time: 1, CurrentTemp: 18.2, DesiredTemp: 20, OutsideTemp: -12.5},
		{Time: 2, CurrentTemp: 61, DesiredTemp: 19, OutsideTemp: 3},
		{Time: 3, CurrentTemp: 17.9, DesiredTemp: 75.5, OutsideTemp: -3},
	}

	m, ok := chart.NewMapper(samples, vp, 15, 3)
	require.True(t, ok)

	assert.InDelta(t, -13.5, m.TempMin, 1e-9)
	assert.InDelta(t, 76.5, m.TempMax, 1e-9)
	for _, s := range samples {
		for _, temp := range []float64{s.CurrentTemp, s.DesiredTemp, s.OutsideTemp} {
			assert.LessOrEqual(t, m.TempMin, temp)
			assert.GreaterOrEqual(t, m.TempMax, temp)
		}
	}
}

func TestTemperatureDomainSeeds(t *testing.T) {
	// everything equal still yields a range thanks to the seed bounds
	samples := []sample.Sample{{Time: 1, CurrentTemp: 0, DesiredTemp: 0, OutsideTemp: 0}}

	m, ok := chart.NewMapper(samples, vp, 15, 1)
	require.True(t, ok)
	assert.InDelta(t, -1, m.TempMin, 1e-9)
	assert.InDelta(t, 1, m.TempMax, 1e-9)

	hot := []sample.Sample{{Time: 1, CurrentTemp: 70, DesiredTemp: 70, OutsideTemp: 70}}
	m, _ = chart.NewMapper(hot, vp, 15, 1)
	assert.InDelta(t, 49, m.TempMin, 1e-9, "lower bound never exceeds the 50 degree seed")
	assert.InDelta(t, 71, m.TempMax, 1e-9)
}

func TestTempToYSpansPlotArea(t *testing.T) {
	m, _ := chart.NewMapper(scenarioSamples(), vp, 15, 1015)

	assert.InDelta(t, chart.BaseMargin, m.TempToY(m.TempMin), 1e-9)
	assert.InDelta(t, float64(vp.Height), m.TempToY(m.TempMax), 1e-9)
	assert.Greater(t, m.TempToY(70), m.TempToY(69.5), "warmer is higher")
}

func TestTimeToXScenario(t *testing.T) {
	m, _ := chart.NewMapper(scenarioSamples(), vp, 15, 1015)

	assert.InDelta(t, m.RightEdgeX(), m.TimeToX(1015), 1e-9)
	assert.InDelta(t, m.RightEdgeX()-1, m.TimeToX(1000), 1e-9)
	assert.InDelta(t, float64(vp.Width-chart.RightMargin), m.RightEdgeX(), 1e-9)
}

func TestTimeToXMonotonic(t *testing.T) {
	m, _ := chart.NewMapper(scenarioSamples(), vp, 7, 5000)

	prev := m.TimeToX(0)
	for ts := int64(1); ts < 6000; ts += 13 {
		x := m.TimeToX(ts)
		assert.Greater(t, x, prev)
		prev = x
	}
}

func TestZoomScalesHorizontalDistances(t *testing.T) {
	const t1, t2 = 100000, 103600

	base, _ := chart.NewMapper(scenarioSamples(), vp, 15, 104000)
	baseDist := base.TimeToX(t2) - base.TimeToX(t1)

	for _, k := range []int{2, 3, 4} {
		zoomed, _ := chart.NewMapper(scenarioSamples(), vp, 15*k, 104000)
		dist := zoomed.TimeToX(t2) - zoomed.TimeToX(t1)
		assert.InDelta(t, baseDist/float64(k), dist, 1e-9)
	}
}

func TestOldestVisible(t *testing.T) {
	m, _ := chart.NewMapper(scenarioSamples(), vp, 15, 100000)

	assert.InDelta(t, 0, m.TimeToX(m.OldestVisible()), 1e-9)
}
