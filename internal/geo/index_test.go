package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	zap.ReplaceGlobals(zap.NewNop())
	m.Run()
}

// square builds a closed ring from (x1,y1) to (x2,y2).
func square(x1, y1, x2, y2 float64) []float64 {
	return []float64{x1, y1, x2, y1, x2, y2, x1, y2, x1, y1}
}

func multiPolygon(t *testing.T, rings ...[]float64) *geom.MultiPolygon {
	t.Helper()
	poly := geom.NewPolygon(geom.XY)
	for _, ring := range rings {
		require.NoError(t, poly.Push(geom.NewLinearRingFlat(geom.XY, ring)))
	}
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(poly))
	return mp
}

func TestIndex_Contains(t *testing.T) {
	idx := NewIndex()
	idx.Add("Richmond", multiPolygon(t, square(144.98, -37.84, 145.02, -37.80)))

	assert.True(t, idx.Contains("Richmond", 145.00, -37.82))
	assert.True(t, idx.Contains("richmond", 145.00, -37.82), "lookup is case-insensitive")
	assert.False(t, idx.Contains("Richmond", 144.90, -37.82), "outside the boundary")
}

func TestIndex_UnknownSuburbNeverPenalizes(t *testing.T) {
	idx := NewIndex()
	assert.True(t, idx.Contains("Nowhere", 0, 0))
	assert.False(t, idx.Known("Nowhere"))
}

func TestIndex_HoleExcluded(t *testing.T) {
	idx := NewIndex()
	outer := square(0, 0, 10, 10)
	hole := square(4, 4, 6, 6)
	idx.Add("Donut", multiPolygon(t, outer, hole))

	assert.True(t, idx.Contains("Donut", 2, 2))
	assert.False(t, idx.Contains("Donut", 5, 5), "points in the hole are outside")
}

func TestIndex_MergesShapesForSameSuburb(t *testing.T) {
	idx := NewIndex()
	idx.Add("Split", multiPolygon(t, square(0, 0, 1, 1)))
	idx.Add("Split", multiPolygon(t, square(5, 5, 6, 6)))

	assert.Equal(t, 1, idx.Len())
	assert.True(t, idx.Contains("Split", 0.5, 0.5))
	assert.True(t, idx.Contains("Split", 5.5, 5.5))
}

func TestIndex_Locate(t *testing.T) {
	idx := NewIndex()
	idx.Add("Richmond", multiPolygon(t, square(144.98, -37.84, 145.02, -37.80)))
	idx.Add("Carlton", multiPolygon(t, square(144.95, -37.81, 144.98, -37.78)))

	assert.Equal(t, "RICHMOND", idx.Locate(145.00, -37.82))
	assert.Empty(t, idx.Locate(0, 0))
}

func TestIndex_IgnoresEmptyInput(t *testing.T) {
	idx := NewIndex()
	idx.Add("", multiPolygon(t, square(0, 0, 1, 1)))
	idx.Add("X", nil)
	assert.Zero(t, idx.Len())
}
