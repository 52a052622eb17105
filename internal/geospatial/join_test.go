package geospatial

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(x, y, size float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y}}}
}

func TestCountPoints(t *testing.T) {
	cells := []orb.Geometry{box(0, 0, 1), box(1, 0, 1), box(5, 5, 1)}
	points := []orb.Point{{0.5, 0.5}, {0.2, 0.8}, {1.5, 0.5}, {10, 10}}

	counts, err := CountPoints(cells, points)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, counts)
}

func TestCountPoints_SharedEdgeCountedOnce(t *testing.T) {
	cells := []orb.Geometry{box(0, 0, 1), box(1, 0, 1)}
	points := []orb.Point{{1, 0.5}}

	counts, err := CountPoints(cells, points)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, counts)
}

func TestCountPoints_DuplicatePoints(t *testing.T) {
	cells := []orb.Geometry{box(0, 0, 1)}
	points := []orb.Point{{0.5, 0.5}, {0.5, 0.5}, {0.5, 0.5}}

	counts, err := CountPoints(cells, points)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, counts)
}

func TestCountPoints_Empty(t *testing.T) {
	counts, err := CountPoints([]orb.Geometry{box(0, 0, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, counts)
}

func TestCountPoints_MultiPolygon(t *testing.T) {
	cells := []orb.Geometry{orb.MultiPolygon{box(0, 0, 1), box(3, 3, 1)}}
	counts, err := CountPoints(cells, []orb.Point{{0.5, 0.5}, {3.5, 3.5}, {2, 2}})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, counts)
}

func TestContains_Hole(t *testing.T) {
	poly := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	}
	assert.True(t, Contains(poly, orb.Point{1, 1}))
	assert.False(t, Contains(poly, orb.Point{5, 5}))
	assert.False(t, Contains(orb.LineString{{0, 0}, {1, 1}}, orb.Point{0, 0}))
}

func TestAssign(t *testing.T) {
	cells := []orb.Geometry{box(0, 0, 1), box(1, 0, 1)}
	points := []orb.Point{{1.5, 0.5}, {1, 0.5}, {9, 9}}

	owner, err := Assign(cells, points)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, -1}, owner)
}
