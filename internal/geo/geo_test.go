package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectorRoundTrip(t *testing.T) {
	p := NewSWEREF99TM()

	// A position in the Baltic off Karlskrona.
	lon, lat := 15.65, 56.1

	e, n := p.ToPlane(lon, lat)
	assert.InDelta(t, 540000, e, 50000, "easting near the central meridian")
	assert.Greater(t, n, 6100000.0)
	assert.Less(t, n, 6300000.0)

	// The inverse projection is accurate to a few microdegrees, so the
	// round trip closes to about a meter, not exactly.
	lon2, lat2 := p.ToGeographic(e, n)
	assert.InDelta(t, lon, lon2, 1e-5)
	assert.InDelta(t, lat, lat2, 1e-5)
}

func TestProjectorCentralMeridianEasting(t *testing.T) {
	p := NewSWEREF99TM()

	// On the central meridian the easting equals the false easting.
	e, _ := p.ToPlane(15, 58)
	assert.InDelta(t, 500000, e, 1)
}

func TestCellForIsDeterministic(t *testing.T) {
	a := CellFor(56.1, 15.65, 8)
	b := CellFor(56.1, 15.65, 8)
	assert.Equal(t, a, b)

	coarser := CellFor(56.1, 15.65, 5)
	assert.NotEqual(t, a, coarser)
}

func TestCellCenterNearInput(t *testing.T) {
	c := CellFor(56.1, 15.65, 8)
	lat, lon := CellCenter(c)
	assert.InDelta(t, 56.1, lat, 0.02)
	assert.InDelta(t, 15.65, lon, 0.02)
}

func TestCellBoundaryIsPolygon(t *testing.T) {
	c := CellFor(56.1, 15.65, 8)
	boundary := CellBoundary(c)
	require.GreaterOrEqual(t, len(boundary), 5)
	for _, v := range boundary {
		assert.InDelta(t, 56.1, v[0], 0.05)
		assert.InDelta(t, 15.65, v[1], 0.05)
	}
}
