// Package geo handles the two coordinate systems survey data lives in:
// geographic WGS84 latitude/longitude from the GPS track and projected
// SWEREF99 TM easting/northing used for Swedish waters. It also wraps
// the H3 hexagonal index used by map aggregation.
package geo

import (
	"github.com/wroge/wgs84"
)

// CRS identifiers, for display in coordinate info output.
const (
	GeographicCRS = "EPSG:4326 (WGS84 lon/lat)"
	PlaneCRS      = "EPSG:3006 (SWEREF99 TM)"
)

// Projector converts between geographic WGS84 coordinates and projected
// SWEREF99 TM easting/northing.
type Projector struct {
	forward wgs84.Func
	inverse wgs84.Func
}

// NewSWEREF99TM builds the projector for the SWEREF99 TM projection:
// a transverse Mercator on the ETRS89 datum with central meridian 15°E,
// scale 0.9996 and a 500 km false easting.
func NewSWEREF99TM() *Projector {
	plane := wgs84.ETRS89().TransverseMercator(15, 0, 0.9996, 500000, 0)
	return &Projector{
		forward: wgs84.LonLat().To(plane),
		inverse: plane.To(wgs84.LonLat()),
	}
}

// ToPlane projects geographic coordinates to easting/northing meters.
func (p *Projector) ToPlane(lon, lat float64) (easting, northing float64) {
	easting, northing, _ = p.forward(lon, lat, 0)
	return easting, northing
}

// ToGeographic inverts the projection back to lon/lat degrees.
func (p *Projector) ToGeographic(easting, northing float64) (lon, lat float64) {
	lon, lat, _ = p.inverse(easting, northing, 0)
	return lon, lat
}
