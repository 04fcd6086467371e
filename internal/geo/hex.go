package geo

import (
	"github.com/uber/h3-go/v4"
)

// CellFor indexes a geographic position into the H3 cell at the given
// resolution.
func CellFor(lat, lon float64, resolution int) h3.Cell {
	return h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, resolution)
}

// CellCenter returns the geographic center of an H3 cell.
func CellCenter(c h3.Cell) (lat, lon float64) {
	center := h3.CellToLatLng(c)
	return center.Lat, center.Lng
}

// CellBoundary returns the cell's boundary vertices as lat/lon pairs,
// in ring order.
func CellBoundary(c h3.Cell) [][2]float64 {
	boundary := h3.CellToBoundary(c)
	out := make([][2]float64, len(boundary))
	for i, v := range boundary {
		out[i] = [2]float64{v.Lat, v.Lng}
	}
	return out
}
