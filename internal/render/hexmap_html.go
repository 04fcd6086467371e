package render

import (
	"fmt"
	"html/template"
	"io"

	"echocli/internal/errors"
	"echocli/internal/geo"
)

// htmlHex is one cell prepared for the interactive template.
type htmlHex struct {
	Points [][2]float64
	Color  string
	Popup  string
}

type htmlMapData struct {
	Title     string
	CenterLat float64
	CenterLon float64
	Hexes     []htmlHex
	VMin      float64
	VMax      float64
}

var hexMapTemplate = template.Must(template.New("hexmap").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>#map { height: 100vh; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], 9);
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
{{range .Hexes}}
L.polygon([{{range .Points}}[{{index . 0}}, {{index . 1}}],{{end}}], {
  color: 'gray', weight: 0.5, fillColor: '{{.Color}}', fillOpacity: 0.75
}).bindPopup('{{.Popup}}').addTo(map);
{{end}}
</script>
</body>
</html>
`))

// HexMapHTML writes an interactive map with one polygon per cell and a
// value popup, on an OpenStreetMap base layer.
func HexMapHTML(w io.Writer, bins []HexBin, opts MapOptions) error {
	opts.defaults()
	if len(bins) == 0 {
		return errors.Render("hex map", errEmptySeries)
	}
	vmin, vmax := scaleBounds(bins, opts)

	data := htmlMapData{Title: opts.Title, VMin: vmin, VMax: vmax}
	for _, b := range bins {
		lat, lon := geo.CellCenter(b.Cell)
		data.CenterLat += lat
		data.CenterLon += lon

		t := (b.Value - vmin) / (vmax - vmin)
		data.Hexes = append(data.Hexes, htmlHex{
			Points: geo.CellBoundary(b.Cell),
			Color:  rampColor(t),
			Popup:  fmt.Sprintf("value %.3f (n=%d)", b.Value, b.Count),
		})
	}
	data.CenterLat /= float64(len(bins))
	data.CenterLon /= float64(len(bins))

	if err := hexMapTemplate.Execute(w, data); err != nil {
		return errors.Render("hex map", err)
	}
	return nil
}
