package render

import (
	"fmt"
	"io"
	"math"

	"github.com/uber/h3-go/v4"

	"echocli/internal/errors"
	"echocli/internal/geo"
)

// HexBin is one aggregated hexagonal cell.
type HexBin struct {
	Cell  h3.Cell
	Value float64
	Count int
}

// MapOptions configures hexagonal map rendering.
type MapOptions struct {
	Title string

	// VMin and VMax cap the color scale. Unset caps follow the data.
	VMin *float64
	VMax *float64

	// Coastline is a polyline in plane coordinates drawn over the
	// static map.
	Coastline [][2]float64

	// EastLim and NorthLim clip the static map viewport, in plane
	// meters.
	EastLim  *[2]float64
	NorthLim *[2]float64

	// Projector maps cell boundaries onto the plane grid for the
	// static backend.
	Projector *geo.Projector

	Width  int
	Height int
}

func (o *MapOptions) defaults() {
	if o.Width <= 0 {
		o.Width = 900
	}
	if o.Height <= 0 {
		o.Height = 700
	}
}

// scaleBounds resolves the color scale from explicit caps and data.
func scaleBounds(bins []HexBin, opts MapOptions) (vmin, vmax float64) {
	vmin, vmax = math.Inf(1), math.Inf(-1)
	for _, b := range bins {
		if b.Value < vmin {
			vmin = b.Value
		}
		if b.Value > vmax {
			vmax = b.Value
		}
	}
	if opts.VMin != nil {
		vmin = *opts.VMin
	}
	if opts.VMax != nil {
		vmax = *opts.VMax
	}
	if vmax <= vmin {
		vmax = vmin + 1
	}
	return vmin, vmax
}

// rampColor maps a normalized value to a viridis-like gradient.
func rampColor(t float64) string {
	t = math.Max(0, math.Min(1, t))
	stops := [][3]float64{
		{68, 1, 84},    // dark purple
		{33, 145, 140}, // teal
		{253, 231, 37}, // yellow
	}
	pos := t * float64(len(stops)-1)
	i := int(pos)
	if i >= len(stops)-1 {
		i = len(stops) - 2
	}
	f := pos - float64(i)
	c := [3]int{}
	for k := 0; k < 3; k++ {
		c[k] = int(stops[i][k] + f*(stops[i+1][k]-stops[i][k]))
	}
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// HexMapSVG writes a static hexagonal map in plane coordinates.
func HexMapSVG(w io.Writer, bins []HexBin, opts MapOptions) error {
	opts.defaults()
	if len(bins) == 0 {
		return errors.Render("hex map", errEmptySeries)
	}
	if opts.Projector == nil {
		opts.Projector = geo.NewSWEREF99TM()
	}
	vmin, vmax := scaleBounds(bins, opts)

	// Project all cell boundaries and find the viewport.
	type polygon struct {
		pts   [][2]float64 // easting, northing
		value float64
		count int
	}
	var polys []polygon
	minE, maxE := math.Inf(1), math.Inf(-1)
	minN, maxN := math.Inf(1), math.Inf(-1)
	for _, b := range bins {
		var pts [][2]float64
		for _, v := range geo.CellBoundary(b.Cell) {
			e, n := opts.Projector.ToPlane(v[1], v[0])
			pts = append(pts, [2]float64{e, n})
			if e < minE {
				minE = e
			}
			if e > maxE {
				maxE = e
			}
			if n < minN {
				minN = n
			}
			if n > maxN {
				maxN = n
			}
		}
		polys = append(polys, polygon{pts: pts, value: b.Value, count: b.Count})
	}
	if opts.EastLim != nil {
		minE, maxE = opts.EastLim[0], opts.EastLim[1]
	}
	if opts.NorthLim != nil {
		minN, maxN = opts.NorthLim[0], opts.NorthLim[1]
	}
	if maxE <= minE || maxN <= minN {
		return errors.Render("hex map", fmt.Errorf("degenerate viewport"))
	}

	const margin = 50
	plotW := float64(opts.Width) - 2*margin
	plotH := float64(opts.Height) - 2*margin
	sx := func(e float64) float64 { return margin + plotW*(e-minE)/(maxE-minE) }
	sy := func(n float64) float64 { return margin + plotH*(1-(n-minN)/(maxN-minN)) }

	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+"\n", opts.Width, opts.Height)
	fmt.Fprintf(w, `<rect width="%d" height="%d" fill="white"/>`+"\n", opts.Width, opts.Height)
	if opts.Title != "" {
		fmt.Fprintf(w, `<text x="%d" y="24" font-size="15" text-anchor="middle">%s</text>`+"\n", opts.Width/2, opts.Title)
	}

	for _, p := range polys {
		fmt.Fprintf(w, `<polygon points="`)
		for i, pt := range p.pts {
			if i > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%.1f,%.1f", sx(pt[0]), sy(pt[1]))
		}
		t := (p.value - vmin) / (vmax - vmin)
		fmt.Fprintf(w, `" fill="%s" fill-opacity="0.85" stroke="gray" stroke-width="0.3"/>`+"\n", rampColor(t))
	}

	if len(opts.Coastline) > 1 {
		fmt.Fprint(w, `<polyline fill="none" stroke="black" stroke-width="1" points="`)
		for i, pt := range opts.Coastline {
			if i > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%.1f,%.1f", sx(pt[0]), sy(pt[1]))
		}
		fmt.Fprintln(w, `"/>`)
	}

	writeColorbar(w, opts.Width, opts.Height, vmin, vmax)
	if _, err := fmt.Fprintln(w, "</svg>"); err != nil {
		return errors.Render("hex map", err)
	}
	return nil
}

// writeColorbar draws a vertical gradient legend on the right edge.
func writeColorbar(w io.Writer, width, height int, vmin, vmax float64) {
	const barW, steps = 14, 24
	x := width - 34
	top, bottom := 60.0, float64(height)-60.0
	stepH := (bottom - top) / steps
	for i := 0; i < steps; i++ {
		t := 1 - float64(i)/(steps-1)
		fmt.Fprintf(w, `<rect x="%d" y="%.1f" width="%d" height="%.1f" fill="%s"/>`+"\n",
			x, top+float64(i)*stepH, barW, stepH+0.5, rampColor(t))
	}
	fmt.Fprintf(w, `<text x="%d" y="%.1f" font-size="10" text-anchor="end">%.3g</text>`+"\n", x-4, top+8, vmax)
	fmt.Fprintf(w, `<text x="%d" y="%.1f" font-size="10" text-anchor="end">%.3g</text>`+"\n", x-4, bottom, vmin)
}
