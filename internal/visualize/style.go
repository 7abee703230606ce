package visualize

import (
	"image/color"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	unknownDepthColor = color.Gray{Y: 150}
	largestEventColor = color.RGBA{R: 215, G: 25, B: 28, A: 255}
	barColor          = color.RGBA{R: 70, G: 130, B: 180, A: 200}
)

// colorScale maps values onto a colour map spanning their range.
type colorScale struct {
	cm palette.ColorMap
	ok bool
}

func newColorScale(cm palette.ColorMap, values []float64) colorScale {
	if len(values) == 0 {
		return colorScale{cm: cm}
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if hi <= lo {
		hi = lo + 1
	}
	cm.SetMax(hi)
	cm.SetMin(lo)
	return colorScale{cm: cm, ok: true}
}

func (s colorScale) at(v float64) color.Color {
	if !s.ok {
		return unknownDepthColor
	}
	c, err := s.cm.At(v)
	if err != nil {
		return unknownDepthColor
	}
	return c
}

// legendSwatch returns a glyph thumbnail for a legend entry.
func legendSwatch(c color.Color, radius vg.Length, shape draw.GlyphDrawer) plot.Thumbnailer {
	sc, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: 0}})
	if err != nil {
		panic(err) // a single finite point is always accepted
	}
	sc.GlyphStyle = draw.GlyphStyle{Color: c, Radius: radius, Shape: shape}
	return sc
}

// magnitudeRadius sizes a glyph so that its area grows with the cube of the
// magnitude.
func magnitudeRadius(m float64) vg.Length {
	m = math.Max(m, 0)
	return vg.Points(1.5 + math.Sqrt(m*m*m*10/math.Pi)/2)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

// saveGrid draws plots on a rows x cols grid and writes a single PNG.
func saveGrid(path string, width, height vg.Length, plots [][]*plot.Plot) error {
	rows, cols := len(plots), len(plots[0])
	img := vgimg.New(width*vg.Length(cols), height*vg.Length(rows))
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 6,
		PadY:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
