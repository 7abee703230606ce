// Package visualize renders aftershock catalogs and comparisons as PNG plots.
package visualize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/aftershock-catalog/internal/analysis"
	"github.com/couchcryptid/aftershock-catalog/internal/domain"
)

// Renderer writes plots into OutputDir. Width and Height size a single panel;
// multi-panel figures grow by whole panels.
type Renderer struct {
	OutputDir string
	Width     vg.Length
	Height    vg.Length
	BinWidth  float64
}

// NewRenderer returns a Renderer with panel dimensions given in centimetres.
func NewRenderer(outputDir string, widthCM, heightCM, binWidth float64) *Renderer {
	return &Renderer{
		OutputDir: outputDir,
		Width:     vg.Length(widthCM) * vg.Centimeter,
		Height:    vg.Length(heightCM) * vg.Centimeter,
		BinWidth:  binWidth,
	}
}

// Render writes one PNG per kind and returns the paths written. An empty kind
// list renders every kind. The catalog is never modified.
func (r *Renderer) Render(catalog domain.Catalog, kinds []Kind) ([]string, error) {
	if len(kinds) == 0 {
		kinds = AllKinds
	}
	for _, k := range kinds {
		if !k.valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
		}
	}
	if !catalog.Validated() {
		return nil, domain.ErrUnvalidatedCatalog
	}
	if catalog.Len() == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	paths := make([]string, 0, len(kinds))
	for _, k := range kinds {
		path := r.path(catalog.Name, string(k))
		var err error
		switch k {
		case KindMap:
			err = r.save(path, mapPlot(catalog))
		case KindDepthProfile:
			err = saveGrid(path, r.Width, r.Height, [][]*plot.Plot{depthProfile(catalog)})
		case KindTimeMagnitude:
			err = r.save(path, timeMagnitude(catalog))
		case KindCumulativeCount:
			err = r.save(path, cumulativeCount(catalog))
		case KindMagnitudeFrequency:
			var panels []*plot.Plot
			panels, err = r.magnitudeFrequency(catalog)
			if err == nil {
				err = saveGrid(path, r.Width, r.Height, [][]*plot.Plot{panels})
			}
		}
		if err != nil {
			return paths, fmt.Errorf("render %s: %w", k, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// RenderComparison writes overlaid magnitude-frequency and cumulative-count
// plots for every catalog in the comparison.
func (r *Renderer) RenderComparison(cmp analysis.Comparison) ([]string, error) {
	if len(cmp.Names) == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	mf := newPlot("Cumulative magnitude-frequency", "Magnitude", "N(≥M)")
	useLogCounts(mf)
	cc := newPlot("Cumulative aftershock count", "Days since origin", "Events")
	cc.Legend.Top = true
	cc.Legend.Left = true
	mf.Legend.Top = true

	maxCum := 1
	for i, name := range cmp.Names {
		s := cmp.Summaries[name]
		color := plotutil.Color(i)

		gr := grPoints(s.Bins)
		if len(gr) > 0 {
			sc, err := plotter.NewScatter(gr)
			if err != nil {
				return nil, err
			}
			sc.GlyphStyle = draw.GlyphStyle{Color: color, Radius: vg.Points(3), Shape: plotutil.Shape(i)}
			mf.Add(sc)
			mf.Legend.Add(name, sc)
			if c := s.Bins[0].Cumulative; c > maxCum {
				maxCum = c
			}
		}

		line, err := plotter.NewLine(dailyPoints(s.Daily))
		if err != nil {
			return nil, err
		}
		line.StepStyle = plotter.PostStep
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = color
		cc.Add(line)
		cc.Legend.Add(name, line)
	}
	mf.Y.Min = 0.5
	mf.Y.Max = float64(maxCum) * 2

	paths := []string{
		r.path("comparison", "magnitude_frequency"),
		r.path("comparison", "cumulative_count"),
	}
	if err := r.save(paths[0], mf); err != nil {
		return nil, fmt.Errorf("render comparison magnitude_frequency: %w", err)
	}
	if err := r.save(paths[1], cc); err != nil {
		return paths[:1], fmt.Errorf("render comparison cumulative_count: %w", err)
	}
	return paths, nil
}

func (r *Renderer) path(prefix, kind string) string {
	name := kind + ".png"
	if prefix = fileSafe(prefix); prefix != "" {
		name = prefix + "_" + name
	}
	return filepath.Join(r.OutputDir, name)
}

func (r *Renderer) save(path string, p *plot.Plot) error {
	return p.Save(r.Width, r.Height, path)
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(s))
}

func titled(what string, c domain.Catalog) string {
	if c.Name == "" {
		return what
	}
	return fmt.Sprintf("%s (%s)", what, c.Name)
}

func mapPlot(c domain.Catalog) *plot.Plot {
	p := newPlot(titled("Aftershock epicentres", c), "Longitude (°)", "Latitude (°)")
	depth := newColorScale(moreland.SmoothBlueRed(), c.Depths())

	xys := make(plotter.XYs, c.Len())
	for i, rec := range c.Records {
		xys[i] = plotter.XY{X: rec.Longitude, Y: rec.Latitude}
	}
	sc, err := plotter.NewScatter(xys)
	if err == nil {
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			rec := c.Records[i]
			if rec.HasDepth() {
				return draw.GlyphStyle{Color: depth.at(*rec.DepthKM), Radius: magnitudeRadius(rec.Magnitude), Shape: draw.CircleGlyph{}}
			}
			return draw.GlyphStyle{Color: unknownDepthColor, Radius: magnitudeRadius(rec.Magnitude), Shape: draw.RingGlyph{}}
		}
		p.Add(sc)
	}

	if largest, ok := c.Largest(); ok {
		star, err := plotter.NewScatter(plotter.XYs{{X: largest.Longitude, Y: largest.Latitude}})
		if err == nil {
			star.GlyphStyle = draw.GlyphStyle{Color: largestEventColor, Radius: vg.Points(8), Shape: draw.PyramidGlyph{}}
			p.Add(star)
			p.Legend.Add(fmt.Sprintf("Largest event, %s %g", largest.MagnitudeType, largest.Magnitude), star)
		}
	}

	if depths := c.Depths(); len(depths) > 0 {
		lo, hi := floats.Min(depths), floats.Max(depths)
		p.Legend.Add(fmt.Sprintf("Depth %g km", lo), legendSwatch(depth.at(lo), vg.Points(4), draw.CircleGlyph{}))
		p.Legend.Add(fmt.Sprintf("Depth %g km", hi), legendSwatch(depth.at(hi), vg.Points(4), draw.CircleGlyph{}))
	}
	if len(c.Depths()) < c.Len() {
		p.Legend.Add("Depth unknown", legendSwatch(unknownDepthColor, vg.Points(4), draw.RingGlyph{}))
	}
	p.Legend.Top = true
	return p
}

// depthProfile returns depth against longitude and against latitude, colour
// coded by magnitude. Events of unknown depth are left out.
func depthProfile(c domain.Catalog) []*plot.Plot {
	var known []domain.AftershockRecord
	var mags []float64
	for _, rec := range c.Records {
		if rec.HasDepth() {
			known = append(known, rec)
			mags = append(mags, rec.Magnitude)
		}
	}
	mag := newColorScale(moreland.ExtendedBlackBody(), mags)

	panel := func(title, xLabel string, x func(domain.AftershockRecord) float64) *plot.Plot {
		p := newPlot(title, xLabel, "Depth (km)")
		p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
		if len(known) == 0 {
			p.Title.Text += ", no depths recorded"
			return p
		}
		xys := make(plotter.XYs, len(known))
		for i, rec := range known {
			xys[i] = plotter.XY{X: x(rec), Y: *rec.DepthKM}
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return p
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{Color: mag.at(known[i].Magnitude), Radius: magnitudeRadius(known[i].Magnitude), Shape: draw.CircleGlyph{}}
		}
		p.Add(sc)
		return p
	}

	return []*plot.Plot{
		panel(titled("Depth vs longitude", c), "Longitude (°)", func(r domain.AftershockRecord) float64 { return r.Longitude }),
		panel(titled("Depth vs latitude", c), "Latitude (°)", func(r domain.AftershockRecord) float64 { return r.Latitude }),
	}
}

func timeMagnitude(c domain.Catalog) *plot.Plot {
	p := newPlot(titled("Magnitude over time", c), "Date (UTC)", "Magnitude")
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	depth := newColorScale(moreland.SmoothBlueRed(), c.Depths())

	xys := make(plotter.XYs, c.Len())
	for i, rec := range c.Records {
		xys[i] = plotter.XY{X: float64(rec.Datetime.Unix()), Y: rec.Magnitude}
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return p
	}
	sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		rec := c.Records[i]
		if !rec.HasDepth() {
			return draw.GlyphStyle{Color: unknownDepthColor, Radius: vg.Points(3), Shape: draw.RingGlyph{}}
		}
		return draw.GlyphStyle{Color: depth.at(*rec.DepthKM), Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
	}
	p.Add(sc)
	return p
}

func cumulativeCount(c domain.Catalog) *plot.Plot {
	p := newPlot(titled("Cumulative aftershock count", c), "Date (UTC)", "Events")
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	times := make([]float64, c.Len())
	for i, rec := range c.Records {
		times[i] = float64(rec.Datetime.Unix())
	}
	sort.Float64s(times)

	xys := make(plotter.XYs, len(times))
	for i, t := range times {
		xys[i] = plotter.XY{X: t, Y: float64(i + 1)}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return p
	}
	line.StepStyle = plotter.PostStep
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = plotutil.Color(0)
	p.Add(line)
	p.Y.Min = 0
	return p
}

// magnitudeFrequency returns the magnitude histogram and the cumulative
// Gutenberg-Richter plot on a log count axis.
func (r *Renderer) magnitudeFrequency(c domain.Catalog) ([]*plot.Plot, error) {
	s, err := analysis.Summarize(c, analysis.Options{BinWidth: r.BinWidth})
	if err != nil {
		return nil, err
	}

	hist := newPlot(titled("Magnitude distribution", c), "Magnitude", "Events")
	bins := make([]plotter.HistogramBin, len(s.Bins))
	for i, b := range s.Bins {
		bins[i] = plotter.HistogramBin{Min: b.Lower, Max: b.Upper, Weight: float64(b.Count)}
	}
	hist.Add(&plotter.Histogram{
		Bins:      bins,
		Width:     s.Bins[0].Upper - s.Bins[0].Lower,
		FillColor: barColor,
		LineStyle: plotter.DefaultLineStyle,
	})
	hist.Y.Min = 0

	gr := newPlot(titled("Cumulative magnitude-frequency", c), "Magnitude", "N(≥M)")
	useLogCounts(gr)
	sc, err := plotter.NewScatter(grPoints(s.Bins))
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle = draw.GlyphStyle{Color: plotutil.Color(0), Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
	gr.Add(sc)
	gr.Y.Min = 0.5
	gr.Y.Max = float64(s.Count) * 2

	return []*plot.Plot{hist, gr}, nil
}

func useLogCounts(p *plot.Plot) {
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
}

// grPoints returns N(≥M) at each bin lower edge, skipping empty tails so the
// log axis never sees zero.
func grPoints(bins []analysis.Bin) plotter.XYs {
	xys := make(plotter.XYs, 0, len(bins))
	for _, b := range bins {
		if b.Cumulative > 0 {
			xys = append(xys, plotter.XY{X: b.Lower, Y: float64(b.Cumulative)})
		}
	}
	return xys
}

// dailyPoints returns the cumulative count at the end of each day, starting
// from zero at the origin.
func dailyPoints(days []analysis.DailyCount) plotter.XYs {
	xys := make(plotter.XYs, 0, len(days)+1)
	xys = append(xys, plotter.XY{})
	for _, d := range days {
		xys = append(xys, plotter.XY{X: float64(d.Day + 1), Y: float64(d.Cumulative)})
	}
	return xys
}
