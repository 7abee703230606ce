// Package analysis computes descriptive statistics of aftershock catalogs and
// compares them side by side.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/couchcryptid/aftershock-catalog/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBinWidth is the magnitude bin width used when Options leaves it unset.
const DefaultBinWidth = 0.2

// ErrTooFewCatalogs is returned by Compare when given fewer than two catalogs.
var ErrTooFewCatalogs = errors.New("comparison needs at least two catalogs")

// Options tunes the statistics.
type Options struct {
	// BinWidth is the magnitude bin width. Zero means DefaultBinWidth.
	BinWidth float64
}

func (o Options) binWidth() float64 {
	if o.BinWidth <= 0 {
		return DefaultBinWidth
	}
	return o.BinWidth
}

// MagnitudeStats describes the magnitude distribution.
type MagnitudeStats struct {
	Min    float64        `json:"min"`
	Max    float64        `json:"max"`
	Mean   float64        `json:"mean"`
	StdDev float64        `json:"std_dev"`
	Median float64        `json:"median"`
	ByType map[string]int `json:"by_type"`
}

// Bin is one magnitude bin [Lower, Upper). Cumulative counts the events with
// magnitude at or above Lower, as in a Gutenberg-Richter plot.
type Bin struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Count      int     `json:"count"`
	Cumulative int     `json:"cumulative"`
}

// DailyCount is the number of events on one day after the origin.
type DailyCount struct {
	Day        int       `json:"day"`
	Start      time.Time `json:"start"`
	Count      int       `json:"count"`
	Cumulative int       `json:"cumulative"`
}

// DepthStats describes the known hypocentral depths.
type DepthStats struct {
	Known   int     `json:"known"`
	Unknown int     `json:"unknown"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Mean    float64 `json:"mean,omitempty"`
	Median  float64 `json:"median,omitempty"`
}

// Summary holds the statistics of one catalog.
type Summary struct {
	Name      string         `json:"name"`
	Count     int            `json:"count"`
	Origin    time.Time      `json:"origin"`
	First     time.Time      `json:"first"`
	Last      time.Time      `json:"last"`
	Magnitude MagnitudeStats `json:"magnitude"`
	Bins      []Bin          `json:"bins"`
	Daily     []DailyCount   `json:"daily"`
	Depth     DepthStats     `json:"depth"`
}

// Comparison holds the summaries of several catalogs computed over shared
// magnitude bin edges.
type Comparison struct {
	Names     []string           `json:"names"`
	BinWidth  float64            `json:"bin_width"`
	BinEdges  []float64          `json:"bin_edges"`
	Summaries map[string]Summary `json:"summaries"`
}

// Summarize computes the statistics of a single validated catalog.
func Summarize(catalog domain.Catalog, opts Options) (Summary, error) {
	if err := check(catalog); err != nil {
		return Summary{}, err
	}
	mags := catalog.Magnitudes()
	edges := binEdges(floats.Min(mags), floats.Max(mags), opts.binWidth())
	return summarize(catalog, edges), nil
}

// Compare computes a Summary per catalog. Magnitude bins share the same edges
// across all catalogs so counts line up. Inputs are not modified.
func Compare(catalogs map[string]domain.Catalog, opts Options) (Comparison, error) {
	if len(catalogs) < 2 {
		return Comparison{}, fmt.Errorf("%w: got %d", ErrTooFewCatalogs, len(catalogs))
	}

	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, name := range names {
		c := catalogs[name]
		if err := check(c); err != nil {
			return Comparison{}, fmt.Errorf("catalog %q: %w", name, err)
		}
		mags := c.Magnitudes()
		lo = math.Min(lo, floats.Min(mags))
		hi = math.Max(hi, floats.Max(mags))
	}

	width := opts.binWidth()
	edges := binEdges(lo, hi, width)
	cmp := Comparison{
		Names:     names,
		BinWidth:  width,
		BinEdges:  edges,
		Summaries: make(map[string]Summary, len(names)),
	}
	for _, name := range names {
		s := summarize(catalogs[name], edges)
		s.Name = name
		cmp.Summaries[name] = s
	}
	return cmp, nil
}

func check(c domain.Catalog) error {
	if !c.Validated() {
		return domain.ErrUnvalidatedCatalog
	}
	if c.Len() == 0 {
		return domain.ErrEmptyCatalog
	}
	return nil
}

func summarize(c domain.Catalog, edges []float64) Summary {
	s := Summary{
		Name:  c.Name,
		Count: c.Len(),
		First: c.Records[0].Datetime,
		Last:  c.Records[0].Datetime,
	}
	for _, r := range c.Records[1:] {
		if r.Datetime.Before(s.First) {
			s.First = r.Datetime
		}
		if r.Datetime.After(s.Last) {
			s.Last = r.Datetime
		}
	}
	s.Origin = c.MainShock
	if s.Origin.IsZero() {
		s.Origin = s.First
	}

	s.Magnitude = magnitudeStats(c)
	s.Bins = histogram(c.Magnitudes(), edges)
	s.Daily = dailyCounts(c, s.Origin)
	s.Depth = depthStats(c)
	return s
}

func magnitudeStats(c domain.Catalog) MagnitudeStats {
	mags := c.Magnitudes()
	sorted := slices.Clone(mags)
	sort.Float64s(sorted)

	ms := MagnitudeStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   stat.Mean(mags, nil),
		Median: median(sorted),
		ByType: make(map[string]int),
	}
	if len(mags) > 1 {
		ms.StdDev = stat.StdDev(mags, nil)
	}
	for _, r := range c.Records {
		ms.ByType[r.MagnitudeType]++
	}
	return ms
}

func depthStats(c domain.Catalog) DepthStats {
	depths := c.Depths()
	ds := DepthStats{Known: len(depths), Unknown: c.Len() - len(depths)}
	if len(depths) == 0 {
		return ds
	}
	sort.Float64s(depths)
	ds.Min = depths[0]
	ds.Max = depths[len(depths)-1]
	ds.Mean = stat.Mean(depths, nil)
	ds.Median = median(depths)
	return ds
}

// median returns the lower median of sorted values.
func median(sorted []float64) float64 {
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// edgePrecision snaps bin edges to a decimal grid so that a magnitude read as
// "2.4" lands in the bin starting at 2.4.
const edgePrecision = 1e6

func snap(v float64) float64 {
	return math.Round(v*edgePrecision) / edgePrecision
}

// binEdges returns the edges of bins of the given width covering [lo, hi].
// The first edge is a multiple of width and the last edge is above hi.
func binEdges(lo, hi, width float64) []float64 {
	start := snap(math.Floor(lo/width+1e-9) * width)
	if start > lo {
		start = snap(start - width)
	}
	edges := []float64{start}
	for i := 1; edges[len(edges)-1] <= hi; i++ {
		edges = append(edges, snap(start+float64(i)*width))
	}
	return edges
}

func histogram(mags, edges []float64) []Bin {
	sorted := slices.Clone(mags)
	sort.Float64s(sorted)
	counts := stat.Histogram(nil, edges, sorted, nil)

	bins := make([]Bin, len(counts))
	cum := 0
	for i := len(counts) - 1; i >= 0; i-- {
		cum += int(counts[i])
		bins[i] = Bin{
			Lower:      edges[i],
			Upper:      edges[i+1],
			Count:      int(counts[i]),
			Cumulative: cum,
		}
	}
	return bins
}

func dailyCounts(c domain.Catalog, origin time.Time) []DailyCount {
	byDay := make(map[int]int)
	last := 0
	for _, r := range c.Records {
		day := int(math.Floor(r.Datetime.Sub(origin).Hours() / 24))
		if day < 0 {
			day = 0
		}
		byDay[day]++
		last = max(last, day)
	}

	out := make([]DailyCount, last+1)
	cum := 0
	for d := range out {
		cum += byDay[d]
		out[d] = DailyCount{
			Day:        d,
			Start:      origin.Add(time.Duration(d) * 24 * time.Hour),
			Count:      byDay[d],
			Cumulative: cum,
		}
	}
	return out
}
