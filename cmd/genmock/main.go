// Command genmock writes a synthetic aftershock catalog for fixtures and
// demos. Event times follow the modified Omori law, magnitudes follow a
// Gutenberg-Richter distribution, and epicentres scatter around the main
// shock. The output is checked with the real validator before it is written,
// unless -invalid asks for broken rows on purpose.
//
// Usage:
//
//	go run ./cmd/genmock -n 200 -seed 7 -name carlisle -out data/mock/carlisle_synthetic.csv
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/couchcryptid/aftershock-catalog/internal/adapter/csvfile"
	"github.com/couchcryptid/aftershock-catalog/internal/domain"
)

// params describes the synthetic sequence.
type params struct {
	n      int
	seed   uint64
	prefix string
	days   float64

	lat, lon float64
	spread   float64 // epicentral scatter, degrees (1 sigma)
	depth    float64 // mean depth, km
	noDepth  float64 // fraction of events without a depth

	omoriC, omoriP float64 // days, dimensionless
	bValue         float64
	minMag, maxMag float64

	invalid int // deliberately broken rows appended for rejection fixtures
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	p := params{}
	var out string
	flag.IntVar(&p.n, "n", 120, "number of events")
	flag.Uint64Var(&p.seed, "seed", 1979, "random seed")
	flag.StringVar(&p.prefix, "name", "SYN", "event_id prefix")
	flag.Float64Var(&p.days, "days", 30, "length of the sequence in days")
	flag.Float64Var(&p.lat, "lat", 54.90, "main-shock latitude")
	flag.Float64Var(&p.lon, "lon", -2.90, "main-shock longitude")
	flag.Float64Var(&p.spread, "spread", 0.03, "epicentral scatter in degrees")
	flag.Float64Var(&p.depth, "depth", 8, "mean hypocentral depth in km")
	flag.Float64Var(&p.noDepth, "no-depth", 0.1, "fraction of events with unknown depth")
	flag.Float64Var(&p.omoriC, "omori-c", 0.05, "Omori c parameter in days")
	flag.Float64Var(&p.omoriP, "omori-p", 1.1, "Omori p parameter")
	flag.Float64Var(&p.bValue, "b", 1.0, "Gutenberg-Richter b-value")
	flag.Float64Var(&p.minMag, "min-mag", 1.0, "magnitude of completeness")
	flag.Float64Var(&p.maxMag, "max-mag", 3.5, "largest aftershock magnitude")
	flag.IntVar(&p.invalid, "invalid", 0, "append this many rows that fail validation")
	flag.StringVar(&out, "out", "", "output CSV path (default: stdout)")
	flag.Parse()

	schema, err := domain.DefaultSchema()
	if err != nil {
		return err
	}
	records, err := generate(p, schema.MainShock())
	if err != nil {
		return err
	}

	res := domain.Validate(rows(records), schema)
	if !res.OK() {
		return fmt.Errorf("generated catalog does not validate: %w", res.Err())
	}

	extra := brokenRows(p, records)
	w := io.Writer(os.Stdout)
	if out != "" {
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := csvfile.EncodeRows(w, schema.Columns(), append(rows(records), extra...)); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if out != "" {
		log.Printf("wrote %d records (%d invalid) to %s", len(records)+len(extra), len(extra), out)
	}
	return nil
}

// generate draws a reproducible aftershock sequence after mainShock.
func generate(p params, mainShock time.Time) ([]domain.AftershockRecord, error) {
	if p.n <= 0 {
		return nil, fmt.Errorf("n must be positive, got %d", p.n)
	}
	if p.omoriP == 1 {
		return nil, fmt.Errorf("omori-p must not be exactly 1")
	}
	if p.maxMag <= p.minMag {
		return nil, fmt.Errorf("max-mag %g must exceed min-mag %g", p.maxMag, p.minMag)
	}
	if mainShock.IsZero() {
		mainShock = time.Date(1979, time.December, 26, 3, 57, 0, 0, time.UTC)
	}

	src := rand.NewPCG(p.seed, p.seed^0x9e3779b97f4a7c15)
	uniform := rand.New(src)
	scatter := distuv.Normal{Mu: 0, Sigma: p.spread, Src: src}
	depth := distuv.Normal{Mu: p.depth, Sigma: p.depth / 4, Src: src}
	mags := distuv.Exponential{Rate: p.bValue * math.Ln10, Src: src}

	offsets := omoriOffsets(uniform, p.n, p.days, p.omoriC, p.omoriP)
	records := make([]domain.AftershockRecord, p.n)
	for i, off := range offsets {
		m := p.minMag + mags.Rand()
		for m > p.maxMag {
			m = p.minMag + mags.Rand()
		}
		rec := domain.AftershockRecord{
			EventID:       fmt.Sprintf("%s-%04d", p.prefix, i+1),
			Datetime:      mainShock.Add(time.Duration(off * float64(24*time.Hour))).Truncate(time.Second),
			Latitude:      round(p.lat+scatter.Rand(), 4),
			Longitude:     round(p.lon+scatter.Rand()*1.7, 4),
			Magnitude:     round(m, 1),
			MagnitudeType: "ML",
			Source:        "synthetic",
		}
		if rec.Magnitude < 1.5 && uniform.Float64() < 0.3 {
			rec.MagnitudeType = "Md"
		}
		if uniform.Float64() >= p.noDepth {
			d := round(math.Max(0.5, depth.Rand()), 1)
			rec.DepthKM = &d
		}
		if !rec.Datetime.After(mainShock) {
			rec.Datetime = mainShock.Add(time.Second)
		}
		records[i] = rec
	}
	return records, nil
}

// omoriOffsets returns n sorted offsets in days drawn from the modified Omori
// rate K/(t+c)^p on [0, days] by inverting its cumulative distribution.
func omoriOffsets(r *rand.Rand, n int, days, c, p float64) []float64 {
	q := 1 - p
	lo := math.Pow(c, q)
	hi := math.Pow(days+c, q)
	out := make([]float64, n)
	for i := range out {
		u := r.Float64()
		out[i] = math.Pow(lo+u*(hi-lo), 1/q) - c
	}
	slices.Sort(out)
	return out
}

// brokenRows returns rows that each trip one validation rule, cycling through
// missing datetime, duplicate id, out-of-range latitude and a magnitude type
// without its magnitude.
func brokenRows(p params, valid []domain.AftershockRecord) []domain.RawRow {
	out := make([]domain.RawRow, 0, p.invalid)
	for i := 0; i < p.invalid; i++ {
		row := valid[i%len(valid)].Row()
		row[domain.FieldEventID] = fmt.Sprintf("%s-X%03d", p.prefix, i+1)
		switch i % 4 {
		case 0:
			row[domain.FieldDatetime] = ""
		case 1:
			row[domain.FieldEventID] = valid[0].EventID
		case 2:
			row[domain.FieldLatitude] = "95"
		case 3:
			row[domain.FieldMagnitude] = ""
		}
		out = append(out, row)
	}
	return out
}

func rows(records []domain.AftershockRecord) []domain.RawRow {
	out := make([]domain.RawRow, len(records))
	for i := range records {
		out[i] = records[i].Row()
	}
	return out
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
