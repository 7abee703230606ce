package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/aftershock-catalog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	id, datetime, magnitude, magType, depth string
}

func catalog(t *testing.T, name string, events ...event) domain.Catalog {
	t.Helper()
	s, err := domain.DefaultSchema()
	require.NoError(t, err)

	rows := make([]domain.RawRow, len(events))
	for i, e := range events {
		rows[i] = domain.RawRow{
			domain.FieldEventID:       e.id,
			domain.FieldDatetime:      e.datetime,
			domain.FieldLatitude:      "54.9",
			domain.FieldLongitude:     "-2.9",
			domain.FieldDepthKM:       e.depth,
			domain.FieldMagnitude:     e.magnitude,
			domain.FieldMagnitudeType: e.magType,
		}
	}
	res := domain.Validate(rows, s)
	require.True(t, res.OK(), "violations: %v", res.Violations)
	c, err := res.Catalog(name)
	require.NoError(t, err)
	return c
}

func carlisle(t *testing.T) domain.Catalog {
	return catalog(t, "carlisle",
		event{"CAR-001", "1979-12-26T05:10:00Z", "2.4", "ML", "6"},
		event{"CAR-002", "1979-12-26T20:00:00Z", "3.0", "ML", ""},
		event{"CAR-003", "1979-12-28T04:00:00Z", "2.5", "Md", "9"},
	)
}

func longtown(t *testing.T) domain.Catalog {
	return catalog(t, "longtown",
		event{"LGT-001", "1979-12-27T01:00:00Z", "1.9", "ML", "4"},
		event{"LGT-002", "1979-12-27T02:00:00Z", "2.1", "ML", "5"},
	)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(carlisle(t), Options{})
	require.NoError(t, err)

	assert.Equal(t, "carlisle", s.Name)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, time.Date(1979, 12, 26, 3, 57, 0, 0, time.UTC), s.Origin)
	assert.Equal(t, time.Date(1979, 12, 26, 5, 10, 0, 0, time.UTC), s.First)
	assert.Equal(t, time.Date(1979, 12, 28, 4, 0, 0, 0, time.UTC), s.Last)

	assert.Equal(t, 2.4, s.Magnitude.Min)
	assert.Equal(t, 3.0, s.Magnitude.Max)
	assert.InDelta(t, (2.4+3.0+2.5)/3, s.Magnitude.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.31/3), s.Magnitude.StdDev, 1e-9)
	assert.Equal(t, 2.5, s.Magnitude.Median)
	assert.Equal(t, map[string]int{"ML": 2, "Md": 1}, s.Magnitude.ByType)

	assert.Equal(t, DepthStats{Known: 2, Unknown: 1, Min: 6, Max: 9, Mean: 7.5, Median: 6}, s.Depth, "lower median for even counts")

	require.Len(t, s.Bins, 4)
	assert.Equal(t, Bin{Lower: 2.4, Upper: 2.6, Count: 2, Cumulative: 3}, s.Bins[0])
	assert.Equal(t, Bin{Lower: 3.0, Upper: 3.2, Count: 1, Cumulative: 1}, s.Bins[3])

	assert.Equal(t, []DailyCount{
		{Day: 0, Start: s.Origin, Count: 2, Cumulative: 2},
		{Day: 1, Start: s.Origin.Add(24 * time.Hour), Count: 0, Cumulative: 2},
		{Day: 2, Start: s.Origin.Add(48 * time.Hour), Count: 1, Cumulative: 3},
	}, s.Daily)
}

func TestSummarize_SingleEvent(t *testing.T) {
	s, err := Summarize(catalog(t, "one", event{"X-1", "1979-12-26T05:10:00Z", "2.0", "ML", ""}), Options{BinWidth: 0.5})
	require.NoError(t, err)

	assert.Equal(t, 0.0, s.Magnitude.StdDev)
	assert.Equal(t, 2.0, s.Magnitude.Median)
	assert.Equal(t, DepthStats{Unknown: 1}, s.Depth)
	assert.Equal(t, []Bin{{Lower: 2.0, Upper: 2.5, Count: 1, Cumulative: 1}}, s.Bins)
}

func TestCompare_SharedBins(t *testing.T) {
	cmp, err := Compare(map[string]domain.Catalog{
		"carlisle": carlisle(t),
		"longtown": longtown(t),
	}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"carlisle", "longtown"}, cmp.Names)
	assert.Equal(t, DefaultBinWidth, cmp.BinWidth)
	assert.InDeltaSlice(t, []float64{1.8, 2.0, 2.2, 2.4, 2.6, 2.8, 3.0, 3.2}, cmp.BinEdges, 1e-12)

	counts := func(s Summary) (c, cum []int) {
		for _, b := range s.Bins {
			c = append(c, b.Count)
			cum = append(cum, b.Cumulative)
		}
		return c, cum
	}

	c, cum := counts(cmp.Summaries["carlisle"])
	assert.Equal(t, []int{0, 0, 0, 2, 0, 0, 1}, c)
	assert.Equal(t, []int{3, 3, 3, 3, 1, 1, 1}, cum)

	c, cum = counts(cmp.Summaries["longtown"])
	assert.Equal(t, []int{1, 1, 0, 0, 0, 0, 0}, c)
	assert.Equal(t, []int{2, 1, 0, 0, 0, 0, 0}, cum)

	for _, name := range cmp.Names {
		bins := cmp.Summaries[name].Bins
		require.Len(t, bins, len(cmp.BinEdges)-1)
		for i, b := range bins {
			assert.Equal(t, cmp.BinEdges[i], b.Lower)
			assert.Equal(t, cmp.BinEdges[i+1], b.Upper)
		}
	}
}

func TestCompare_DoesNotModifyInputs(t *testing.T) {
	a, b := carlisle(t), longtown(t)
	before := append([]domain.AftershockRecord(nil), a.Records...)

	_, err := Compare(map[string]domain.Catalog{"a": a, "b": b}, Options{BinWidth: 0.5})
	require.NoError(t, err)

	assert.Equal(t, before, a.Records)
}

func TestCompare_Errors(t *testing.T) {
	s, err := domain.DefaultSchema()
	require.NoError(t, err)
	empty, err := domain.Validate(nil, s).Catalog("empty")
	require.NoError(t, err)

	tests := []struct {
		name     string
		catalogs map[string]domain.Catalog
		want     error
	}{
		{"none", nil, ErrTooFewCatalogs},
		{"one", map[string]domain.Catalog{"carlisle": carlisle(t)}, ErrTooFewCatalogs},
		{"unvalidated", map[string]domain.Catalog{
			"carlisle": carlisle(t),
			"manual":   {Name: "manual", Records: []domain.AftershockRecord{{EventID: "M-1", Magnitude: 2}}},
		}, domain.ErrUnvalidatedCatalog},
		{"empty", map[string]domain.Catalog{"carlisle": carlisle(t), "empty": empty}, domain.ErrEmptyCatalog},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compare(tt.catalogs, Options{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBinEdges(t *testing.T) {
	tests := []struct {
		lo, hi, width float64
		want          []float64
	}{
		{2.4, 3.0, 0.2, []float64{2.4, 2.6, 2.8, 3.0, 3.2}},
		{2.45, 2.45, 0.2, []float64{2.4, 2.6}},
		{-0.3, 0.1, 0.2, []float64{-0.4, -0.2, 0, 0.2}},
		{1.0, 4.0, 1.0, []float64{1, 2, 3, 4, 5}},
	}
	for _, tt := range tests {
		got := binEdges(tt.lo, tt.hi, tt.width)
		assert.InDeltaSlice(t, tt.want, got, 1e-12, "lo=%g hi=%g", tt.lo, tt.hi)
		assert.LessOrEqual(t, got[0], tt.lo)
		assert.Greater(t, got[len(got)-1], tt.hi)
	}
}
