package domain

import (
	"strconv"
	"time"
)

// Column names of the aftershock schema.
const (
	FieldEventID             = "event_id"
	FieldDatetime            = "datetime"
	FieldLatitude            = "latitude"
	FieldLongitude           = "longitude"
	FieldDepthKM             = "depth_km"
	FieldMagnitude           = "magnitude"
	FieldMagnitudeType       = "magnitude_type"
	FieldLocationDescription = "location_description"
	FieldSource              = "source"
)

// RawRow is one data row as read from a tabular file, keyed by column name.
// An empty value means the field is absent.
type RawRow map[string]string

// Submission is a tabular file as received from a contributor: its header and
// data rows in file order. Lines holds the 1-based file line of each row when
// the reader knows it.
type Submission struct {
	Name   string
	Header []string
	Rows   []RawRow
	Lines  []int
}

// AftershockRecord is one observed event after validation.
type AftershockRecord struct {
	EventID             string    `json:"event_id"`
	Datetime            time.Time `json:"datetime"`
	Latitude            float64   `json:"latitude"`
	Longitude           float64   `json:"longitude"`
	DepthKM             *float64  `json:"depth_km"`
	Magnitude           float64   `json:"magnitude"`
	MagnitudeType       string    `json:"magnitude_type"`
	LocationDescription string    `json:"location_description,omitempty"`
	Source              string    `json:"source,omitempty"`
}

// Row renders the record back into its tabular form. Numbers use the shortest
// representation that round-trips, times use RFC 3339 in UTC.
func (r AftershockRecord) Row() RawRow {
	row := RawRow{
		FieldEventID:             r.EventID,
		FieldDatetime:            r.Datetime.UTC().Format(time.RFC3339),
		FieldLatitude:            formatFloat(r.Latitude),
		FieldLongitude:           formatFloat(r.Longitude),
		FieldDepthKM:             "",
		FieldMagnitude:           formatFloat(r.Magnitude),
		FieldMagnitudeType:       r.MagnitudeType,
		FieldLocationDescription: r.LocationDescription,
		FieldSource:              r.Source,
	}
	if r.DepthKM != nil {
		row[FieldDepthKM] = formatFloat(*r.DepthKM)
	}
	return row
}

// HasDepth reports whether the hypocentral depth is known.
func (r AftershockRecord) HasDepth() bool { return r.DepthKM != nil }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Catalog is an ordered collection of aftershock records. Only the validator
// produces a validated catalog; downstream analysis refuses anything else.
type Catalog struct {
	Name      string
	Records   []AftershockRecord
	MainShock time.Time
	validated bool
}

// Validated reports whether the catalog came out of a violation-free validation.
func (c Catalog) Validated() bool { return c.validated }

// Len returns the number of records.
func (c Catalog) Len() int { return len(c.Records) }

// Magnitudes returns the magnitudes in catalog order.
func (c Catalog) Magnitudes() []float64 {
	out := make([]float64, len(c.Records))
	for i := range c.Records {
		out[i] = c.Records[i].Magnitude
	}
	return out
}

// Depths returns the known depths in catalog order, skipping unknown ones.
func (c Catalog) Depths() []float64 {
	out := make([]float64, 0, len(c.Records))
	for i := range c.Records {
		if c.Records[i].DepthKM != nil {
			out = append(out, *c.Records[i].DepthKM)
		}
	}
	return out
}

// Largest returns the record with the greatest magnitude. The first one wins
// ties. ok is false for an empty catalog.
func (c Catalog) Largest() (rec AftershockRecord, ok bool) {
	for i := range c.Records {
		if !ok || c.Records[i].Magnitude > rec.Magnitude {
			rec, ok = c.Records[i], true
		}
	}
	return rec, ok
}

// WithRecords returns a copy of the catalog carrying the given records. The
// validated flag is kept, so enrichment steps can replace records they have
// only annotated.
func (c Catalog) WithRecords(records []AftershockRecord) Catalog {
	c.Records = records
	return c
}
