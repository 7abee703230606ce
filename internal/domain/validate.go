package domain

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
)

// Result is the outcome of validating one submission.
type Result struct {
	// Records holds the typed records of every violation-free row, in input order.
	Records []AftershockRecord `json:"records,omitempty"`
	// Violations lists every problem found, ordered by row then column.
	Violations []Violation `json:"violations,omitempty"`
	Rows       int         `json:"rows"`
	MainShock  time.Time   `json:"main_shock"`
}

// OK reports whether the submission is accepted.
func (r Result) OK() bool { return len(r.Violations) == 0 }

// ByRow groups the violations per offending row.
func (r Result) ByRow() []RowViolations { return GroupByRow(r.Violations) }

// Err returns a *ValidationError carrying every violation, or nil.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Violations: r.Violations}
}

// Catalog returns the accepted records as a validated catalog. Acceptance is
// all-or-nothing: any violation makes this fail.
func (r Result) Catalog(name string) (Catalog, error) {
	if err := r.Err(); err != nil {
		return Catalog{}, err
	}
	return Catalog{
		Name:      name,
		Records:   r.Records,
		MainShock: r.MainShock,
		validated: true,
	}, nil
}

// Validate checks rows against the schema and reports every violation found.
// Row indices in the result are 1-based data rows.
func Validate(rows []RawRow, schema *Schema) Result {
	return NewValidator(schema, clock).Validate(rows)
}

// ValidateSubmission checks the submission header against the schema column
// set and then validates its rows. A header mismatch is returned as an error
// wrapping ErrSchemaVersionMismatch; no row checks run in that case.
func ValidateSubmission(sub Submission, schema *Schema) (Result, error) {
	return NewValidator(schema, clock).ValidateSubmission(sub)
}

// Validator validates submissions against one schema. Its clock bounds
// datetimes from above.
type Validator struct {
	schema *Schema
	clock  clockwork.Clock
}

// NewValidator returns a Validator. A nil clock means real time.
func NewValidator(schema *Schema, clk clockwork.Clock) *Validator {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Validator{schema: schema, clock: clk}
}

// Schema returns the schema the validator checks against.
func (v *Validator) Schema() *Schema { return v.schema }

func (v *Validator) Validate(rows []RawRow) Result {
	return validate(rows, nil, v.schema, v.clock.Now())
}

func (v *Validator) ValidateSubmission(sub Submission) (Result, error) {
	if err := v.schema.CheckColumns(sub.Header); err != nil {
		return Result{}, err
	}
	return validate(sub.Rows, sub.Lines, v.schema, v.clock.Now()), nil
}

// parsedRow holds the typed values of one row.
type parsedRow struct {
	strings map[string]string
	numbers map[string]float64
	times   map[string]time.Time
}

func validate(rows []RawRow, lines []int, schema *Schema, now time.Time) Result {
	res := Result{Rows: len(rows), MainShock: schema.MainShock()}
	fields := schema.Fields()
	firstSeen := make(map[string]map[string]int)

	for i, row := range rows {
		idx := i + 1
		line := 0
		if i < len(lines) {
			line = lines[i]
		}

		parsed, violations := checkRow(row, fields, schema, now)

		for _, f := range fields {
			if !f.Unique {
				continue
			}
			value := strings.TrimSpace(row[f.Name])
			if value == "" {
				continue
			}
			seen := firstSeen[f.Name]
			if seen == nil {
				seen = make(map[string]int)
				firstSeen[f.Name] = seen
			}
			if first, dup := seen[value]; dup {
				violations = append(violations, Violation{
					Field:       f.Name,
					Kind:        KindDuplicateID,
					Reason:      fmt.Sprintf("%s %q already used in row %d", f.Name, value, first),
					Value:       value,
					RelatedRows: []int{first},
				})
				continue
			}
			seen[value] = idx
		}

		if len(violations) == 0 {
			res.Records = append(res.Records, parsed.record())
			continue
		}
		for j := range violations {
			violations[j].Row = idx
			violations[j].Line = line
		}
		res.Violations = append(res.Violations, violations...)
	}
	return res
}

func checkRow(row RawRow, fields []FieldSpec, schema *Schema, now time.Time) (parsedRow, []Violation) {
	p := parsedRow{
		strings: make(map[string]string),
		numbers: make(map[string]float64),
		times:   make(map[string]time.Time),
	}
	var violations []Violation

	for _, f := range fields {
		raw := strings.TrimSpace(row[f.Name])
		if raw == "" {
			if partner, ok := schema.partner(f.Name); ok && strings.TrimSpace(row[partner]) != "" {
				violations = append(violations, Violation{
					Field:  f.Name,
					Kind:   KindInconsistentPair,
					Reason: fmt.Sprintf("%s is absent but %s is present; they must be given together", f.Name, partner),
				})
				continue
			}
			if f.Required {
				violations = append(violations, Violation{
					Field:  f.Name,
					Kind:   KindMissingRequired,
					Reason: fmt.Sprintf("%s is required", f.Name),
				})
			}
			continue
		}

		if v, ok := checkValue(f, raw, p, now); !ok {
			v.Field = f.Name
			v.Value = raw
			violations = append(violations, v)
		}
	}
	return p, violations
}

// checkValue parses raw according to f and stores the typed value in p. It
// returns ok=false with the violation when the value does not conform.
func checkValue(f FieldSpec, raw string, p parsedRow, now time.Time) (Violation, bool) {
	switch f.Type {
	case TypeNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return Violation{Kind: KindTypeMismatch, Reason: fmt.Sprintf("%q is not a finite number", raw)}, false
		}
		if f.Minimum != nil && n < *f.Minimum {
			return Violation{Kind: KindOutOfRange, Reason: fmt.Sprintf("%g is below the minimum %g", n, *f.Minimum)}, false
		}
		if f.Maximum != nil && n > *f.Maximum {
			return Violation{Kind: KindOutOfRange, Reason: fmt.Sprintf("%g is above the maximum %g", n, *f.Maximum)}, false
		}
		p.numbers[f.Name] = n

	case TypeDateTime:
		t, err := ParseDatetime(raw)
		if err != nil {
			return Violation{Kind: KindTypeMismatch, Reason: fmt.Sprintf("%q is not an ISO 8601 date-time", raw)}, false
		}
		if f.After != nil && !t.After(*f.After) {
			return Violation{Kind: KindOutOfRange, Reason: fmt.Sprintf("%s is not after the main shock at %s",
				t.Format(time.RFC3339), f.After.Format(time.RFC3339))}, false
		}
		if t.After(now) {
			return Violation{Kind: KindOutOfRange, Reason: fmt.Sprintf("%s is in the future", t.Format(time.RFC3339))}, false
		}
		p.times[f.Name] = t

	default:
		if utf8.RuneCountInString(raw) < f.MinLength {
			return Violation{Kind: KindOutOfRange, Reason: fmt.Sprintf("shorter than %d characters", f.MinLength)}, false
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, raw) {
			return Violation{Kind: KindNotInEnum, Reason: fmt.Sprintf("%q is not one of %s", raw, strings.Join(f.Enum, ", "))}, false
		}
		p.strings[f.Name] = raw
	}
	return Violation{}, true
}

func (p parsedRow) record() AftershockRecord {
	rec := AftershockRecord{
		EventID:             p.strings[FieldEventID],
		Datetime:            p.times[FieldDatetime],
		Latitude:            p.numbers[FieldLatitude],
		Longitude:           p.numbers[FieldLongitude],
		Magnitude:           p.numbers[FieldMagnitude],
		MagnitudeType:       p.strings[FieldMagnitudeType],
		LocationDescription: p.strings[FieldLocationDescription],
		Source:              p.strings[FieldSource],
	}
	if d, ok := p.numbers[FieldDepthKM]; ok {
		rec.DepthKM = &d
	}
	return rec
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDatetime parses an ISO 8601 timestamp. Values without a zone are read
// as UTC. The result is always in UTC.
func ParseDatetime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range datetimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
