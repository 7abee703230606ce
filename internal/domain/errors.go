package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Violation kinds, as reported to contributors and in metrics labels.
type Kind string

const (
	KindMissingRequired  Kind = "missing_required"
	KindTypeMismatch     Kind = "type_mismatch"
	KindOutOfRange       Kind = "out_of_range"
	KindNotInEnum        Kind = "not_in_enum"
	KindDuplicateID      Kind = "duplicate_id"
	KindInconsistentPair Kind = "inconsistent_pair"
)

// Kinds lists every violation kind in reporting order.
var Kinds = []Kind{
	KindMissingRequired,
	KindTypeMismatch,
	KindOutOfRange,
	KindNotInEnum,
	KindDuplicateID,
	KindInconsistentPair,
}

var (
	ErrMissingRequiredField  = errors.New("missing required field")
	ErrTypeMismatch          = errors.New("type mismatch")
	ErrOutOfRange            = errors.New("value out of range")
	ErrNotInEnumeratedSet    = errors.New("value not in enumerated set")
	ErrDuplicateIdentifier   = errors.New("duplicate identifier")
	ErrInconsistentFieldPair = errors.New("inconsistent field pair")
	ErrSchemaVersionMismatch = errors.New("schema version mismatch")

	// ErrUnvalidatedCatalog is returned by consumers handed a catalog that did
	// not come out of a successful validation.
	ErrUnvalidatedCatalog = errors.New("catalog has not been validated")
	// ErrEmptyCatalog is returned by consumers that need at least one record.
	ErrEmptyCatalog = errors.New("catalog is empty")
)

var kindErrors = map[Kind]error{
	KindMissingRequired:  ErrMissingRequiredField,
	KindTypeMismatch:     ErrTypeMismatch,
	KindOutOfRange:       ErrOutOfRange,
	KindNotInEnum:        ErrNotInEnumeratedSet,
	KindDuplicateID:      ErrDuplicateIdentifier,
	KindInconsistentPair: ErrInconsistentFieldPair,
}

// Violation is one field-level problem found in one row.
type Violation struct {
	Row         int    `json:"row"`
	Line        int    `json:"line,omitempty"`
	Field       string `json:"field"`
	Kind        Kind   `json:"kind"`
	Reason      string `json:"reason"`
	Value       string `json:"value,omitempty"`
	RelatedRows []int  `json:"related_rows,omitempty"`
}

func (v Violation) Error() string {
	return fmt.Sprintf("row %d: %s: %s", v.Row, v.Field, v.Reason)
}

// Unwrap exposes the sentinel for the violation kind, so errors.Is(v, ErrOutOfRange) works.
func (v Violation) Unwrap() error { return kindErrors[v.Kind] }

// RowViolations groups the violations of a single row.
type RowViolations struct {
	Row        int         `json:"row"`
	Violations []Violation `json:"violations"`
}

// ValidationError aggregates every violation of a rejected submission.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	rows := make(map[int]struct{})
	for _, v := range e.Violations {
		rows[v.Row] = struct{}{}
	}
	return fmt.Sprintf("validation failed: %d violation(s) in %d row(s)", len(e.Violations), len(rows))
}

// Unwrap returns each violation so errors.Is matches any contained kind.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Violations))
	for i, v := range e.Violations {
		errs[i] = v
	}
	return errs
}

// SchemaMismatchError reports a header that disagrees with the schema column set.
type SchemaMismatchError struct {
	Missing    []string
	Unexpected []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Unexpected, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrSchemaVersionMismatch, strings.Join(parts, "; "))
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaVersionMismatch }

// GroupByRow returns violations grouped per row, rows ascending, in the order
// they were found within a row.
func GroupByRow(violations []Violation) []RowViolations {
	byRow := make(map[int][]Violation)
	for _, v := range violations {
		byRow[v.Row] = append(byRow[v.Row], v)
	}
	out := make([]RowViolations, 0, len(byRow))
	for row, vs := range byRow {
		out = append(out, RowViolations{Row: row, Violations: vs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}
