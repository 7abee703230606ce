package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/couchcryptid/aftershock-catalog/internal/domain"
)

// writeReport prints a rejected file's violations grouped by row.
func writeReport(w io.Writer, path string, res domain.Result) {
	byRow := res.ByRow()
	fmt.Fprintf(w, "%s: rejected, %d violation(s) in %d of %d row(s)\n", path, len(res.Violations), len(byRow), res.Rows)
	for _, rv := range byRow {
		for _, v := range rv.Violations {
			where := fmt.Sprintf("row %d", v.Row)
			if v.Line > 0 {
				where += fmt.Sprintf(" (line %d)", v.Line)
			}
			fmt.Fprintf(w, "  %s: %s [%s] %s\n", where, v.Field, v.Kind, v.Reason)
		}
	}
}

type validateReport struct {
	Catalog    string                 `json:"catalog"`
	Accepted   bool                   `json:"accepted"`
	Rows       int                    `json:"rows"`
	Records    int                    `json:"records"`
	Violations []domain.RowViolations `json:"violations,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
