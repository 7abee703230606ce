package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/aftershock-catalog/internal/adapter/csvfile"
)

func (a *app) validateCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check catalog files against the schema",
		Long: `validate checks every row of each file and reports all violations found.
The command exits non-zero if any file is rejected.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown --format %q (want text or json)", format)
			}
			p := a.pipeline(nil)
			var errs []error
			var reports []validateReport

			for _, path := range args {
				out, err := p.Run(cmd.Context(), csvfile.NewReader(path))
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
					continue
				}
				res := out.Result
				reports = append(reports, validateReport{
					Catalog:    path,
					Accepted:   out.Accepted,
					Rows:       res.Rows,
					Records:    len(res.Records),
					Violations: res.ByRow(),
				})
				switch {
				case !out.Accepted:
					writeReport(cmd.ErrOrStderr(), path, res)
					errs = append(errs, errRejected)
				case format == "text":
					fmt.Fprintf(cmd.OutOrStdout(), "%s: accepted, %d record(s)\n", path, out.Catalog.Len())
				}
			}

			if format == "json" {
				if err := writeJSON(cmd.OutOrStdout(), reports); err != nil {
					return err
				}
			}
			return joinRejections(errs)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "report format: text or json")
	return cmd
}
