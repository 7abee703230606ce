package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/aftershock-catalog/internal/adapter/csvfile"
	"github.com/couchcryptid/aftershock-catalog/internal/domain"
)

func (a *app) templateCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the blank CSV submission template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeTo(out, cmd.OutOrStdout(), func(w io.Writer) error {
				return csvfile.WriteTemplate(w, a.schema)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func (a *app) schemaCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc := domain.DefaultSchemaJSON()
			if a.cfg.SchemaPath != "" {
				var err error
				if doc, err = os.ReadFile(a.cfg.SchemaPath); err != nil {
					return fmt.Errorf("read schema: %w", err)
				}
			}
			return writeTo(out, cmd.OutOrStdout(), func(w io.Writer) error {
				_, err := w.Write(doc)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

// writeTo runs write against path, or against stdout when path is empty.
func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
