package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/aftershock-catalog/internal/analysis"
	"github.com/couchcryptid/aftershock-catalog/internal/domain"
	"github.com/couchcryptid/aftershock-catalog/internal/visualize"
)

func (a *app) renderer(outDir string) *visualize.Renderer {
	if outDir == "" {
		outDir = a.cfg.PlotOutputDir
	}
	return visualize.NewRenderer(outDir, a.cfg.PlotWidthCM, a.cfg.PlotHeightCM, a.cfg.MagnitudeBinWidth)
}

func (a *app) visualizeCommand() *cobra.Command {
	var (
		kindNames []string
		outDir    string
	)
	cmd := &cobra.Command{
		Use:   "visualize FILE...",
		Short: "Plot accepted catalogs as PNG files",
		Long: `visualize validates each file and, if every file is accepted, renders the
requested plot kinds for each catalog. Available kinds: map, depth_profile,
time_magnitude, cumulative_count, magnitude_frequency.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := visualize.ParseKinds(kindNames)
			if err != nil {
				return err
			}
			catalogs, err := a.loadCatalogs(cmd, args)
			if err != nil {
				return err
			}
			r := a.renderer(outDir)
			for _, c := range catalogs {
				paths, err := r.Render(c, kinds)
				if err != nil {
					return fmt.Errorf("%s: %w", c.Name, err)
				}
				for _, p := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				a.logger.Info("catalog plotted", "catalog", c.Name, "plots", len(paths))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&kindNames, "kinds", nil, "comma-separated plot kinds (default: all)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: PLOT_OUTPUT_DIR)")
	return cmd
}

func (a *app) compareCommand() *cobra.Command {
	var (
		plots  bool
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "compare FILE FILE...",
		Short: "Compare summary statistics of two or more catalogs",
		Long: `compare validates each file and prints per-catalog statistics as JSON:
event counts, magnitude and depth statistics, magnitude bins on shared edges,
and the daily event count since the main shock.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalogs, err := a.loadCatalogs(cmd, args)
			if err != nil {
				return err
			}
			byName := make(map[string]domain.Catalog, len(catalogs))
			for _, c := range catalogs {
				if _, dup := byName[c.Name]; dup {
					return fmt.Errorf("two catalogs are named %q; rename one of the files", c.Name)
				}
				byName[c.Name] = c
			}

			cmp, err := analysis.Compare(byName, analysis.Options{BinWidth: a.cfg.MagnitudeBinWidth})
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), cmp); err != nil {
				return err
			}

			if plots {
				paths, err := a.renderer(outDir).RenderComparison(cmp)
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(cmd.ErrOrStderr(), "wrote", p)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&plots, "plots", false, "also render overlaid comparison plots")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "plot output directory (default: PLOT_OUTPUT_DIR)")
	return cmd
}
