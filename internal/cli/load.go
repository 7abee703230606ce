package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/aftershock-catalog/internal/adapter/csvfile"
	kafkaadapter "github.com/couchcryptid/aftershock-catalog/internal/adapter/kafka"
	"github.com/couchcryptid/aftershock-catalog/internal/domain"
)

func (a *app) enrichCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "enrich FILE",
		Short: "Fill empty location descriptions by reverse geocoding",
		Long: `enrich validates FILE, looks up a place name for every record without a
location_description, and writes the accepted catalog as CSV. It needs
MAPBOX_TOKEN to be set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			geocoder := a.geocoder()
			if geocoder == nil {
				return errors.New("geocoding is disabled; set MAPBOX_TOKEN (and leave MAPBOX_ENABLED unset or true)")
			}
			p := a.pipeline(geocoder, csvfile.NewWriter(out, a.schema))
			res, err := accept(cmd.Context(), p, args[0], cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: wrote %d record(s) to %s\n", args[0], res.Catalog.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output CSV file")
	return cmd
}

func (a *app) publishCommand() *cobra.Command {
	var geocode bool
	cmd := &cobra.Command{
		Use:   "publish FILE...",
		Short: "Publish accepted catalogs to Kafka",
		Long: `publish validates each file and produces every record of an accepted
catalog to KAFKA_TOPIC, keyed by event_id. Rejected files are reported and
skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			publisher := kafkaadapter.NewPublisher(a.cfg, a.logger)
			defer func() {
				if err := publisher.Close(); err != nil {
					a.logger.Error("kafka publisher close error", "error", err)
				}
			}()

			var geocoder domain.Geocoder
			if geocode {
				geocoder = a.geocoder()
			}
			p := a.pipeline(geocoder, publisher)

			var errs []error
			for _, path := range args {
				out, err := accept(cmd.Context(), p, path, cmd.ErrOrStderr())
				if err != nil {
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: published %d record(s) to %s\n", path, out.Catalog.Len(), a.cfg.KafkaTopic)
			}
			return joinRejections(errs)
		},
	}
	cmd.Flags().BoolVar(&geocode, "geocode", false, "fill empty location descriptions before publishing")
	return cmd
}
