package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding fills an empty location description from the record's
// epicentre. If geocoder is nil or geocoding fails, the record is returned
// unchanged (graceful degradation).
func EnrichWithGeocoding(ctx context.Context, rec AftershockRecord, geocoder Geocoder, logger *slog.Logger) AftershockRecord {
	if geocoder == nil || rec.LocationDescription != "" {
		return rec
	}

	result, err := geocoder.ReverseGeocode(ctx, rec.Latitude, rec.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"event_id", rec.EventID,
			"lat", rec.Latitude,
			"lon", rec.Longitude,
			"error", err,
		)
		return rec
	}
	if result.FormattedAddress != "" {
		rec.LocationDescription = result.FormattedAddress
	}
	return rec
}

// EnrichCatalog geocodes every record of the catalog that lacks a location
// description. The validated status of the catalog is kept.
func EnrichCatalog(ctx context.Context, catalog Catalog, geocoder Geocoder, logger *slog.Logger) Catalog {
	if geocoder == nil {
		return catalog
	}
	records := make([]AftershockRecord, len(catalog.Records))
	for i, rec := range catalog.Records {
		records[i] = EnrichWithGeocoding(ctx, rec, geocoder, logger)
	}
	return catalog.WithRecords(records)
}
