package simplyanalytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/kailas-cloud/simplyanalytics/internal/domain"
	"github.com/kailas-cloud/simplyanalytics/internal/domain/filter"
)

// Field names used by metadata-derived filters.
const (
	fieldDatasetSeries = "dataset_series"
	fieldYear          = "year"
	fieldHistorical    = "h_historical"
	fieldCountry       = "country"
	fieldCensusRelease = "census_release"
)

// DatasetSeries describes one published dataset series.
type DatasetSeries = domain.DatasetSeries

// Institution is the account-level metadata returned by the service.
type Institution = domain.Institution

// CountryInfo holds the census releases available for one country.
type CountryInfo = domain.CountryInfo

// GetAvailableDatasets returns every dataset series keyed by series name.
// The table is fetched once per Client and reused.
func (c *Client) GetAvailableDatasets(ctx context.Context) (map[string]DatasetSeries, error) {
	c.mu.Lock()
	cached := c.datasets
	c.mu.Unlock()
	if cached != nil {
		return maps.Clone(cached), nil
	}

	raw, err := c.fetchMetadata(ctx, domain.ResourceDatasetSeries)
	if err != nil {
		return nil, err
	}

	datasets := make(map[string]DatasetSeries)
	if err := decodeObject(raw, &datasets); err != nil {
		return nil, domain.NewMalformedResponse(domain.ResourceDatasetSeries, "*", err)
	}

	c.mu.Lock()
	c.datasets = datasets
	c.mu.Unlock()
	return maps.Clone(datasets), nil
}

// GetLatestAvailableDatasets maps each dataset series to its latest edition year.
func (c *Client) GetLatestAvailableDatasets(ctx context.Context) (map[string]int, error) {
	datasets, err := c.GetAvailableDatasets(ctx)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]int, len(datasets))
	for name, details := range datasets {
		latest[name] = details.LatestEdition
	}
	return latest, nil
}

// GetLatestAvailableDatasetsFilter matches rows from the latest edition of
// any dataset series, excluding rows flagged historical:
//
//	["and",
//	  ["or", ["and", ["=","dataset_series",S], ["=","year",Y]], ...],
//	  ["not", ["=","h_historical",true]]]
func (c *Client) GetLatestAvailableDatasetsFilter(ctx context.Context) (Expr, error) {
	latest, err := c.GetLatestAvailableDatasets(ctx)
	if err != nil {
		return Expr{}, err
	}

	perSeries := make([]filter.Node, 0, len(latest))
	for _, series := range slices.Sorted(maps.Keys(latest)) {
		perSeries = append(perSeries, filter.And(
			filter.Eq(filter.String(fieldDatasetSeries), filter.String(series)),
			filter.Eq(filter.String(fieldYear), filter.Int(latest[series])),
		))
	}

	anySeries, err := filter.AnyOf(perSeries)
	if err != nil {
		return Expr{}, fmt.Errorf("latest datasets filter: no dataset series available: %w", err)
	}

	return filter.And(
		anySeries,
		filter.Not(filter.Eq(filter.String(fieldHistorical), filter.Bool(true))),
	), nil
}

// GetInstitution returns the institution metadata, including the census
// releases available per country. Fetched once per Client and reused.
func (c *Client) GetInstitution(ctx context.Context) (Institution, error) {
	c.mu.Lock()
	cached := c.institution
	c.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	raw, err := c.fetchMetadata(ctx, domain.ResourceInstitution)
	if err != nil {
		return Institution{}, err
	}

	inst, err := decodeInstitution(raw)
	if err != nil {
		return Institution{}, err
	}

	c.mu.Lock()
	c.institution = &inst
	c.mu.Unlock()
	return inst, nil
}

// GetLatestCensusReleases maps each country to its highest census release.
// Countries without releases are omitted.
func (c *Client) GetLatestCensusReleases(ctx context.Context) (map[string]int, error) {
	inst, err := c.GetInstitution(ctx)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]int, len(inst.Countries))
	for country, info := range inst.Countries {
		found := false
		best := 0
		for id := range info.CensusReleases {
			n, err := strconv.Atoi(id)
			if err != nil {
				return nil, domain.NewMalformedResponse(domain.ResourceInstitution,
					"countries."+country+".censusReleases", fmt.Errorf("release id %q: %w", id, err))
			}
			if !found || n > best {
				best, found = n, true
			}
		}
		if found {
			latest[country] = best
		}
	}
	return latest, nil
}

// GetLatestCensusReleasesFilter matches rows from the latest census release
// of each country:
//
//	["or", ["and", ["=","country",C], ["=","census_release",N]], ...]
func (c *Client) GetLatestCensusReleasesFilter(ctx context.Context) (Expr, error) {
	latest, err := c.GetLatestCensusReleases(ctx)
	if err != nil {
		return Expr{}, err
	}

	perCountry := make([]filter.Node, 0, len(latest))
	for _, country := range slices.Sorted(maps.Keys(latest)) {
		perCountry = append(perCountry, filter.And(
			filter.Eq(filter.String(fieldCountry), filter.String(country)),
			filter.Eq(filter.String(fieldCensusRelease), filter.Int(latest[country])),
		))
	}

	expr, err := filter.AnyOf(perCountry)
	if err != nil {
		return Expr{}, fmt.Errorf("latest census releases filter: no census releases available: %w", err)
	}
	return expr, nil
}

func decodeInstitution(raw json.RawMessage) (Institution, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Institution{}, domain.NewMalformedResponse(domain.ResourceInstitution, "*", err)
	}

	countriesRaw, ok := fields["countries"]
	if !ok {
		return Institution{}, domain.NewMalformedResponse(domain.ResourceInstitution, "countries", nil)
	}

	inst := Institution{Countries: make(map[string]CountryInfo)}
	if name, ok := fields["name"]; ok {
		if err := json.Unmarshal(name, &inst.Name); err != nil {
			return Institution{}, domain.NewMalformedResponse(domain.ResourceInstitution, "name", err)
		}
	}

	var countries map[string]json.RawMessage
	if err := decodeObject(countriesRaw, &countries); err != nil {
		return Institution{}, domain.NewMalformedResponse(domain.ResourceInstitution, "countries", err)
	}
	for code, countryRaw := range countries {
		var country map[string]json.RawMessage
		if err := decodeObject(countryRaw, &country); err != nil {
			return Institution{}, domain.NewMalformedResponse(domain.ResourceInstitution, "countries."+code, err)
		}

		releases := make(map[string]json.RawMessage)
		if releasesRaw, ok := country["censusReleases"]; ok {
			if err := decodeObject(releasesRaw, &releases); err != nil {
				return Institution{}, domain.NewMalformedResponse(domain.ResourceInstitution,
					"countries."+code+".censusReleases", err)
			}
		}
		inst.Countries[code] = CountryInfo{CensusReleases: releases}
	}
	return inst, nil
}

// decodeObject decodes a JSON object into dst. The service encodes an empty
// object as [], which decodes to an empty map.
func decodeObject[M ~map[K]V, K comparable, V any](raw json.RawMessage, dst *M) error {
	switch string(bytes.TrimSpace(raw)) {
	case "[]", "null":
		if *dst == nil {
			*dst = make(M)
		}
		return nil
	default:
		return json.Unmarshal(raw, dst)
	}
}
