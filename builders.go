package simplyanalytics

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/kailas-cloud/simplyanalytics/internal/domain/filter"
)

const (
	defaultAttributeLimit = 100

	fieldStatus        = "status"
	fieldName          = "name"
	fieldGroupedOrder  = "grouped_order"
	fieldLocation      = "location"
	fieldGeographyUnit = "geographic_unit"

	statusVisible = "visible"
)

var defaultAttributeFields = []string{"attribute", "name", "type"}

// FindOption configures FindAttributes and FindLocations.
// Options that do not apply to a builder are ignored by it.
type FindOption interface {
	applyFind(*findParams)
}

type findOptionFunc func(*findParams)

func (f findOptionFunc) applyFind(p *findParams) { f(p) }

type findParams struct {
	year    int
	hasYear bool

	country        string
	geographicUnit string

	censusRelease    int
	hasCensusRelease bool

	limit      int
	exactMatch bool
	latestOnly bool
	fields     []string
}

func newFindParams(opts []FindOption) findParams {
	p := findParams{
		limit:      defaultAttributeLimit,
		latestOnly: true,
		fields:     slices.Clone(defaultAttributeFields),
	}
	for _, o := range opts {
		o.applyFind(&p)
	}
	return p
}

// WithYear restricts attributes to one dataset edition year.
// It replaces the latest-edition filter.
func WithYear(year int) FindOption {
	return findOptionFunc(func(p *findParams) {
		p.year = year
		p.hasYear = true
	})
}

// WithCountry restricts results to one country code, e.g. "US".
func WithCountry(country string) FindOption {
	return findOptionFunc(func(p *findParams) {
		p.country = country
	})
}

// WithCensusRelease restricts results to one census release.
// For attributes it replaces the latest-census-release filter.
func WithCensusRelease(release int) FindOption {
	return findOptionFunc(func(p *findParams) {
		p.censusRelease = release
		p.hasCensusRelease = true
	})
}

// WithGeographicUnit restricts locations to one geographic unit, e.g. "county".
func WithGeographicUnit(unit string) FindOption {
	return findOptionFunc(func(p *findParams) {
		p.geographicUnit = unit
	})
}

// WithLimit caps the number of attributes returned. Default: 100.
// Non-positive values keep the default.
func WithLimit(n int) FindOption {
	return findOptionFunc(func(p *findParams) {
		if n > 0 {
			p.limit = n
		}
	})
}

// WithExactMatch matches attribute names exactly instead of fuzzily.
func WithExactMatch() FindOption {
	return findOptionFunc(func(p *findParams) {
		p.exactMatch = true
	})
}

// WithAllEditions drops the latest-edition filter when no year is given,
// so attributes from every dataset edition match.
func WithAllEditions() FindOption {
	return findOptionFunc(func(p *findParams) {
		p.latestOnly = false
	})
}

// WithFields sets the attribute fields returned.
// Default: attribute, name, type.
func WithFields(fields ...string) FindOption {
	return findOptionFunc(func(p *findParams) {
		if len(fields) > 0 {
			p.fields = slices.Clone(fields)
		}
	})
}

// FindAttributes searches visible attributes by name.
//
// Without WithYear the latest edition of every dataset series is used
// (unless WithAllEditions). Without WithCensusRelease the latest census
// release of every country is always applied.
func (c *Client) FindAttributes(ctx context.Context, name string, opts ...FindOption) ([]Hit, error) {
	req, err := c.attributesQuery(ctx, name, newFindParams(opts))
	if err != nil {
		return nil, fmt.Errorf("find attributes %q: %w", name, err)
	}
	return c.GetAttributes(ctx, req)
}

func (c *Client) attributesQuery(ctx context.Context, name string, p findParams) (AttributesRequest, error) {
	preds := []filter.Node{
		filter.Eq(filter.String(fieldStatus), filter.String(statusVisible)),
	}
	if p.exactMatch {
		preds = append(preds, filter.Eq(filter.String(fieldName), filter.String(name)))
	} else {
		preds = append(preds, filter.Like(filter.String(fieldName), filter.String(name)))
	}

	switch {
	case p.hasYear:
		preds = append(preds, filter.Eq(filter.String(fieldYear), filter.Int(p.year)))
	case p.latestOnly:
		latest, err := c.GetLatestAvailableDatasetsFilter(ctx)
		if err != nil {
			return AttributesRequest{}, err
		}
		preds = append(preds, latest)
	}

	if p.country != "" {
		preds = append(preds, filter.Eq(filter.String(fieldCountry), filter.String(p.country)))
	}

	if p.hasCensusRelease {
		preds = append(preds, filter.Eq(filter.String(fieldCensusRelease), filter.Int(p.censusRelease)))
	} else {
		latest, err := c.GetLatestCensusReleasesFilter(ctx)
		if err != nil {
			return AttributesRequest{}, err
		}
		preds = append(preds, latest)
	}

	return AttributesRequest{
		Where:  filter.And(preds[0], preds[1:]...),
		Fields: p.fields,
		Sort:   []Sort{Ascending(filter.String(fieldGroupedOrder))},
		Slice:  &Slice{Start: 0, End: p.limit},
	}, nil
}

// FindLocations searches locations whose name starts with name, sorted by
// name descending. The raw response is returned.
func (c *Client) FindLocations(ctx context.Context, name string, opts ...FindOption) (json.RawMessage, error) {
	return c.GetLocations(ctx, locationsQuery(name, newFindParams(opts)))
}

func locationsQuery(name string, p findParams) LocationsRequest {
	preds := []filter.Node{
		filter.StartsWith(filter.Attr(fieldName), filter.String(name)),
	}
	if p.geographicUnit != "" {
		preds = append(preds, filter.Eq(filter.Attr(fieldGeographyUnit), filter.String(p.geographicUnit)))
	}
	if p.hasCensusRelease {
		preds = append(preds, filter.Eq(filter.Attr(fieldCensusRelease), filter.Int(p.censusRelease)))
	}
	if p.country != "" {
		preds = append(preds, filter.Eq(filter.Attr(fieldCountry), filter.String(p.country)))
	}

	// A lone predicate goes on the wire unwrapped.
	where := preds[0]
	if len(preds) > 1 {
		where = filter.And(preds[0], preds[1:]...)
	}

	return LocationsRequest{
		Select: []filter.Node{filter.Attr(fieldLocation), filter.Attr(fieldName)},
		Where:  where,
		Sort:   []Sort{Descending(filter.Attr(fieldName))},
	}
}

// DataOption configures GetData.
type DataOption interface {
	applyData(*LocationsRequest)
}

type dataOptionFunc func(*LocationsRequest)

func (f dataOptionFunc) applyData(r *LocationsRequest) { f(r) }

// WithSort orders GetData results.
func WithSort(sorts ...Sort) DataOption {
	return dataOptionFunc(func(r *LocationsRequest) {
		r.Sort = append(r.Sort, sorts...)
	})
}

// WithSlice limits GetData results to [start, end).
func WithSlice(start, end int) DataOption {
	return dataOptionFunc(func(r *LocationsRequest) {
		r.Slice = &Slice{Start: start, End: end}
	})
}

// GetData selects attribute values for the locations matching where.
// Sort and slice are sent only when given.
func (c *Client) GetData(ctx context.Context, attributes []string, where Node, opts ...DataOption) (json.RawMessage, error) {
	return c.GetLocations(ctx, dataQuery(attributes, where, opts))
}

func dataQuery(attributes []string, where Node, opts []DataOption) LocationsRequest {
	sel := make([]filter.Node, len(attributes))
	for i, a := range attributes {
		sel[i] = filter.String(a)
	}
	req := LocationsRequest{Select: sel, Where: where}
	for _, o := range opts {
		o.applyData(&req)
	}
	return req
}
