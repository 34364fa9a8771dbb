package domain

import "encoding/json"

// Service endpoint and resource names.
const (
	DefaultURL = "https://app.simplyanalytics.com/dispatch.php"

	ViewGet = "get"

	ResourceDatasetSeries = "attributeDatasetSeries"
	ResourceInstitution   = "institution"
	ResourceAttributes    = "attributes"
	ResourceLocations     = "data/locations2"
)

// KeyPrefix namespaces every key this module writes to a shared store.
const KeyPrefix = "simplyanalytics:"

// DatasetSeries describes one published dataset series.
type DatasetSeries struct {
	Name          string `json:"name,omitempty"`
	LatestEdition int    `json:"latestEdition"`
	Editions      []int  `json:"editions,omitempty"`
}

// Institution is the account-level metadata returned by the service.
type Institution struct {
	Name      string                 `json:"name,omitempty"`
	Countries map[string]CountryInfo `json:"countries"`
}

// CountryInfo holds the census releases available for one country,
// keyed by release identifier.
type CountryInfo struct {
	CensusReleases map[string]json.RawMessage `json:"censusReleases"`
}
