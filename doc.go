// Package simplyanalytics is a Go client for the SimplyAnalytics
// geodemographic data service.
//
// Every call is one POST to the dispatch endpoint. Filters use the
// service's nested-array predicate grammar, built here as a typed tree:
//
//	client, _ := simplyanalytics.New(simplyanalytics.WithKey(key))
//
//	// Attributes from the latest dataset editions and census releases.
//	hits, _ := client.FindAttributes(ctx, "median household income",
//	    simplyanalytics.WithCountry("US"),
//	)
//
//	// Locations by name prefix.
//	locs, _ := client.FindLocations(ctx, "Austin",
//	    simplyanalytics.WithGeographicUnit("city"),
//	)
//
//	// Raw data with a hand-built filter.
//	data, _ := client.GetData(ctx, []string{"VALUE0"},
//	    simplyanalytics.Eq(simplyanalytics.Value("country"), simplyanalytics.Value("US")),
//	    simplyanalytics.WithSlice(0, 50),
//	)
//
// Errors from the service carry its message as *RemoteServiceError;
// responses missing an expected field fail with ErrMalformedResponse.
package simplyanalytics
