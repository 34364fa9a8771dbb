package simplyanalytics

import (
	"fmt"
	"maps"

	"github.com/kailas-cloud/simplyanalytics/internal/domain/filter"
)

// dataCategories maps display names to category codes.
var dataCategories = map[string]string{
	"Popular Data":                 "popular_data",
	"Population":                   "population",
	"Age":                          "age",
	"Gender":                       "gender",
	"Race & Ethnicity":             "race_ethnicity",
	"Income":                       "income",
	"Education":                    "education",
	"Jobs & Employment":            "jobs_employment",
	"Poverty":                      "poverty",
	"Language":                     "language",
	"Ancestry":                     "ancestry",
	"Immigration":                  "immigration",
	"Households":                   "households",
	"Family Type & Marital Status": "family_type",
	"Vehicles & Transportation":    "vehicles_transportation",
	"Housing":                      "housing",
	"Market Segments":              "market_segments",
	"Consumer Behavior":            "consumer_behavior",
	"Health":                       "health",
	"Technology":                   "technology",
	"Finance":                      "finance",
	"Retail":                       "retail",
	"Business Counts":              "business_counts",
	"Elections":                    "elections",
	"Other":                        "other",
}

// DataCategories returns the attribute categories keyed by display name.
// The result is a fresh copy; no request is sent.
func DataCategories() map[string]string {
	return maps.Clone(dataCategories)
}

// CategoriesFilter returns one ["=", code, "true"] predicate per category code.
func CategoriesFilter(codes []string) []Expr {
	out := make([]Expr, len(codes))
	for i, code := range codes {
		out[i] = filter.Eq(filter.String(code), filter.String("true"))
	}
	return out
}

// AnyCategoriesFilter matches attributes in at least one of the categories.
func AnyCategoriesFilter(codes []string) (Expr, error) {
	expr, err := filter.AnyOf(filter.Exprs(CategoriesFilter(codes)))
	if err != nil {
		return Expr{}, fmt.Errorf("any categories filter: %w", err)
	}
	return expr, nil
}

// AllCategoriesFilter matches attributes in every one of the categories.
func AllCategoriesFilter(codes []string) (Expr, error) {
	expr, err := filter.AllOf(filter.Exprs(CategoriesFilter(codes)))
	if err != nil {
		return Expr{}, fmt.Errorf("all categories filter: %w", err)
	}
	return expr, nil
}
