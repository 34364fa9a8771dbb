package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sa "github.com/kailas-cloud/simplyanalytics"
)

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List attribute categories and their codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd, sa.DataCategories())
		},
	}
}

func newDatasetsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "Show the latest edition of every dataset series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			start := time.Now()
			latest, err := c.GetLatestAvailableDatasets(cmd.Context())
			if err != nil {
				return err
			}
			g.logger.Debug("datasets fetched", zap.Int("count", len(latest)), zap.Duration("took", time.Since(start)))
			return printJSON(cmd, latest)
		},
	}
}

func newCensusReleasesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "census-releases",
		Short: "Show the latest census release per country",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			latest, err := c.GetLatestCensusReleases(cmd.Context())
			if err != nil {
				return err
			}
			g.logger.Debug("census releases fetched", zap.Int("countries", len(latest)))
			return printJSON(cmd, latest)
		},
	}
}

func newAttributesCmd(g *globalFlags) *cobra.Command {
	var (
		year          int
		country       string
		censusRelease int
		limit         int
		exact         bool
		allEditions   bool
		fields        []string
	)

	cmd := &cobra.Command{
		Use:   "attributes <name>",
		Short: "Search attributes by name",
		Long: `Search visible attributes by name. Unless --year or --all-editions
is given only the latest edition of each dataset is searched; unless
--census-release is given the latest census release of each country applies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}

			var opts []sa.FindOption
			flags := cmd.Flags()
			if flags.Changed("year") {
				opts = append(opts, sa.WithYear(year))
			}
			if country != "" {
				opts = append(opts, sa.WithCountry(country))
			}
			if flags.Changed("census-release") {
				opts = append(opts, sa.WithCensusRelease(censusRelease))
			}
			if flags.Changed("limit") {
				opts = append(opts, sa.WithLimit(limit))
			}
			if exact {
				opts = append(opts, sa.WithExactMatch())
			}
			if allEditions {
				opts = append(opts, sa.WithAllEditions())
			}
			if len(fields) > 0 {
				opts = append(opts, sa.WithFields(fields...))
			}

			hits, err := c.FindAttributes(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}
			g.logger.Debug("attributes found", zap.String("name", args[0]), zap.Int("hits", len(hits)))
			return printJSON(cmd, hits)
		},
	}

	f := cmd.Flags()
	f.IntVar(&year, "year", 0, "restrict to one data year")
	f.StringVar(&country, "country", "", "restrict to one country code")
	f.IntVar(&censusRelease, "census-release", 0, "restrict to one census release")
	f.IntVar(&limit, "limit", 100, "maximum number of results")
	f.BoolVar(&exact, "exact", false, "match the name exactly")
	f.BoolVar(&allEditions, "all-editions", false, "search every dataset edition")
	f.StringSliceVar(&fields, "fields", nil, "fields to return (default attribute,name,type)")
	return cmd
}

func newLocationsCmd(g *globalFlags) *cobra.Command {
	var (
		country       string
		unit          string
		censusRelease int
	)

	cmd := &cobra.Command{
		Use:   "locations <name>",
		Short: "Search locations whose name starts with <name>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}

			var opts []sa.FindOption
			if country != "" {
				opts = append(opts, sa.WithCountry(country))
			}
			if unit != "" {
				opts = append(opts, sa.WithGeographicUnit(unit))
			}
			if cmd.Flags().Changed("census-release") {
				opts = append(opts, sa.WithCensusRelease(censusRelease))
			}

			raw, err := c.FindLocations(cmd.Context(), args[0], opts...)
			if err != nil {
				return err
			}
			return printJSON(cmd, raw)
		},
	}

	f := cmd.Flags()
	f.StringVar(&country, "country", "", "restrict to one country code")
	f.StringVar(&unit, "unit", "", "restrict to one geographic unit")
	f.IntVar(&censusRelease, "census-release", 0, "restrict to one census release")
	return cmd
}

func newDataCmd(g *globalFlags) *cobra.Command {
	var (
		where string
		start int
		end   int
	)

	cmd := &cobra.Command{
		Use:   "data <attribute>...",
		Short: "Fetch attribute values for locations matching a filter",
		Long: `Fetch attribute values for the locations matching --where, a filter in
the service's nested-array grammar, for example:

  sa data VALUE0 --where '["=",{"attribute":"country"},"US"]' --end 50`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := sa.ParseFilter([]byte(where))
			if err != nil {
				return fmt.Errorf("--where: %w", err)
			}
			c, err := g.client()
			if err != nil {
				return err
			}

			var opts []sa.DataOption
			if cmd.Flags().Changed("start") || cmd.Flags().Changed("end") {
				if start < 0 || end < start {
					return fmt.Errorf("need 0 <= --start <= --end, got %d and %d", start, end)
				}
				opts = append(opts, sa.WithSlice(start, end))
			}

			raw, err := c.GetData(cmd.Context(), args, node, opts...)
			if err != nil {
				return err
			}
			return printJSON(cmd, raw)
		},
	}

	f := cmd.Flags()
	f.StringVar(&where, "where", "", "filter expression as JSON (required)")
	f.IntVar(&start, "start", 0, "first result index")
	f.IntVar(&end, "end", 100, "end of the result window (exclusive)")
	_ = cmd.MarkFlagRequired("where")
	return cmd
}
