package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	sa "github.com/kailas-cloud/simplyanalytics"
	logpkg "github.com/kailas-cloud/simplyanalytics/internal/logger"
	"github.com/kailas-cloud/simplyanalytics/internal/version"
)

type globalFlags struct {
	key      string
	url      string
	timeout  time.Duration
	logLevel string

	logger *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "sa",
		Short: "Query the SimplyAnalytics dispatch API",
		Long: `sa searches SimplyAnalytics attributes and locations and prints
metadata about the datasets and census releases available to your
institution. Output is indented JSON.

The access key and endpoint default to $SIMPLYANALYTICS_KEY and
$SIMPLYANALYTICS_URL.`,
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logger, err := logpkg.NewLogger("cli", g.logLevel)
			if err != nil {
				return err
			}
			g.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = g.logger.Sync()
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&g.key, "key", os.Getenv("SIMPLYANALYTICS_KEY"), "access key")
	pf.StringVar(&g.url, "url", os.Getenv("SIMPLYANALYTICS_URL"), "dispatch endpoint (default "+sa.DefaultURL+")")
	pf.DurationVar(&g.timeout, "timeout", 30*time.Second, "request timeout")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newCategoriesCmd(),
		newDatasetsCmd(g),
		newCensusReleasesCmd(g),
		newAttributesCmd(g),
		newLocationsCmd(g),
		newDataCmd(g),
	)
	return root
}

// client builds a Client from the global flags. Client logs go through
// the command's zap logger.
func (g *globalFlags) client() (*sa.Client, error) {
	opts := []sa.Option{
		sa.WithKey(g.key),
		sa.WithHTTPClient(&http.Client{Timeout: g.timeout}),
		sa.WithLogger(logpkg.Slog(g.logger)),
	}
	if g.url != "" {
		opts = append(opts, sa.WithURL(g.url))
	}
	c, err := sa.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return c, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
