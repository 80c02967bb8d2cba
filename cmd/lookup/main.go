package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"stability-dashboard/frontend/internal/config"
	"stability-dashboard/frontend/internal/predict"
	"stability-dashboard/frontend/internal/present"
)

var errLookupFailed = errors.New("lookup failed")

type options struct {
	country    string
	baseURL    string
	configPath string
	timeout    time.Duration
	asJSON     bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errLookupFailed) {
			logrus.Error(err)
		}
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Fetch stability predictions for a country and print them",
		Long: `Run one prediction lookup against the stability backend.

By default the rendered result cards are printed as HTML. When the backend
fails, the error banner is printed instead and the command exits non-zero.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("base-url") {
				opts.baseURL = cfg.PredictorBaseURL
			}
			if !cmd.Flags().Changed("timeout") {
				opts.timeout = cfg.PredictorTimeout
			}
			return run(cmd.Context(), *opts, cfg.DefaultCountry, out)
		},
	}
	cmd.Flags().StringVarP(&opts.country, "country", "c", "", "Country code (empty uses the configured default)")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", predict.DefaultBaseURL, "Prediction backend address")
	cmd.Flags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_FILE"), "Optional YAML configuration file")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Request timeout (0 waits indefinitely)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the raw prediction items as JSON")
	return cmd
}

func run(ctx context.Context, opts options, defaultCountry string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := predict.NewClient(predict.Config{BaseURL: opts.baseURL, Timeout: opts.timeout})
	if err != nil {
		return err
	}
	presenter := present.New(client, present.Options{
		DefaultCountry: defaultCountry,
		BaseURL:        client.BaseURL(),
	})

	if opts.asJSON {
		items, err := client.PredictLive(ctx, presenter.ResolveCountry(opts.country))
		if err != nil {
			return fmt.Errorf("fetch predictions: %w", err)
		}
		if items == nil {
			items = []predict.Item{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	doc := present.NewDocument(opts.country)
	outcome := presenter.FetchAndRender(ctx, doc)
	if outcome.State == present.StateError {
		fmt.Fprintln(out, doc.Error)
		return errLookupFailed
	}
	fmt.Fprintln(out, doc.Results)
	return nil
}
