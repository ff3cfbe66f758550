// Package quote implements `estimator quote`, which prices a service from the
// command line without sending anything.
package quote

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/tjfontaine/estimate-executor/internal/config"
	"github.com/tjfontaine/estimate-executor/internal/pricing"
)

type output struct {
	Service                    string          `json:"service"`
	Args                       json.RawMessage `json:"args"`
	At                         string          `json:"at"`
	OriginalPrice              string          `json:"original_price"`
	RoundedOriginalPrice       string          `json:"rounded_original_price"`
	PriceAfterInflation        string          `json:"price_after_inflation"`
	RoundedPriceAfterInflation string          `json:"rounded_price_after_inflation"`
}

func NewCmd() *cobra.Command {
	var (
		cfgPath string
		service string
		args    string
		at      string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a service and print the quote as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithoutSecrets(cfgPath)
			if err != nil {
				return err
			}
			inflation, err := pricing.ParseInflation(cfg.Pricing.InflationStart, cfg.Pricing.MonthlyRate)
			if err != nil {
				return err
			}

			when := time.Now()
			if at != "" {
				if when, err = time.Parse("2006-01", at); err != nil {
					return fmt.Errorf("--at must be YYYY-MM: %w", err)
				}
			}
			catalog := pricing.NewCatalog(inflation, pricing.Services(),
				pricing.WithClock(func() time.Time { return when }))

			svc, ok := catalog.Lookup(service)
			if !ok {
				return fmt.Errorf("unknown service %q (known: %s)", service, strings.Join(catalog.Keys(), ", "))
			}

			raw := json.RawMessage(args)
			if args == "" {
				raw = svc.DefaultArgs()
			}
			if !gjson.ValidBytes(raw) {
				return errors.New("--args must be valid JSON")
			}
			parsed := gjson.ParseBytes(raw)
			if msgs := svc.Validate(parsed, "args"); len(msgs) > 0 {
				return fmt.Errorf("invalid pricing function arguments: %s", strings.Join(msgs, ", "))
			}

			q, err := catalog.Quote(svc, parsed)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(output{
				Service:                    svc.Key(),
				Args:                       raw,
				At:                         when.Format("2006-01"),
				OriginalPrice:              pricing.Cents(q.OriginalPrice),
				RoundedOriginalPrice:       pricing.Cents(q.RoundedOriginalPrice),
				PriceAfterInflation:        pricing.Cents(q.PriceAfterInflation),
				RoundedPriceAfterInflation: pricing.Cents(q.RoundedPriceAfterInflation),
			})
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "Path to config file")
	cmd.Flags().StringVarP(&service, "service", "s", "tree_planting", "Service key")
	cmd.Flags().StringVar(&args, "args", "", "Pricing arguments as JSON (default: the service's example)")
	cmd.Flags().StringVar(&at, "at", "", "Price as of this month, YYYY-MM (default: now)")
	return cmd
}
