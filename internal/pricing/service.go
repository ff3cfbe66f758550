// Package pricing turns a service's estimate arguments into a rounded,
// inflation-adjusted quote.
package pricing

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/tidwall/gjson"
)

// Service prices one kind of job. Arguments arrive as the decoded "args"
// object of a request and are checked with Validate before BasePrice sees
// them.
type Service interface {
	Key() string
	DisplayName() string
	// Validate returns one message per problem, naming fields relative to name.
	Validate(args gjson.Result, name string) []string
	// BasePrice is the price in catalog terms, before inflation and rounding.
	BasePrice(args gjson.Result) (*apd.Decimal, error)
	// Describe lists the arguments as label/value rows for an email.
	Describe(args gjson.Result) []Detail
	DefaultArgs() json.RawMessage
}

// Detail is one row of a service description.
type Detail struct {
	Label string
	Value string
}

// Quote is the outcome of pricing a job.
type Quote struct {
	OriginalPrice              *apd.Decimal `json:"original_price"`
	RoundedOriginalPrice       *apd.Decimal `json:"rounded_original_price"`
	PriceAfterInflation        *apd.Decimal `json:"price_after_inflation"`
	RoundedPriceAfterInflation *apd.Decimal `json:"rounded_price_after_inflation"`
}

// Catalog holds the services that can be quoted and the inflation applied
// to all of them.
type Catalog struct {
	services  map[string]Service
	inflation Inflation
	now       func() time.Time
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithClock overrides the time used for inflation.
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) {
		c.now = now
	}
}

// NewCatalog creates a catalog. Later services replace earlier ones with the
// same key.
func NewCatalog(inflation Inflation, services []Service, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		services:  make(map[string]Service, len(services)),
		inflation: inflation,
		now:       time.Now,
	}
	for _, s := range services {
		c.services[s.Key()] = s
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the service registered under key.
func (c *Catalog) Lookup(key string) (Service, bool) {
	s, ok := c.services[key]
	return s, ok
}

// Keys returns the registered service keys, sorted.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.services))
	for k := range c.services {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Quote prices args with svc at the catalog's current time.
func (c *Catalog) Quote(svc Service, args gjson.Result) (Quote, error) {
	base, err := svc.BasePrice(args)
	if err != nil {
		return Quote{}, fmt.Errorf("%s: %w", svc.Key(), err)
	}
	roundedBase, err := RoundEstimate(base)
	if err != nil {
		return Quote{}, fmt.Errorf("%s: round: %w", svc.Key(), err)
	}
	inflated, err := c.inflation.Apply(base, c.now())
	if err != nil {
		return Quote{}, fmt.Errorf("%s: %w", svc.Key(), err)
	}
	roundedInflated, err := RoundEstimate(inflated)
	if err != nil {
		return Quote{}, fmt.Errorf("%s: round: %w", svc.Key(), err)
	}

	return Quote{
		OriginalPrice:              base,
		RoundedOriginalPrice:       roundedBase,
		PriceAfterInflation:        inflated,
		RoundedPriceAfterInflation: roundedInflated,
	}, nil
}
