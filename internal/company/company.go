// Package company resolves the site a request came from to the business that
// owns it.
package company

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/tjfontaine/estimate-executor/internal/config"
	"github.com/tjfontaine/estimate-executor/internal/pricing"
	"github.com/tjfontaine/estimate-executor/internal/validate"
)

// Company is a customer of the estimate service.
type Company struct {
	ID         string
	Name       string
	Domains    []string
	Recipients []string
	Services   map[string]pricing.Service
	// ContactFields must be present as strings in contact.extra.
	ContactFields []string
}

// Service returns the named service if the company offers it.
func (c *Company) Service(key string) (pricing.Service, bool) {
	s, ok := c.Services[key]
	return s, ok
}

// ServiceKeys returns the offered service keys, sorted.
func (c *Company) ServiceKeys() []string {
	return slices.Sorted(maps.Keys(c.Services))
}

// ValidateServiceName reports problems with v as a service key for this company.
func (c *Company) ValidateServiceName(v gjson.Result, name string) []string {
	return validate.OneOf(c.ServiceKeys()...)(v, name)
}

// ValidateContact reports problems with a contact object.
func (c *Company) ValidateContact(v gjson.Result, name string) []string {
	msgs := ContactRule()(v, name)
	if len(msgs) > 0 || len(c.ContactFields) == 0 {
		return msgs
	}
	extra := make([]validate.FieldRule, len(c.ContactFields))
	for i, f := range c.ContactFields {
		extra[i] = validate.Field(f, validate.String())
	}
	return validate.Object(extra...)(v.Get("extra"), name+".extra")
}

// ContactRule is the shape every contact must have.
func ContactRule() validate.Rule {
	return validate.Object(
		validate.Field("name", validate.String()),
		validate.Field("email", validate.String()),
		validate.Field("phone", validate.String()),
		validate.Field("street_address", validate.String()),
		validate.Field("extra", validate.Values(validate.String())),
	)
}

// Registry maps a hostname to its company. Reads may run concurrently with
// Replace.
type Registry struct {
	mu       sync.RWMutex
	byDomain map[string]*Company
}

// NewRegistry indexes companies by each of their domains.
func NewRegistry(companies ...*Company) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(companies...); err != nil {
		return nil, err
	}
	return r, nil
}

// Lookup finds the company for a hostname. Matching ignores case.
func (r *Registry) Lookup(host string) (*Company, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byDomain[strings.ToLower(host)]
	return c, ok
}

// Domains returns every registered hostname, sorted.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.byDomain))
}

// Replace swaps the whole index. On error the previous index is kept.
func (r *Registry) Replace(companies ...*Company) error {
	next := make(map[string]*Company)
	for _, c := range companies {
		for _, d := range c.Domains {
			d = strings.ToLower(d)
			if prev, ok := next[d]; ok {
				return fmt.Errorf("domain %s is claimed by both %s and %s", d, prev.ID, c.ID)
			}
			next[d] = c
		}
	}

	r.mu.Lock()
	r.byDomain = next
	r.mu.Unlock()
	return nil
}

// FromConfig builds companies from configuration, resolving service keys
// against catalog.
func FromConfig(cfgs []config.CompanyConfig, catalog *pricing.Catalog) ([]*Company, error) {
	out := make([]*Company, 0, len(cfgs))
	for _, cc := range cfgs {
		c := &Company{
			ID:            cc.ID,
			Name:          cc.Name,
			Domains:       slices.Clone(cc.Domains),
			Recipients:    slices.Clone(cc.Recipients),
			Services:      make(map[string]pricing.Service, len(cc.Services)),
			ContactFields: slices.Clone(cc.ContactFields),
		}
		for _, key := range cc.Services {
			svc, ok := catalog.Lookup(key)
			if !ok {
				return nil, fmt.Errorf("company %s: unknown service %q (known: %s)", cc.ID, key, strings.Join(catalog.Keys(), ", "))
			}
			c.Services[key] = svc
		}
		if len(c.Recipients) == 0 {
			return nil, fmt.Errorf("company %s: at least one recipient is required", cc.ID)
		}
		out = append(out, c)
	}
	return out, nil
}
