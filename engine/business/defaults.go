package business

import (
	"fmt"

	"dario.cat/mergo"
)

// Documented defaults substituted for missing optional fields so that no
// customer-facing text is ever blank.
const (
	DefaultCurrency      = "USD"
	DefaultTimezone      = "America/New_York"
	DefaultBusinessHours = "Monday-Friday 8:00 AM - 5:00 PM"
	DefaultResponseSLA   = "24 hours"
	DefaultTone          = "professional and friendly"
	DefaultServiceArea   = "our local service area"
	DefaultCategory      = "General Services"
	DefaultManagers      = "the business owner"
	DefaultAddress       = "Address available on request"
	DefaultContact       = "Contact details available on request"
)

var (
	profileDefaults = Profile{
		Timezone:    DefaultTimezone,
		Currency:    DefaultCurrency,
		Category:    DefaultCategory,
		ServiceArea: DefaultServiceArea,
	}
	rulesDefaults = Rules{
		BusinessHours: DefaultBusinessHours,
		ResponseSLA:   DefaultResponseSLA,
		Tone:          DefaultTone,
	}
)

// ApplyDefaults returns a copy of c with documented defaults filled into every
// empty optional field. c itself is left untouched.
func (c *Config) ApplyDefaults() (*Config, error) {
	out := *c
	if err := mergo.Merge(&out.Business, profileDefaults); err != nil {
		return nil, fmt.Errorf("failed to apply profile defaults: %w", err)
	}
	if err := mergo.Merge(&out.Rules, rulesDefaults); err != nil {
		return nil, fmt.Errorf("failed to apply rules defaults: %w", err)
	}
	services := make([]Service, len(c.Services))
	for i, svc := range c.Services {
		if svc.PricingType == "" {
			svc.PricingType = PricingFixed
		}
		services[i] = svc
	}
	out.Services = services
	return &out, nil
}
