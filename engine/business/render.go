package business

import (
	"fmt"
	"slices"
	"strings"

	"github.com/inboxflow/inboxflow/engine/placeholder"
)

// Title returns the human-readable pricing label.
func (p PricingType) Title() string {
	switch p {
	case PricingHourly:
		return "Hourly"
	case PricingStartingAt:
		return "Starting at"
	case PricingQuote:
		return "Quote"
	default:
		return "Fixed"
	}
}

// Signature renders the email signature block.
func (c *Config) Signature() string {
	lines := []string{"Best regards,", fmt.Sprintf("The %s Team", c.Business.Name)}
	if c.Contact.Phone != "" {
		lines = append(lines, c.Contact.Phone)
	}
	if c.Contact.Email != "" {
		lines = append(lines, c.Contact.Email)
	}
	if c.Business.Website != "" {
		lines = append(lines, c.Business.Website)
	}
	return strings.Join(lines, "\n")
}

// ServiceCatalog renders one line per service:
//
//	- name (pricing type): price currency - description
func (c *Config) ServiceCatalog() string {
	if len(c.Services) == 0 {
		return "No services listed; ask the customer for details."
	}
	currency := c.Business.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	lines := make([]string, 0, len(c.Services))
	for _, svc := range c.Services {
		price := svc.Price.StringFixed(2) + " " + currency
		if svc.PricingType == PricingQuote {
			price = "price on request"
		}
		line := fmt.Sprintf("- %s (%s): %s",
			placeholder.SanitizeDisplay(svc.Name), svc.PricingType.Title(), price)
		if desc := placeholder.SanitizeDisplay(svc.Description); desc != "" {
			line += " - " + desc
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Managers renders the manager names as a comma separated list.
func (c *Config) Managers() string {
	if len(c.Team.Managers) == 0 {
		return DefaultManagers
	}
	names := make([]string, 0, len(c.Team.Managers))
	for _, m := range c.Team.Managers {
		name := placeholder.SanitizeDisplay(m.Name)
		if m.Role != "" {
			name += " (" + placeholder.SanitizeDisplay(m.Role) + ")"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

// ManagerEmails renders the manager addresses used for escalation routing.
func (c *Config) ManagerEmails() string {
	var emails []string
	for _, m := range c.Team.Managers {
		if m.Email != "" {
			emails = append(emails, m.Email)
		}
	}
	if len(emails) == 0 {
		return c.Contact.Email
	}
	return strings.Join(emails, ",")
}

// Suppliers renders the supplier list, one per line.
func (c *Config) Suppliers() string {
	if len(c.Team.Suppliers) == 0 {
		return "No suppliers listed"
	}
	lines := make([]string, 0, len(c.Team.Suppliers))
	for _, s := range c.Team.Suppliers {
		line := "- " + placeholder.SanitizeDisplay(s.Name)
		switch {
		case s.Email != "":
			line += " <" + s.Email + ">"
		case s.Domain != "":
			line += " (@" + s.Domain + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// SupplierDomains returns the sender domains that identify supplier mail.
func (c *Config) SupplierDomains() []string {
	var out []string
	for _, s := range c.Team.Suppliers {
		switch {
		case s.Domain != "":
			out = append(out, strings.ToLower(s.Domain))
		case strings.Contains(s.Email, "@"):
			out = append(out, strings.ToLower(s.Email[strings.LastIndexByte(s.Email, '@')+1:]))
		}
	}
	return out
}

// PricingPolicy renders the instruction for how prices may be discussed.
func (c *Config) PricingPolicy() string {
	if c.Rules.DisclosePricing {
		return "Share standard prices from the service catalog when asked. Final quotes are confirmed by the team."
	}
	return "Do not quote prices by email. Offer a free estimate and ask for a convenient time to call."
}

// OutOfScope renders the topics the automation must decline.
func (c *Config) OutOfScope() string {
	if len(c.Rules.OutOfScope) == 0 {
		return "Requests unrelated to " + c.Business.Category
	}
	items := make([]string, 0, len(c.Rules.OutOfScope))
	for _, item := range c.Rules.OutOfScope {
		if s := placeholder.SanitizeDisplay(item); s != "" {
			items = append(items, s)
		}
	}
	return strings.Join(items, ", ")
}

// Escalation renders the escalation rules with a default.
func (c *Config) Escalation() string {
	if s := strings.TrimSpace(c.Rules.EscalationRules); s != "" {
		return s
	}
	return "Forward urgent or unhappy customers to " + c.Managers() + "."
}

// LabelNames returns the configured label names in stable order.
func (c *Config) LabelNames() []string {
	names := make([]string, 0, len(c.Labels))
	for name := range c.Labels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
