package business

import (
	"github.com/inboxflow/inboxflow/engine/workflow"
	"github.com/shopspring/decimal"
)

// Config is everything known about a business that personalizes its workflow.
// It is owned by the caller; the injection pipeline only reads it.
type Config struct {
	Provider       workflow.Provider            `json:"provider"                   yaml:"provider"                   validate:"required"`
	Business       Profile                      `json:"business"                   yaml:"business"`
	Contact        Contact                      `json:"contact"                    yaml:"contact"`
	Services       []Service                    `json:"services"                   yaml:"services"                   validate:"dive"`
	Rules          Rules                        `json:"rules"                      yaml:"rules"`
	Team           Team                         `json:"team"                       yaml:"team"`
	Labels         map[string]string            `json:"labels,omitempty"           yaml:"labels,omitempty"`
	Credentials    map[workflow.Provider]string `json:"credentials,omitempty"      yaml:"credentials,omitempty"`
	AICredentialID string                       `json:"ai_credential_id,omitempty" yaml:"ai_credential_id,omitempty"`
	Voice          *VoiceProfile                `json:"voice,omitempty"            yaml:"voice,omitempty"`
}

// Profile is the business identity.
type Profile struct {
	Name        string `json:"name"                   yaml:"name"                   validate:"required"`
	LegalName   string `json:"legal_name,omitempty"   yaml:"legal_name,omitempty"`
	Address     string `json:"address,omitempty"      yaml:"address,omitempty"`
	Timezone    string `json:"timezone,omitempty"     yaml:"timezone,omitempty"     validate:"omitempty,timezone"`
	Currency    string `json:"currency,omitempty"     yaml:"currency,omitempty"     validate:"omitempty,iso4217"`
	Category    string `json:"category,omitempty"     yaml:"category,omitempty"`
	ServiceArea string `json:"service_area,omitempty" yaml:"service_area,omitempty"`
	Website     string `json:"website,omitempty"      yaml:"website,omitempty"      validate:"omitempty,url"`
}

// Contact holds the customer-facing contact details.
type Contact struct {
	Email           string `json:"email,omitempty"             yaml:"email,omitempty"             validate:"omitempty,email"`
	Phone           string `json:"phone,omitempty"             yaml:"phone,omitempty"`
	AfterHoursPhone string `json:"after_hours_phone,omitempty" yaml:"after_hours_phone,omitempty"`
}

// PricingType describes how a service is priced.
type PricingType string

const (
	PricingFixed      PricingType = "fixed"
	PricingHourly     PricingType = "hourly"
	PricingStartingAt PricingType = "starting_at"
	PricingQuote      PricingType = "quote"
)

// Service is one entry of the service catalog.
type Service struct {
	Name        string          `json:"name"                   yaml:"name"                   validate:"required"`
	Price       decimal.Decimal `json:"price"                  yaml:"price"`
	PricingType PricingType     `json:"pricing_type,omitempty" yaml:"pricing_type,omitempty" validate:"omitempty,oneof=fixed hourly starting_at quote"`
	Description string          `json:"description,omitempty"  yaml:"description,omitempty"`
}

// Rules are the operating rules the automation must respect.
type Rules struct {
	BusinessHours   string   `json:"business_hours,omitempty"   yaml:"business_hours,omitempty"`
	ResponseSLA     string   `json:"response_sla,omitempty"     yaml:"response_sla,omitempty"`
	Tone            string   `json:"tone,omitempty"             yaml:"tone,omitempty"`
	DisclosePricing bool     `json:"disclose_pricing,omitempty" yaml:"disclose_pricing,omitempty"`
	EscalationRules string   `json:"escalation_rules,omitempty" yaml:"escalation_rules,omitempty"`
	OutOfScope      []string `json:"out_of_scope,omitempty"     yaml:"out_of_scope,omitempty"`
}

// Team lists the people mail may be routed to.
type Team struct {
	Managers  []Person   `json:"managers,omitempty"  yaml:"managers,omitempty"  validate:"dive"`
	Suppliers []Supplier `json:"suppliers,omitempty" yaml:"suppliers,omitempty" validate:"dive"`
}

// Person is a team member.
type Person struct {
	Name  string `json:"name"            yaml:"name"            validate:"required"`
	Email string `json:"email,omitempty" yaml:"email,omitempty" validate:"omitempty,email"`
	Role  string `json:"role,omitempty"  yaml:"role,omitempty"`
}

// Supplier is a vendor whose mail gets its own routing.
type Supplier struct {
	Name   string `json:"name"             yaml:"name"             validate:"required"`
	Email  string `json:"email,omitempty"  yaml:"email,omitempty"  validate:"omitempty,email"`
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty" validate:"omitempty,fqdn"`
}

// VoiceProfile captures the tone learned from the business's sent mail.
type VoiceProfile struct {
	Formality  float64  `json:"formality"            yaml:"formality"            validate:"min=0,max=1"`
	Warmth     float64  `json:"warmth"               yaml:"warmth"               validate:"min=0,max=1"`
	Directness float64  `json:"directness"           yaml:"directness"           validate:"min=0,max=1"`
	Phrases    []string `json:"phrases,omitempty"    yaml:"phrases,omitempty"`
	Confidence float64  `json:"confidence"           yaml:"confidence"           validate:"min=0,max=1"`
	SampleSize int      `json:"sample_size"          yaml:"sample_size"          validate:"min=0"`
}

const (
	// MinVoiceConfidence and MinVoiceSamples gate whether a learned voice
	// profile overrides the configured tone.
	MinVoiceConfidence = 0.6
	MinVoiceSamples    = 5
)

// Usable reports whether the profile has enough evidence to be applied.
func (v *VoiceProfile) Usable() bool {
	return v != nil && v.Confidence >= MinVoiceConfidence && v.SampleSize >= MinVoiceSamples
}

// CredentialID returns the credential id configured for provider p.
func (c *Config) CredentialID(p workflow.Provider) string {
	if c.Credentials == nil {
		return ""
	}
	return c.Credentials[p]
}
