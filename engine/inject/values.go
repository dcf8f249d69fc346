package inject

import (
	"github.com/inboxflow/inboxflow/engine/business"
	"github.com/inboxflow/inboxflow/engine/placeholder"
)

// Business placeholder identifiers.
const (
	KeyBusinessName     = "BUSINESS_NAME"
	KeyLegalName        = "BUSINESS_LEGAL_NAME"
	KeyCategory         = "BUSINESS_CATEGORY"
	KeyServiceArea      = "SERVICE_AREA"
	KeyAddress          = "BUSINESS_ADDRESS"
	KeyPhone            = "BUSINESS_PHONE"
	KeyAfterHoursPhone  = "AFTER_HOURS_PHONE"
	KeyEmail            = "BUSINESS_EMAIL"
	KeyWebsite          = "BUSINESS_WEBSITE"
	KeyTimezone         = "BUSINESS_TIMEZONE"
	KeyCurrency         = "BUSINESS_CURRENCY"
	KeyBusinessHours    = "BUSINESS_HOURS"
	KeyResponseSLA      = "RESPONSE_SLA"
	KeySignature        = "EMAIL_SIGNATURE"
	KeyServiceCatalog   = "SERVICE_CATALOG"
	KeyManagerNames     = "MANAGER_NAMES"
	KeyManagerEmails    = "MANAGER_EMAILS"
	KeySupplierList     = "SUPPLIER_LIST"
	KeyPricingPolicy    = "PRICING_POLICY"
	KeyEscalationRules  = "ESCALATION_RULES"
	KeyOutOfScopeTopics = "OUT_OF_SCOPE"
)

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// businessValues derives the business field values. cfg must already carry
// its defaults. Single-line fields are display-sanitized; rendered blocks
// keep their line breaks. Every value is defused so user text can never
// introduce a token.
func businessValues(cfg *business.Config) []entry {
	line := placeholder.SanitizeDisplay
	name := line(cfg.Business.Name)
	phone := orDefault(line(cfg.Contact.Phone), business.DefaultContact)
	return []entry{
		{KeyBusinessName, name},
		{KeyLegalName, orDefault(line(cfg.Business.LegalName), name)},
		{KeyCategory, line(cfg.Business.Category)},
		{KeyServiceArea, line(cfg.Business.ServiceArea)},
		{KeyAddress, orDefault(line(cfg.Business.Address), business.DefaultAddress)},
		{KeyPhone, phone},
		{KeyAfterHoursPhone, orDefault(line(cfg.Contact.AfterHoursPhone), phone)},
		{KeyEmail, orDefault(line(cfg.Contact.Email), business.DefaultContact)},
		{KeyWebsite, orDefault(line(cfg.Business.Website), business.DefaultContact)},
		{KeyTimezone, line(cfg.Business.Timezone)},
		{KeyCurrency, line(cfg.Business.Currency)},
		{KeyBusinessHours, line(cfg.Rules.BusinessHours)},
		{KeyResponseSLA, line(cfg.Rules.ResponseSLA)},
		{KeySignature, cfg.Signature()},
		{KeyServiceCatalog, cfg.ServiceCatalog()},
		{KeyManagerNames, cfg.Managers()},
		{KeyManagerEmails, cfg.ManagerEmails()},
		{KeySupplierList, cfg.Suppliers()},
		{KeyPricingPolicy, cfg.PricingPolicy()},
		{KeyEscalationRules, cfg.Escalation()},
		{KeyOutOfScopeTopics, cfg.OutOfScope()},
	}
}

type entry struct {
	ident string
	value string
}
