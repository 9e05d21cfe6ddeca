package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleType enum constants
const (
	RuleTypeVAT        = "VAT"
	RuleTypeVATConfig  = "VAT_CONFIG"
	RuleTypeCITAddBack = "CIT_ADDBACK"
	RuleTypeCITConfig  = "CIT_CONFIG"
	RuleTypePITConfig  = "PIT_CONFIG"
)

// RuleAction enum constants
const (
	ActionReject      = "REJECT"
	ActionPartial     = "PARTIAL"
	ActionWarn        = "WARN"
	ActionConfigValue = "CONFIG_VALUE"
)

// TaxRule is a compliance policy evaluated against transaction facts.
// Both effective bounds are inclusive and optional.
type TaxRule struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RuleType      string          `gorm:"type:varchar(20);not null;index" json:"rule_type"` // VAT, VAT_CONFIG, CIT_ADDBACK, CIT_CONFIG, PIT_CONFIG
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	ConfigKey     string          `gorm:"type:varchar(50);index" json:"config_key,omitempty"` // Constant overridden by CONFIG_VALUE rules
	Condition     json.RawMessage `gorm:"type:jsonb;serializer:json" json:"condition"`
	Action        string          `gorm:"type:varchar(20);not null" json:"action"`    // REJECT, PARTIAL, WARN, CONFIG_VALUE
	Value         decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"value"`  // Threshold, fraction or override constant
	EffectiveFrom *time.Time      `gorm:"type:date;index" json:"effective_from"`      // Nullable = no lower bound
	EffectiveTo   *time.Time      `gorm:"type:date;index" json:"effective_to"`        // Nullable = currently active
	Priority      int             `gorm:"not null;default:100;index" json:"priority"` // Lower runs first
	Description   string          `gorm:"type:text" json:"description"`              // Shown to reviewers when the rule fires
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// EffectiveOn reports whether the rule's date window contains day (by calendar date).
func (r TaxRule) EffectiveOn(day time.Time) bool {
	d := dateOnly(day)
	if r.EffectiveFrom != nil && d.Before(dateOnly(*r.EffectiveFrom)) {
		return false
	}
	if r.EffectiveTo != nil && d.After(dateOnly(*r.EffectiveTo)) {
		return false
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
