// Package taxcode resolves Vietnamese tax codes (MST) against the business
// registry and compares registered names with the names users type in.
package taxcode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"taxcore/internal/model"
)

var (
	ErrInvalidTaxCode = errors.New("invalid tax code format")
	ErrInvalidInput   = errors.New("invalid input")
)

//go:generate mockgen -source=taxcode.go -destination=../mocks/mock_lookuper.go -package=mocks

// Lookuper resolves a tax code. Implementations never return errors: every
// failure is reported through LookupResult.Success and Reason.
type Lookuper interface {
	Lookup(ctx context.Context, taxCode string) LookupResult
}

// LookupResult is the outcome of resolving one tax code.
type LookupResult struct {
	Success       bool   `json:"success"`
	TaxCode       string `json:"tax_code"`
	Name          string `json:"name,omitempty"`
	ShortName     string `json:"short_name,omitempty"`
	Address       string `json:"address,omitempty"`
	Source        string `json:"source"` // LIVE, CACHE or MANUAL
	NotRegistered bool   `json:"not_registered,omitempty"`
	Reason        string `json:"reason,omitempty"`

	// Set by Service.Verify when a name was supplied.
	Score       *int  `json:"score,omitempty"`
	NameMatched *bool `json:"name_matched,omitempty"`
}

func failure(code, source, reason string) LookupResult {
	return LookupResult{TaxCode: code, Source: source, Reason: reason}
}

func fromRecord(rec *model.TaxCodeRecord, source string) LookupResult {
	return LookupResult{
		Success:   true,
		TaxCode:   rec.TaxCode,
		Name:      rec.Name,
		ShortName: rec.ShortName,
		Address:   rec.Address,
		Source:    source,
	}
}

// NormalizeCode strips spaces and dashes, so "0101234567-001" becomes "0101234567001".
func NormalizeCode(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

// ValidateFormat normalizes raw and checks it is a 10- or 13-digit code.
func ValidateFormat(raw string) (string, error) {
	code := NormalizeCode(raw)
	if len(code) != 10 && len(code) != 13 {
		return "", fmt.Errorf("%w: %q must have 10 or 13 digits", ErrInvalidTaxCode, raw)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q must contain digits only", ErrInvalidTaxCode, raw)
		}
	}
	return code, nil
}
