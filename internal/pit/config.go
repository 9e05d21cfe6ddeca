package pit

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bracket taxes the slice of monthly taxable income in [Lower, Upper) at Rate.
// A nil Upper marks the open top bracket.
type Bracket struct {
	Lower decimal.Decimal  `json:"lower" mapstructure:"lower"`
	Upper *decimal.Decimal `json:"upper" mapstructure:"upper"`
	Rate  decimal.Decimal  `json:"rate" mapstructure:"rate"`
}

// Config is the statutory constant set. It is copied at construction and
// never modified afterwards.
type Config struct {
	Brackets            []Bracket
	SelfDeduction       decimal.Decimal
	DependentDeduction  decimal.Decimal
	ResidentFlatRate    decimal.Decimal
	NonResidentFlatRate decimal.Decimal
	// Resident flat-rate income below this amount is not taxed.
	FlatThreshold decimal.Decimal
}

func mil(n int64) decimal.Decimal { return decimal.NewFromInt(n * 1_000_000) }

func pct(n int64) decimal.Decimal { return decimal.New(n, -2) }

func upTo(n int64) *decimal.Decimal {
	d := mil(n)
	return &d
}

// DefaultConfig is the monthly ladder and family deductions in force since 2020.
func DefaultConfig() Config {
	return Config{
		Brackets: []Bracket{
			{Lower: decimal.Zero, Upper: upTo(5), Rate: pct(5)},
			{Lower: mil(5), Upper: upTo(10), Rate: pct(10)},
			{Lower: mil(10), Upper: upTo(18), Rate: pct(15)},
			{Lower: mil(18), Upper: upTo(32), Rate: pct(20)},
			{Lower: mil(32), Upper: upTo(52), Rate: pct(25)},
			{Lower: mil(52), Upper: upTo(80), Rate: pct(30)},
			{Lower: mil(80), Rate: pct(35)},
		},
		SelfDeduction:       decimal.NewFromInt(11_000_000),
		DependentDeduction:  decimal.NewFromInt(4_400_000),
		ResidentFlatRate:    pct(10),
		NonResidentFlatRate: pct(20),
		FlatThreshold:       decimal.NewFromInt(2_000_000),
	}
}

// Validate checks that the ladder starts at zero, is contiguous and ends open.
func (c Config) Validate() error {
	if len(c.Brackets) == 0 {
		return fmt.Errorf("%w: at least one bracket is required", ErrInvalidConfig)
	}
	if !c.Brackets[0].Lower.IsZero() {
		return fmt.Errorf("%w: first bracket must start at 0", ErrInvalidConfig)
	}
	for i, b := range c.Brackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: bracket %d rate %s is out of range", ErrInvalidConfig, i+1, b.Rate)
		}
		last := i == len(c.Brackets)-1
		if b.Upper == nil {
			if !last {
				return fmt.Errorf("%w: only the last bracket may be open", ErrInvalidConfig)
			}
			continue
		}
		if !b.Upper.GreaterThan(b.Lower) {
			return fmt.Errorf("%w: bracket %d upper bound must exceed its lower bound", ErrInvalidConfig, i+1)
		}
		if last {
			return fmt.Errorf("%w: last bracket must be open", ErrInvalidConfig)
		}
		if !c.Brackets[i+1].Lower.Equal(*b.Upper) {
			return fmt.Errorf("%w: bracket %d does not start where bracket %d ends", ErrInvalidConfig, i+2, i+1)
		}
	}
	if c.SelfDeduction.IsNegative() || c.DependentDeduction.IsNegative() || c.FlatThreshold.IsNegative() {
		return fmt.Errorf("%w: deductions must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c Config) clone() Config {
	cp := c
	cp.Brackets = make([]Bracket, len(c.Brackets))
	for i, b := range c.Brackets {
		cp.Brackets[i] = b
		if b.Upper != nil {
			u := *b.Upper
			cp.Brackets[i].Upper = &u
		}
	}
	return cp
}
