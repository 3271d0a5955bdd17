// Package commission computes the operator's statutory share (hak amil) of
// collected funds. Everything here is pure: no I/O and no shared state.
package commission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Category is the closed set of commission-bearing fund categories.
type Category string

const (
	ZakatFitrah Category = "zakat_fitrah"
	ZakatMaal   Category = "zakat_maal"
	Infak       Category = "infak"
	Fidyah      Category = "fidyah"
	Beras       Category = "beras"
)

var ErrUnknownCategory = errors.New("unknown commission category")

var (
	twelveAndHalf = decimal.RequireFromString("12.5")
	twenty        = decimal.NewFromInt(20)
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{ZakatFitrah, ZakatMaal, Infak, Fidyah, Beras}
}

// DefaultPercentage is the percentage applied when a fiscal year has no override.
func (c Category) DefaultPercentage() decimal.Decimal {
	switch c {
	case ZakatFitrah, ZakatMaal:
		return twelveAndHalf
	case Infak:
		return twenty
	case Fidyah, Beras:
		return decimal.Zero
	}
	return decimal.Zero
}

func (c Category) Validate() error {
	switch c {
	case ZakatFitrah, ZakatMaal, Infak, Fidyah, Beras:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// MapCategory maps a transaction's raw category to a commission category.
// Raw categories outside the table report false; callers skip them.
func MapCategory(raw string) (Category, bool) {
	r := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case r == "zakat_fitrah_uang", r == "zakat_fitrah_beras":
		return ZakatFitrah, true
	case strings.HasPrefix(r, "maal_penghasilan_"):
		return ZakatMaal, true
	case strings.HasPrefix(r, "fidyah_"):
		return Fidyah, true
	case strings.HasPrefix(r, "infak_sedekah_"):
		return Infak, true
	case r == "beras":
		return Beras, true
	}
	return "", false
}
