package commission

import "github.com/shopspring/decimal"

var (
	half    = decimal.RequireFromString("0.5")
	hundred = decimal.NewFromInt(100)
)

// Input is everything Breakdown needs. A nil Percentage means the
// category default.
type Input struct {
	Category       Category
	Gross          decimal.Decimal
	Reconciliation decimal.Decimal
	BasisMode      BasisMode
	Percentage     *decimal.Decimal
}

// Result is the full commission breakdown for one category amount.
type Result struct {
	Category         Category        `json:"category"`
	BasisMode        BasisMode       `json:"basis_mode"`
	Gross            decimal.Decimal `json:"gross"`
	Reconciliation   decimal.Decimal `json:"reconciliation"`
	Net              decimal.Decimal `json:"net"`
	BasisNominal     decimal.Decimal `json:"basis_nominal"`
	Percentage       decimal.Decimal `json:"percentage"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
}

// Breakdown computes net, the basis nominal and the rounded commission.
func Breakdown(in Input) Result {
	mode := in.BasisMode
	if mode == "" {
		mode = DefaultBasisMode
	}

	net := in.Gross.Sub(in.Reconciliation)
	basis := net
	if mode == BasisGross {
		basis = in.Gross
	}

	pct := in.Category.DefaultPercentage()
	if in.Percentage != nil {
		pct = *in.Percentage
	}

	return Result{
		Category:         in.Category,
		BasisMode:        mode,
		Gross:            in.Gross,
		Reconciliation:   in.Reconciliation,
		Net:              net,
		BasisNominal:     basis,
		Percentage:       pct,
		CommissionAmount: RoundHalfAwayFromZero(basis.Mul(pct).Shift(-2), 0),
	}
}

// RoundHalfAwayFromZero rounds v to precision decimal places, sending ties
// away from zero: 10.5 -> 11, -10.5 -> -11.
func RoundHalfAwayFromZero(v decimal.Decimal, precision int32) decimal.Decimal {
	scaled := v.Shift(precision)
	if scaled.Sign() >= 0 {
		scaled = scaled.Add(half).Floor()
	} else {
		scaled = scaled.Sub(half).Ceil()
	}
	return scaled.Shift(-precision)
}
