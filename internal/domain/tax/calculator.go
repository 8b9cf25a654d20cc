package tax

import (
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// VATBreakdown is the result of splitting an amount into net and tax
type VATBreakdown struct {
	Net decimal.Decimal `json:"net"`
	Tax decimal.Decimal `json:"tax"`
}

// Gross returns the tax-inclusive total
func (v VATBreakdown) Gross() decimal.Decimal {
	return v.Net.Add(v.Tax)
}

// VATPosition is the net result of a VAT return for one period
type VATPosition struct {
	OutputTotal decimal.Decimal `json:"output_total"`
	InputTotal  decimal.Decimal `json:"input_total"`
	// NetAmount is output minus input: positive payable, negative refundable.
	NetAmount  decimal.Decimal `json:"net_amount"`
	Payable    bool            `json:"payable"`
	Refundable bool            `json:"refundable"`
}

// Calculator performs all tax arithmetic. It is stateless and pure; every
// amount is decimal, never a binary float, so aggregating thousands of small
// transactions cannot drift.
type Calculator struct{}

// NewCalculator creates a tax calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// ComputeVAT splits an amount into net and tax at the given percentage rate.
// Inclusive amounts back the tax out (tax = amount * rate / (100 + rate));
// exclusive amounts add it on top. The tax is rounded half-up to the minor
// currency unit and, for inclusive amounts, net = gross - tax so the pair
// always reconstructs the original gross exactly.
func (c *Calculator) ComputeVAT(amount decimal.Decimal, inclusive bool, rate decimal.Decimal) (VATBreakdown, error) {
	if amount.IsNegative() {
		return VATBreakdown{}, shared.NewDomainError("VALIDATION_ERROR", "VAT amount cannot be negative")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return VATBreakdown{}, shared.NewDomainError("VALIDATION_ERROR", "VAT rate must be between 0 and 100 percent")
	}

	hundred := decimal.NewFromInt(100)
	if inclusive {
		tax := amount.Mul(rate).Div(hundred.Add(rate)).Round(2)
		return VATBreakdown{Net: amount.Sub(tax), Tax: tax}, nil
	}
	tax := amount.Mul(rate).Div(hundred).Round(2)
	return VATBreakdown{Net: amount, Tax: tax}, nil
}

// IncomeTax computes progressive income tax over the given brackets:
// each band taxes the slice of income falling inside it at the band's rate.
func (c *Calculator) IncomeTax(taxableIncome decimal.Decimal, brackets TaxBrackets) (decimal.Decimal, error) {
	if taxableIncome.IsNegative() {
		return decimal.Zero, shared.NewDomainError("VALIDATION_ERROR", "Taxable income cannot be negative")
	}
	if err := brackets.Validate(); err != nil {
		return decimal.Zero, err
	}

	hundred := decimal.NewFromInt(100)
	total := decimal.Zero
	for _, b := range brackets {
		if taxableIncome.LessThanOrEqual(b.Lower) {
			break
		}
		upper := taxableIncome
		if b.Upper != nil && b.Upper.LessThan(taxableIncome) {
			upper = *b.Upper
		}
		slice := upper.Sub(b.Lower)
		total = total.Add(slice.Mul(b.Rate).Div(hundred))
	}
	return total.Round(2), nil
}

// VATReturn nets output VAT collected against input VAT paid for a period
func (c *Calculator) VATReturn(outputTotal, inputTotal decimal.Decimal) VATPosition {
	net := outputTotal.Sub(inputTotal)
	return VATPosition{
		OutputTotal: outputTotal,
		InputTotal:  inputTotal,
		NetAmount:   net,
		Payable:     net.IsPositive(),
		Refundable:  net.IsNegative(),
	}
}

// Levy computes a flat-rate levy on the given base
func (c *Calculator) Levy(base, rate decimal.Decimal) (decimal.Decimal, error) {
	if base.IsNegative() || rate.IsNegative() {
		return decimal.Zero, shared.NewDomainError("VALIDATION_ERROR", "Levy base and rate cannot be negative")
	}
	return base.Mul(rate).Div(decimal.NewFromInt(100)).Round(2), nil
}
