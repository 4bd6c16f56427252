package pms

import "github.com/shopspring/decimal"

var (
	decimalOne     = decimal.NewFromInt(1)
	decimalHundred = decimal.NewFromInt(100)
)

// TaxBreakdown is a gross amount reversed into its components. A component
// is unset when it was not computed, which is distinct from a zero amount.
type TaxBreakdown struct {
	Base decimal.NullDecimal
	Fee  decimal.NullDecimal
	VAT  decimal.NullDecimal
}

// Computed reports whether any rate was available to decompose with.
func (breakdown TaxBreakdown) Computed() bool {
	return breakdown.Base.Valid
}

// Decompose reverses a tax-inclusive gross amount where the fee (EWA) and VAT
// compound on top of the base: gross = base * (1+fee) * (1+vat). Rates are
// percentages. With neither rate every component is unset; a component whose
// own rate is missing is unset too.
func Decompose(gross decimal.Decimal, feeRatePercent decimal.NullDecimal, vatRatePercent decimal.NullDecimal) TaxBreakdown {
	if !feeRatePercent.Valid && !vatRatePercent.Valid {
		return TaxBreakdown{}
	}
	feeRate := percentToRate(feeRatePercent)
	vatRate := percentToRate(vatRatePercent)
	divisor := decimalOne.Add(feeRate).Mul(decimalOne.Add(vatRate))
	base := gross
	if !divisor.IsZero() {
		base = roundMoney(gross.Div(divisor))
	}
	breakdown := TaxBreakdown{Base: decimal.NewNullDecimal(base)}
	fee := decimal.Zero
	if feeRatePercent.Valid {
		fee = roundMoney(base.Mul(feeRate))
		breakdown.Fee = decimal.NewNullDecimal(fee)
	}
	if vatRatePercent.Valid {
		breakdown.VAT = decimal.NewNullDecimal(roundMoney(base.Add(fee).Mul(vatRate)))
	}
	return breakdown
}

func percentToRate(percent decimal.NullDecimal) decimal.Decimal {
	if !percent.Valid {
		return decimal.Zero
	}
	return percent.Decimal.Div(decimalHundred)
}

// roundMoney rounds half to even at two places.
func roundMoney(value decimal.Decimal) decimal.Decimal {
	return value.RoundBank(moneyPlaces)
}
