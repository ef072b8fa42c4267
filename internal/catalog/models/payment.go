package models

import (
	"github.com/shopspring/decimal"
)

// ============================================================
// Payment Info
// ============================================================

type PaymentKind string

const (
	PaymentMortgage    PaymentKind = "mortgage"
	PaymentInstallment PaymentKind = "installment"
	PaymentFull        PaymentKind = "full"
)

// PaymentInfo описывает вариант оплаты (ипотека, рассрочка, 100%) для комплекса.
type PaymentInfo struct {
	ID                 int64           `json:"id" yaml:"id"`
	ComplexID          int64           `json:"complex_id" yaml:"-"`
	Kind               PaymentKind     `json:"kind" yaml:"kind"`
	Title              string          `json:"title" yaml:"title"`
	Description        string          `json:"description" yaml:"description"`
	DownPaymentPercent decimal.Decimal `json:"down_payment_percent" yaml:"down_payment_percent"`
	AnnualRatePercent  decimal.Decimal `json:"annual_rate_percent" yaml:"annual_rate_percent"`
	TermMonths         int             `json:"term_months" yaml:"term_months"`
}

// Quote хранит расчёт платежа по конкретной цене.
type Quote struct {
	PaymentInfo
	Price          decimal.Decimal `json:"price"`
	DownPayment    decimal.Decimal `json:"down_payment"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
}

var hundred = decimal.NewFromInt(100)

// DownPayment возвращает первоначальный взнос для цены.
func (p PaymentInfo) DownPayment(price decimal.Decimal) decimal.Decimal {
	return price.Mul(p.DownPaymentPercent).Div(hundred).Round(2)
}

// MonthlyPayment считает ежемесячный платёж.
// Ипотека с процентом считается аннуитетом, рассрочка делится поровну.
func (p PaymentInfo) MonthlyPayment(price decimal.Decimal) decimal.Decimal {
	if p.Kind == PaymentFull || p.TermMonths <= 0 {
		return decimal.Zero
	}

	principal := price.Sub(p.DownPayment(price))
	if principal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	months := decimal.NewFromInt(int64(p.TermMonths))

	if p.Kind == PaymentInstallment || p.AnnualRatePercent.IsZero() {
		return principal.Div(months).Round(2)
	}

	// A = P * r / (1 - (1+r)^-n)
	r := p.AnnualRatePercent.Div(hundred).Div(decimal.NewFromInt(12))
	growth := decimal.NewFromInt(1).Add(r).Pow(months)
	payment := principal.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	return payment.Round(2)
}

// Quote рассчитывает взнос и платёж для цены.
func (p PaymentInfo) Quote(price decimal.Decimal) Quote {
	return Quote{
		PaymentInfo:    p,
		Price:          price,
		DownPayment:    p.DownPayment(price),
		MonthlyPayment: p.MonthlyPayment(price),
	}
}
