package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is one row of the payments module. The exporter only ever reads
// payments and, after a successful delivery, sets DatePaid.
type Payment struct {
	ID               int64           `json:"id" gorm:"primaryKey"`
	PaymentSummaryID int64           `json:"paymentSummaryId"`
	PaymentDate      *time.Time      `json:"paymentDate"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:numeric(16,2)"`
	InvoiceNumber    *string         `json:"invoiceNumber"`
	FundCodeID       *int64          `json:"fundCodeId"`
	CostCenterID     *int64          `json:"costCenterId"`
	OkToPay          bool            `json:"okToPay"`
	DatePaid         *time.Time      `json:"datePaid"`
}

func (Payment) TableName() string { return "payment" }

// PaymentSummary ties a group of payments to its accession.
type PaymentSummary struct {
	ID              int64  `json:"id" gorm:"primaryKey"`
	AccessionID     int64  `json:"accessionId"`
	SpendCategoryID *int64 `json:"spendCategoryId"`
}

func (PaymentSummary) TableName() string { return "payment_summary" }

// PendingPayment is a payment selected for the current round, with its coded
// attributes already resolved to enumeration values. VendorCode is assigned
// while the round runs and is never persisted.
type PendingPayment struct {
	AccessionID   int64
	PaymentID     int64
	PaymentDate   time.Time
	Amount        decimal.Decimal
	InvoiceNumber string
	FundCode      string
	CostCenter    string
	SpendCategory string
	VendorCode    string
}

// CompositeFundCode derives the accounting-system fund code: the fund code,
// the last character of the cost center and the last three characters of the
// spend category, with anything non-alphanumeric dropped.
func (p *PendingPayment) CompositeFundCode() string {
	var b strings.Builder
	b.WriteString(p.FundCode)

	if p.CostCenter != "" {
		runes := []rune(p.CostCenter)
		b.WriteRune(runes[len(runes)-1])
	}

	if p.SpendCategory != "" {
		runes := []rune(p.SpendCategory)
		if len(runes) > 3 {
			runes = runes[len(runes)-3:]
		}
		b.WriteString(string(runes))
	}

	var out strings.Builder
	for _, r := range b.String() {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out.WriteRune(r)
		}
	}

	return out.String()
}

// String is the form used in diagnostic report lines.
func (p *PendingPayment) String() string {
	return fmt.Sprintf("payment %d (accession %d, invoice %q, amount %s, date %s)",
		p.PaymentID, p.AccessionID, p.InvoiceNumber,
		p.Amount.StringFixed(2), p.PaymentDate.Format("2006-01-02"))
}
