package record

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus 发票状态
type InvoiceStatus string

const (
	StatusDraft   InvoiceStatus = "draft"
	StatusSent    InvoiceStatus = "sent"
	StatusPaid    InvoiceStatus = "paid"
	StatusOverdue InvoiceStatus = "overdue"
)

// 未指定时使用的默认值
const (
	DefaultCurrency = "USD"
	DefaultTemplate = "1"
)

// Valid 是否为已知状态
func (s InvoiceStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

// Invoice 发票
//
// Client*/Business* 字段是开票时的快照副本，客户或商户资料之后的修改不影响已开发票。
// Subtotal/TaxAmount/TotalAmount 由 totals 包根据明细计算，不接受外部输入。
type Invoice struct {
	Base
	ClientID *int64 `json:"client_id,omitempty"`

	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientPhone   string `json:"client_phone"`
	ClientAddress string `json:"client_address"`

	BusinessName     string `json:"business_name"`
	BusinessEmail    string `json:"business_email"`
	BusinessPhone    string `json:"business_phone"`
	BusinessAddress  string `json:"business_address"`
	BusinessLogoName string `json:"business_logo_name,omitempty"`

	InvoiceNumber string        `json:"invoice_number"`
	InvoiceDate   time.Time     `json:"invoice_date"`
	DueDate       *time.Time    `json:"due_date,omitempty"`
	Status        InvoiceStatus `json:"status"`

	TaxRate        decimal.Decimal `json:"tax_rate"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	Notes          string `json:"notes"`
	PaymentTerms   string `json:"payment_terms"`
	Currency       string `json:"currency"`
	TemplateChoice string `json:"template_choice"`

	Items []LineItem `json:"items"`
}

// LineItem 发票明细行，Position 决定展示顺序
type LineItem struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// ApplyDefaults 补齐状态、币种与模板默认值
func (inv *Invoice) ApplyDefaults() {
	if !inv.Status.Valid() {
		inv.Status = StatusDraft
	}
	if inv.Currency == "" {
		inv.Currency = DefaultCurrency
	}
	if inv.TemplateChoice == "" {
		inv.TemplateChoice = DefaultTemplate
	}
}
