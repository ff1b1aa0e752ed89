package snapshot

import (
	"fmt"
	"strings"
	"time"

	"recordbin/domain/record"
	"recordbin/domain/totals"
	"recordbin/errors"
	"recordbin/validation"
)

const dateLayout = "2006-01-02"

func header(b record.Base) Header {
	id := b.ID
	return Header{
		OriginalID: &id,
		OwnerID:    copyID(b.OwnerID),
		CreatedAt:  formatTime(b.CreatedAt),
	}
}

// FromBusinessProfile 从在线记录生成载荷
func FromBusinessProfile(p *record.BusinessProfile) BusinessProfile {
	return BusinessProfile{
		Header:       header(p.Base),
		BusinessName: p.BusinessName,
		LogoName:     p.LogoName,
		Address:      p.Address,
		City:         p.City,
		State:        p.State,
		ZipCode:      p.ZipCode,
		Country:      p.Country,
		Email:        p.Email,
		Phone:        p.Phone,
	}
}

// ApplyTo 把载荷字段写回在线记录，不修改 ID 与删除标记
func (s BusinessProfile) ApplyTo(p *record.BusinessProfile) error {
	created, err := parseTime(s.CreatedAt)
	if err != nil {
		return err
	}
	p.OwnerID = copyID(s.OwnerID)
	p.CreatedAt = created
	p.BusinessName = s.BusinessName
	p.LogoName = s.LogoName
	p.Address = s.Address
	p.City = s.City
	p.State = s.State
	p.ZipCode = s.ZipCode
	p.Country = s.Country
	p.Email = s.Email
	p.Phone = s.Phone
	return nil
}

// Meta 实现归档元数据
func (s BusinessProfile) Meta() Meta {
	return Meta{Label: s.BusinessName, Detail: joinNonEmpty(s.Email, s.City, s.Country)}
}

// FromClient 从在线记录生成载荷
func FromClient(c *record.Client) Client {
	return Client{
		Header:  header(c.Base),
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		Street:  c.Street,
		City:    c.City,
		State:   c.State,
		ZipCode: c.ZipCode,
		Country: c.Country,
	}
}

// ApplyTo 把载荷字段写回在线记录
func (s Client) ApplyTo(c *record.Client) error {
	created, err := parseTime(s.CreatedAt)
	if err != nil {
		return err
	}
	c.OwnerID = copyID(s.OwnerID)
	c.CreatedAt = created
	c.Name = s.Name
	c.Email = s.Email
	c.Phone = s.Phone
	c.Address = s.Address
	c.Street = s.Street
	c.City = s.City
	c.State = s.State
	c.ZipCode = s.ZipCode
	c.Country = s.Country
	return nil
}

func (s Client) Meta() Meta {
	return Meta{Label: s.Name, Detail: joinNonEmpty(s.Email, s.Phone, s.City)}
}

// FromInvoice 从在线发票生成载荷，明细行保留存储的 LineTotal
func FromInvoice(inv *record.Invoice) Invoice {
	items := make([]LineItem, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}

	s := Invoice{
		Header:           header(inv.Base),
		ClientID:         copyID(inv.ClientID),
		ClientName:       inv.ClientName,
		ClientEmail:      inv.ClientEmail,
		ClientPhone:      inv.ClientPhone,
		ClientAddress:    inv.ClientAddress,
		BusinessName:     inv.BusinessName,
		BusinessEmail:    inv.BusinessEmail,
		BusinessPhone:    inv.BusinessPhone,
		BusinessAddress:  inv.BusinessAddress,
		BusinessLogoName: inv.BusinessLogoName,
		InvoiceNumber:    inv.InvoiceNumber,
		InvoiceDate:      formatTime(inv.InvoiceDate),
		Status:           string(inv.Status),
		TaxRate:          inv.TaxRate,
		DiscountAmount:   inv.DiscountAmount,
		Subtotal:         inv.Subtotal,
		TaxAmount:        inv.TaxAmount,
		TotalAmount:      inv.TotalAmount,
		Notes:            inv.Notes,
		PaymentTerms:     inv.PaymentTerms,
		Currency:         inv.Currency,
		TemplateChoice:   inv.TemplateChoice,
		Items:            items,
	}
	if inv.DueDate != nil {
		s.DueDate = formatTime(*inv.DueDate)
	}
	return s
}

// ApplyTo 把载荷字段写回发票头，不处理明细行（明细由 SalvageItems 单独恢复）
func (s Invoice) ApplyTo(inv *record.Invoice) error {
	created, err := parseTime(s.CreatedAt)
	if err != nil {
		return err
	}
	invoiceDate, err := parseTime(s.InvoiceDate)
	if err != nil {
		return err
	}
	var due *time.Time
	if s.DueDate != "" {
		d, err := parseTime(s.DueDate)
		if err != nil {
			return err
		}
		due = &d
	}

	inv.OwnerID = copyID(s.OwnerID)
	inv.CreatedAt = created
	inv.ClientID = copyID(s.ClientID)
	inv.ClientName = s.ClientName
	inv.ClientEmail = s.ClientEmail
	inv.ClientPhone = s.ClientPhone
	inv.ClientAddress = s.ClientAddress
	inv.BusinessName = s.BusinessName
	inv.BusinessEmail = s.BusinessEmail
	inv.BusinessPhone = s.BusinessPhone
	inv.BusinessAddress = s.BusinessAddress
	inv.BusinessLogoName = s.BusinessLogoName
	inv.InvoiceNumber = s.InvoiceNumber
	inv.InvoiceDate = invoiceDate
	inv.DueDate = due
	inv.Status = record.InvoiceStatus(s.Status)
	inv.TaxRate = s.TaxRate
	inv.DiscountAmount = s.DiscountAmount
	inv.Subtotal = s.Subtotal
	inv.TaxAmount = s.TaxAmount
	inv.TotalAmount = s.TotalAmount
	inv.Notes = s.Notes
	inv.PaymentTerms = s.PaymentTerms
	inv.Currency = s.Currency
	inv.TemplateChoice = s.TemplateChoice
	inv.ApplyDefaults()
	return nil
}

func (s Invoice) Meta() Meta {
	label := s.InvoiceNumber
	if label == "" {
		label = s.ClientName
	}
	return Meta{Label: label, Detail: joinNonEmpty(s.ClientName, s.ClientEmail, s.BusinessName)}
}

// Preview 基于草稿明细重新计算汇总，返回新载荷
func (s Invoice) Preview() Invoice {
	s.Items = append([]LineItem(nil), s.Items...)
	items := make([]record.LineItem, 0, len(s.Items))
	for i := range s.Items {
		if s.Items[i].LineTotal.IsZero() {
			s.Items[i].LineTotal = totals.LineTotal(s.Items[i].Quantity, s.Items[i].UnitPrice)
		}
		items = append(items, record.LineItem{LineTotal: s.Items[i].LineTotal})
	}
	t := totals.Recompute(items, s.TaxRate, s.DiscountAmount)
	s.Subtotal = t.Subtotal
	s.TaxAmount = t.TaxAmount
	s.TotalAmount = t.Total
	return s
}

// SalvageItems 把载荷明细转换为在线明细行，逐条校验并丢弃不合法的行。
//
// 返回值 rejected 记录每条被丢弃行的原因。只有载荷至少包含一行且全部被丢弃时才返回错误；
// 空载荷返回空切片。
func SalvageItems(items []LineItem) (salvaged []record.LineItem, rejected []error, err error) {
	salvaged = make([]record.LineItem, 0, len(items))
	for i, it := range items {
		if vErr := validation.Struct(it); vErr != nil {
			rejected = append(rejected, fmt.Errorf("item %d: %w", i, vErr))
			continue
		}
		salvaged = append(salvaged, record.LineItem{
			Position:    len(salvaged),
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	if len(items) > 0 && len(salvaged) == 0 {
		return nil, rejected, errors.NewValidationError(
			fmt.Sprintf("no salvageable line items: all %d items were rejected", len(items)))
	}
	return salvaged, rejected, nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime 接受 RFC3339 或纯日期，空串返回零值
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.NewValidationError(fmt.Sprintf("invalid snapshot time %q", s))
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " · ")
}
