package store

import (
	"context"
	"fmt"

	core "recordbin/data/db"
	"recordbin/domain/record"
	"recordbin/domain/snapshot"
	"recordbin/domain/totals"
	"recordbin/errors"
	"recordbin/logging"
)

const itemsTable = "invoice_items"

var invoiceMapping = tableMapping[record.Invoice]{
	table: "invoices",
	columns: []string{
		"owner_id", "client_id", "client_name", "client_email", "client_phone", "client_address",
		"business_name", "business_email", "business_phone", "business_address", "business_logo_name",
		"invoice_number", "invoice_date", "due_date", "status",
		"tax_rate", "discount_amount", "subtotal", "tax_amount", "total_amount",
		"notes", "payment_terms", "currency", "template_choice",
		"created_at", "deleted", "deleted_at",
	},
	values: func(inv *record.Invoice) []any {
		return []any{
			inv.OwnerID, inv.ClientID, inv.ClientName, inv.ClientEmail, inv.ClientPhone, inv.ClientAddress,
			inv.BusinessName, inv.BusinessEmail, inv.BusinessPhone, inv.BusinessAddress, inv.BusinessLogoName,
			inv.InvoiceNumber, inv.InvoiceDate.UTC(), utcPtr(inv.DueDate), string(inv.Status),
			inv.TaxRate, inv.DiscountAmount, inv.Subtotal, inv.TaxAmount, inv.TotalAmount,
			inv.Notes, inv.PaymentTerms, inv.Currency, inv.TemplateChoice,
			inv.CreatedAt.UTC(), inv.Deleted, utcPtr(inv.DeletedAt),
		}
	},
	fields: func(inv *record.Invoice) []any {
		return []any{
			&inv.OwnerID, &inv.ClientID, &inv.ClientName, &inv.ClientEmail, &inv.ClientPhone, &inv.ClientAddress,
			&inv.BusinessName, &inv.BusinessEmail, &inv.BusinessPhone, &inv.BusinessAddress, &inv.BusinessLogoName,
			&inv.InvoiceNumber, &inv.InvoiceDate, &inv.DueDate, &inv.Status,
			&inv.TaxRate, &inv.DiscountAmount, &inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount,
			&inv.Notes, &inv.PaymentTerms, &inv.Currency, &inv.TemplateChoice,
			&inv.CreatedAt, &inv.Deleted, &inv.DeletedAt,
		}
	},
	base: func(inv *record.Invoice) *record.Base { return &inv.Base },
}

var itemColumns = []string{"invoice_id", "position", "description", "quantity", "unit_price", "line_total"}

// InvoiceStore 发票存储，读写时连同明细行一起处理
type InvoiceStore struct {
	*LiveStore[record.Invoice]
	logger logging.Logger
}

// NewInvoiceStore 创建发票存储
func NewInvoiceStore(db core.IDatabase) *InvoiceStore {
	return &InvoiceStore{
		LiveStore: newLiveStore(db, invoiceMapping),
		logger:    logging.Named("store.invoice"),
	}
}

// Get 读取发票及其明细行
func (s *InvoiceStore) Get(ctx context.Context, id int64) (*record.Invoice, error) {
	inv, err := s.LiveStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Items, err = s.Items(ctx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

// List 列出未删除的发票，附带明细行
func (s *InvoiceStore) List(ctx context.Context, q record.ListQuery) ([]*record.Invoice, error) {
	invoices, err := s.LiveStore.List(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		if inv.Items, err = s.Items(ctx, inv.ID); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// Insert 插入发票头与 inv.Items
func (s *InvoiceStore) Insert(ctx context.Context, inv *record.Invoice) (int64, error) {
	id, err := s.LiveStore.Insert(ctx, inv)
	if err != nil {
		return 0, err
	}
	if err := s.insertItems(ctx, id, inv.Items); err != nil {
		return 0, err
	}
	return id, nil
}

// HardDelete 删除明细行与发票头
func (s *InvoiceStore) HardDelete(ctx context.Context, id int64) error {
	if _, err := s.sql.DeleteFrom(itemsTable).Where("invoice_id = ?", id).Exec(ctx); err != nil {
		return errors.WrapDatabaseError(ctx, err, "invoice_items.delete")
	}
	return s.LiveStore.HardDelete(ctx, id)
}

// Items 按 position 顺序读取明细行
func (s *InvoiceStore) Items(ctx context.Context, invoiceID int64) ([]record.LineItem, error) {
	rows, err := s.sql.Select(append([]string{"id"}, itemColumns...)...).
		From(itemsTable).
		Where("invoice_id = ?", invoiceID).
		OrderBy("position ASC, id ASC").
		Query(ctx)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "invoice_items.list")
	}
	defer rows.Close()

	items := []record.LineItem{}
	for rows.Next() {
		var it record.LineItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Position, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, errors.WrapDatabaseError(ctx, err, "invoice_items.scan")
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "invoice_items.list")
	}
	return items, nil
}

// ChildCount 发票当前的明细行数
func (s *InvoiceStore) ChildCount(ctx context.Context, invoiceID int64) (int, error) {
	var n int
	err := s.sql.Select("COUNT(*)").From(itemsTable).Where("invoice_id = ?", invoiceID).QueryRow(ctx).Scan(&n)
	if err != nil {
		return 0, errors.WrapDatabaseError(ctx, err, "invoice_items.count")
	}
	return n, nil
}

// RestoreChildren 从载荷恢复明细行，逐条丢弃不合法的行
func (s *InvoiceStore) RestoreChildren(ctx context.Context, inv *record.Invoice, snap snapshot.Invoice) error {
	items, rejected, err := snapshot.SalvageItems(snap.Items)
	for _, r := range rejected {
		s.logger.Warn(ctx, "丢弃无法恢复的明细行",
			logging.Int64("invoice_id", inv.ID), logging.Error(r))
	}
	if err != nil {
		return err
	}
	if err := s.insertItems(ctx, inv.ID, items); err != nil {
		return err
	}
	inv.Items = items
	return nil
}

// Recompute 用当前明细行重新计算汇总并写回
func (s *InvoiceStore) Recompute(ctx context.Context, inv *record.Invoice) error {
	items, err := s.Items(ctx, inv.ID)
	if err != nil {
		return err
	}
	inv.Items = items
	t := totals.Apply(inv)

	_, err = s.sql.Update(invoiceMapping.table).
		Set("subtotal", t.Subtotal).
		Set("tax_amount", t.TaxAmount).
		Set("total_amount", t.Total).
		Where("id = ?", inv.ID).
		Exec(ctx)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "invoices.recompute")
	}
	return nil
}

func (s *InvoiceStore) insertItems(ctx context.Context, invoiceID int64, items []record.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	ins := s.sql.InsertInto(itemsTable).Columns(itemColumns...)
	for i := range items {
		items[i].InvoiceID = invoiceID
		items[i].Position = i
		ins = ins.Values(invoiceID, i, items[i].Description,
			items[i].Quantity, items[i].UnitPrice, items[i].LineTotal)
	}
	if _, err := ins.Exec(ctx); err != nil {
		return errors.WrapDatabaseError(ctx, err, fmt.Sprintf("invoice_items.insert(%d)", len(items)))
	}
	return nil
}
