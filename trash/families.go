package trash

import (
	"context"

	core "recordbin/data/db"
	"recordbin/domain/ownership"
	"recordbin/domain/record"
	"recordbin/domain/snapshot"
	"recordbin/store"
)

// Operations 与记录类型无关的引擎操作，供 CLI 等按记录族分发的调用方使用
type Operations interface {
	Kind() record.Family
	Trash(ctx context.Context, id int64, actor record.Actor) error
	Restore(ctx context.Context, archiveID int64, actor record.Actor) (int64, error)
	Purge(ctx context.Context, archiveID int64, actor record.Actor) error
	Bulk(ctx context.Context, action ownership.Action, ids []int64, actor record.Actor) (BulkResult, error)
	ListTrash(ctx context.Context, actor record.Actor, q snapshot.TrashQuery) (snapshot.Page, error)
	Resolve(ctx context.Context, id int64, actor record.Actor) (RecordView, error)
}

var (
	_ Operations = (*Engine[record.BusinessProfile, snapshot.BusinessProfile])(nil)
	_ Operations = (*Engine[record.Client, snapshot.Client])(nil)
	_ Operations = (*Engine[record.Invoice, snapshot.Invoice])(nil)
)

// BusinessProfiles 商户资料
type BusinessProfiles struct{}

func (BusinessProfiles) Kind() record.Family { return record.FamilyBusinessProfile }

func (BusinessProfiles) Base(p *record.BusinessProfile) *record.Base { return &p.Base }

func (BusinessProfiles) ToSnapshot(p *record.BusinessProfile) snapshot.BusinessProfile {
	return snapshot.FromBusinessProfile(p)
}

func (BusinessProfiles) FromSnapshot(s snapshot.BusinessProfile, p *record.BusinessProfile) error {
	return s.ApplyTo(p)
}

func (BusinessProfiles) Meta(s snapshot.BusinessProfile) snapshot.Meta { return s.Meta() }

func (BusinessProfiles) Preview(s snapshot.BusinessProfile) snapshot.BusinessProfile { return s }

// Clients 客户
type Clients struct{}

func (Clients) Kind() record.Family { return record.FamilyClient }

func (Clients) Base(c *record.Client) *record.Base { return &c.Base }

func (Clients) ToSnapshot(c *record.Client) snapshot.Client { return snapshot.FromClient(c) }

func (Clients) FromSnapshot(s snapshot.Client, c *record.Client) error { return s.ApplyTo(c) }

func (Clients) Meta(s snapshot.Client) snapshot.Meta { return s.Meta() }

func (Clients) Preview(s snapshot.Client) snapshot.Client { return s }

// Invoices 发票，预览时按草稿明细重新计算汇总
type Invoices struct{}

func (Invoices) Kind() record.Family { return record.FamilyInvoice }

func (Invoices) Base(inv *record.Invoice) *record.Base { return &inv.Base }

func (Invoices) ToSnapshot(inv *record.Invoice) snapshot.Invoice { return snapshot.FromInvoice(inv) }

func (Invoices) FromSnapshot(s snapshot.Invoice, inv *record.Invoice) error { return s.ApplyTo(inv) }

func (Invoices) Meta(s snapshot.Invoice) snapshot.Meta { return s.Meta() }

func (Invoices) Preview(s snapshot.Invoice) snapshot.Invoice { return s.Preview() }

// NewBusinessProfileEngine 基于 SQL 存储的商户资料引擎
func NewBusinessProfileEngine(db core.IDatabase, opts Options) *Engine[record.BusinessProfile, snapshot.BusinessProfile] {
	return New[record.BusinessProfile, snapshot.BusinessProfile](db, BusinessProfiles{},
		func(h core.IDatabase) Stores[record.BusinessProfile, snapshot.BusinessProfile] {
			return Stores[record.BusinessProfile, snapshot.BusinessProfile]{
				Live:     store.NewBusinessProfileStore(h),
				Archives: store.NewArchiveStore(h),
			}
		}, opts)
}

// NewClientEngine 基于 SQL 存储的客户引擎
func NewClientEngine(db core.IDatabase, opts Options) *Engine[record.Client, snapshot.Client] {
	return New[record.Client, snapshot.Client](db, Clients{},
		func(h core.IDatabase) Stores[record.Client, snapshot.Client] {
			return Stores[record.Client, snapshot.Client]{
				Live:     store.NewClientStore(h),
				Archives: store.NewArchiveStore(h),
			}
		}, opts)
}

// NewInvoiceEngine 基于 SQL 存储的发票引擎，明细行作为子行处理
func NewInvoiceEngine(db core.IDatabase, opts Options) *Engine[record.Invoice, snapshot.Invoice] {
	return New[record.Invoice, snapshot.Invoice](db, Invoices{},
		func(h core.IDatabase) Stores[record.Invoice, snapshot.Invoice] {
			invoices := store.NewInvoiceStore(h)
			return Stores[record.Invoice, snapshot.Invoice]{
				Live:     invoices,
				Children: invoices,
				Archives: store.NewArchiveStore(h),
			}
		}, opts)
}
