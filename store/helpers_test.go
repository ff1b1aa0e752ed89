package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "recordbin/data/db"
	"recordbin/data/db/basic"
	"recordbin/data/db/migrations"
	"recordbin/domain/record"
)

func newTestDB(t *testing.T) *basic.DB {
	t.Helper()
	db, err := basic.New(core.DBConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db.SQL(), "sqlite"))
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixedTime() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func newInvoice(owner int64, number string) *record.Invoice {
	return &record.Invoice{
		Base:           record.Base{OwnerID: record.Ptr(owner), CreatedAt: fixedTime()},
		ClientName:     "Acme",
		InvoiceNumber:  number,
		InvoiceDate:    fixedTime(),
		Status:         record.StatusDraft,
		TaxRate:        dec("10"),
		DiscountAmount: dec("5"),
		Currency:       "USD",
		Items: []record.LineItem{
			{Description: "Design", Quantity: dec("2"), UnitPrice: dec("10"), LineTotal: dec("20")},
			{Description: "Build", Quantity: dec("1"), UnitPrice: dec("50"), LineTotal: dec("50")},
		},
	}
}
