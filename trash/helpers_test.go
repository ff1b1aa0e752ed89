package trash

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "recordbin/data/db"
	"recordbin/data/db/basic"
	"recordbin/data/db/migrations"
	"recordbin/domain/record"
	"recordbin/events"
	"recordbin/store"
)

var (
	owner    = record.Actor{ID: 1}
	stranger = record.Actor{ID: 2}
	admin    = record.Actor{ID: 99, Elevated: true}
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

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

func fixedTime() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC) }
}

func insertClient(t *testing.T, db core.IDatabase, ownerID *int64, name string) int64 {
	t.Helper()
	id, err := store.NewClientStore(db).Insert(context.Background(), &record.Client{
		Base:  record.Base{OwnerID: ownerID, CreatedAt: fixedTime()},
		Name:  name,
		Email: "billing@" + name + ".test",
		City:  "Lisbon",
	})
	require.NoError(t, err)
	return id
}

func insertProfile(t *testing.T, db core.IDatabase, ownerID int64, name string) int64 {
	t.Helper()
	id, err := store.NewBusinessProfileStore(db).Insert(context.Background(), &record.BusinessProfile{
		Base:         record.Base{OwnerID: record.Ptr(ownerID), CreatedAt: fixedTime()},
		BusinessName: name,
		Country:      "PT",
	})
	require.NoError(t, err)
	return id
}

// insertInvoice 两行明细 20 + 50，税率 10%，折扣 5
func insertInvoice(t *testing.T, db core.IDatabase, ownerID int64, number string) int64 {
	t.Helper()
	inv := &record.Invoice{
		Base:           record.Base{OwnerID: record.Ptr(ownerID), CreatedAt: fixedTime()},
		ClientName:     "Acme",
		InvoiceNumber:  number,
		InvoiceDate:    fixedTime(),
		Status:         record.StatusSent,
		TaxRate:        dec("10"),
		DiscountAmount: dec("5"),
		Currency:       "EUR",
		TemplateChoice: "2",
		Items: []record.LineItem{
			{Description: "Design", Quantity: dec("2"), UnitPrice: dec("10"), LineTotal: dec("20")},
			{Description: "Build", Quantity: dec("1"), UnitPrice: dec("50"), LineTotal: dec("50")},
		},
	}
	s := store.NewInvoiceStore(db)
	id, err := s.Insert(context.Background(), inv)
	require.NoError(t, err)
	require.NoError(t, s.Recompute(context.Background(), inv))
	return id
}

func archiveCount(t *testing.T, db *basic.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.SQL().QueryRow("SELECT COUNT(*) FROM record_archives").Scan(&n))
	return n
}

func archiveIDFor(t *testing.T, db core.IDatabase, family record.Family, originalID int64) int64 {
	t.Helper()
	arc, err := store.NewArchiveStore(db).FetchByOriginal(context.Background(), family, originalID)
	require.NoError(t, err)
	return arc.ID
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Kind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

type observation struct {
	family, action string
	err            error
}

type recordingObserver struct {
	ops  []observation
	bulk [][2]int
}

func (o *recordingObserver) ObserveOperation(family, action string, err error, _ time.Duration) {
	o.ops = append(o.ops, observation{family: family, action: action, err: err})
}

func (o *recordingObserver) ObserveBulk(_, _ string, succeeded, failed int) {
	o.bulk = append(o.bulk, [2]int{succeeded, failed})
}
