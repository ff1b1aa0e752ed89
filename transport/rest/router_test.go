package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
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
	"recordbin/errors"
	"recordbin/logging"
	"recordbin/metrics"
	"recordbin/store"
	"recordbin/trash"
)

type fixture struct {
	db      *basic.DB
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := basic.New(core.DBConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db.SQL(), "sqlite"))

	opts := trash.Options{Logger: logging.NewNoopLogger()}
	h := NewRouter(Config{
		BusinessProfiles: trash.NewBusinessProfileEngine(db, opts),
		Clients:          trash.NewClientEngine(db, opts),
		Invoices:         trash.NewInvoiceEngine(db, opts),
		Metrics:          metrics.New(),
		Logger:           logging.NewNoopLogger(),
		Ping:             db.SQL().PingContext,
	})
	return &fixture{db: db, handler: h}
}

func (f *fixture) do(t *testing.T, method, path string, actorID int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actorID > 0 {
		req.Header.Set(HeaderActorID, fmt.Sprint(actorID))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) insertClient(t *testing.T, ownerID int64, name string) int64 {
	t.Helper()
	id, err := store.NewClientStore(f.db).Insert(context.Background(), &record.Client{
		Base:  record.Base{OwnerID: record.Ptr(ownerID), CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		Name:  name,
		Email: "ap@" + strings.ToLower(name) + ".test",
	})
	require.NoError(t, err)
	return id
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/metrics", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recordbin_http_requests_total")
}

func TestMissingActor(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/clients", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, errors.ErrCodeUnauthorized, decode[errorBody](t, rec).Code)
}

func TestClientLifecycle(t *testing.T) {
	f := newFixture(t)
	id := f.insertClient(t, 1, "Acme")

	rec := f.do(t, http.MethodGet, "/api/v1/clients", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listResponse[record.Client]](t, rec).Items, 1)

	rec = f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/clients/%d", id), 1, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/clients/%d", id), 1, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/clients/trash?q=acm", 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[trashPageResponse](t, rec)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 10, page.PageSize)
	archiveID := page.Items[0].ArchiveID

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/clients/trash/%d", archiveID), 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[map[string]any](t, rec)
	assert.Equal(t, "archived", view["status"])
	assert.Equal(t, "Acme", view["payload"].(map[string]any)["name"])

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/clients/resolve/%d", id), 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "archived", decode[map[string]any](t, rec)["status"])

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/clients/trash/%d/restore", archiveID), 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode[restoreResponse](t, rec).ID)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/clients/resolve/%d", id), 1, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "live", decode[map[string]any](t, rec)["status"])

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/clients/trash/%d", archiveID), 1, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	id := f.insertClient(t, 1, "Acme")

	rec := f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/clients/%d", id), 2, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/clients/%d", id), 1, nil).Code)

	rec = f.do(t, http.MethodGet, "/api/v1/clients/trash", 2, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[trashPageResponse](t, rec).Items)
}

func TestPurge(t *testing.T) {
	f := newFixture(t)
	id := f.insertClient(t, 1, "Acme")
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/clients/%d", id), 1, nil).Code)

	page := decode[trashPageResponse](t, f.do(t, http.MethodGet, "/api/v1/clients/trash", 1, nil))
	require.Len(t, page.Items, 1)
	path := fmt.Sprintf("/api/v1/clients/trash/%d", page.Items[0].ArchiveID)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, path, 1, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, path, 1, nil).Code)
}

func TestBulk(t *testing.T) {
	f := newFixture(t)
	a := f.insertClient(t, 1, "A")
	b := f.insertClient(t, 1, "B")

	rec := f.do(t, http.MethodPost, "/api/v1/clients/bulk", 1, map[string]any{"action": "trash", "ids": []int64{a, b, 999}})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[trash.BulkResult](t, rec)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, []int64{999}, res.FailedIDs)
}

func TestBulk_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"非法 JSON", "{", http.StatusBadRequest},
		{"未知字段", `{"action":"trash","ids":[1],"force":true}`, http.StatusBadRequest},
		{"未知动作", map[string]any{"action": "shred", "ids": []int64{1}}, http.StatusUnprocessableEntity},
		{"空 ids", map[string]any{"action": "trash", "ids": []int64{}}, http.StatusUnprocessableEntity},
		{"非正 id", map[string]any{"action": "trash", "ids": []int64{0}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/clients/bulk", 1, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestInvalidPathID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/invoices/abc", 1, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeInvalidInput, decode[errorBody](t, rec).Code)
}

func TestInvoicePreview(t *testing.T) {
	f := newFixture(t)
	draft := `{
		"invoice_number": "INV-9",
		"client_name": "Acme",
		"tax_rate": "10",
		"discount_amount": "5",
		"items": [
			{"description": "Design", "quantity": "2", "unit_price": "10"},
			{"description": "Build", "quantity": 1, "unit_price": 50}
		]
	}`
	rec := f.do(t, http.MethodPost, "/api/v1/invoices/preview", 1, draft)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view struct {
		Status  string `json:"status"`
		Label   string `json:"label"`
		Payload struct {
			Subtotal    decimal.Decimal `json:"subtotal"`
			TaxAmount   decimal.Decimal `json:"tax_amount"`
			TotalAmount decimal.Decimal `json:"total_amount"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "preview", view.Status)
	assert.True(t, view.Payload.Subtotal.Equal(decimal.NewFromInt(70)), view.Payload.Subtotal.String())
	assert.True(t, view.Payload.TaxAmount.Equal(decimal.NewFromInt(7)))
	assert.True(t, view.Payload.TotalAmount.Equal(decimal.NewFromInt(72)))
}
