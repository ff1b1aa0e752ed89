package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordbin/domain/record"
	"recordbin/domain/snapshot"
	"recordbin/errors"
)

func TestClientStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewClientStore(newTestDB(t))

	c := &record.Client{Base: record.Base{OwnerID: record.Ptr(int64(7)), CreatedAt: fixedTime()}, Name: "Bob", City: "Oslo"}
	id, err := s.Insert(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Name)
	require.NotNil(t, got.OwnerID)
	assert.Equal(t, int64(7), *got.OwnerID)
	assert.True(t, got.CreatedAt.Equal(fixedTime()))
	assert.False(t, got.Deleted)
	assert.Nil(t, got.DeletedAt)

	require.NoError(t, s.MarkDeleted(ctx, id, fixedTime()))

	got, err = s.Get(ctx, id)
	require.NoError(t, err, "Get must return soft-deleted rows")
	assert.True(t, got.Deleted)
	require.NotNil(t, got.DeletedAt)

	list, err := s.List(ctx, record.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)

	got.ClearDeleted()
	got.Name = "Robert"
	require.NoError(t, s.Overwrite(ctx, got))

	list, err = s.List(ctx, record.ListQuery{OwnerID: record.Ptr(int64(7))})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Robert", list[0].Name)

	n, err := s.Count(ctx, record.Ptr(int64(8)))
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.HardDelete(ctx, id))
	require.NoError(t, s.HardDelete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.True(t, errors.IsNotFound(err))
}

func TestClientStore_NilOwner(t *testing.T) {
	ctx := context.Background()
	s := NewClientStore(newTestDB(t))

	id, err := s.Insert(ctx, &record.Client{Base: record.Base{CreatedAt: fixedTime()}, Name: "Orphan"})
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.OwnerID)
}

func TestLiveStore_MissingRow(t *testing.T) {
	ctx := context.Background()
	s := NewBusinessProfileStore(newTestDB(t))

	assert.True(t, errors.IsNotFound(s.MarkDeleted(ctx, 404, fixedTime())))
	assert.True(t, errors.IsNotFound(s.Overwrite(ctx, &record.BusinessProfile{Base: record.Base{ID: 404}})))
}

func TestInvoiceStore_ItemsAndTotals(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore(newTestDB(t))

	inv := newInvoice(7, "INV-1")
	id, err := s.Insert(ctx, inv)
	require.NoError(t, err)

	n, err := s.ChildCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Recompute(ctx, inv))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Design", got.Items[0].Description)
	assert.Equal(t, "Build", got.Items[1].Description)
	assert.True(t, got.Subtotal.Equal(dec("70")), got.Subtotal.String())
	assert.True(t, got.TaxAmount.Equal(dec("7")), got.TaxAmount.String())
	assert.True(t, got.TotalAmount.Equal(dec("72")), got.TotalAmount.String())
	assert.Equal(t, record.StatusDraft, got.Status)

	require.NoError(t, s.HardDelete(ctx, id))
	n, err = s.ChildCount(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInvoiceStore_RestoreChildren(t *testing.T) {
	ctx := context.Background()
	s := NewInvoiceStore(newTestDB(t))

	inv := newInvoice(7, "INV-2")
	inv.Items = nil
	_, err := s.Insert(ctx, inv)
	require.NoError(t, err)

	snap := snapshot.Invoice{Items: []snapshot.LineItem{
		{Description: "ok", Quantity: dec("1"), UnitPrice: dec("5"), LineTotal: dec("5")},
		{Description: "bad", Quantity: dec("-1"), UnitPrice: dec("5"), LineTotal: dec("-5")},
	}}
	require.NoError(t, s.RestoreChildren(ctx, inv, snap))

	items, err := s.Items(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ok", items[0].Description)

	allBad := snapshot.Invoice{Items: []snapshot.LineItem{{Quantity: dec("-1")}}}
	err = s.RestoreChildren(ctx, inv, allBad)
	assert.True(t, errors.IsValidation(err))
}
