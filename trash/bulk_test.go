package trash

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recordbin/domain/ownership"
	"recordbin/domain/record"
	"recordbin/errors"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want ownership.Action
	}{
		{"trash", ownership.ActionTrash},
		{" Restore ", ownership.ActionRestore},
		{"purge", ownership.ActionPurge},
		{"delete", ownership.ActionPurge},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseAction("archive")
	assert.True(t, errors.IsValidation(err))
}

func TestBulk_CountsOnlySuccesses(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	obs := &recordingObserver{}
	e := NewClientEngine(db, Options{Observer: obs})

	a := insertClient(t, db, record.Ptr(owner.ID), "a")
	b := insertClient(t, db, record.Ptr(owner.ID), "b")

	res, err := e.Bulk(ctx, ownership.ActionTrash, []int64{a, b, 999}, owner)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, []int64{a, b}, res.SucceededIDs)
	assert.Equal(t, []int64{999}, res.FailedIDs)
	assert.Equal(t, [][2]int{{2, 1}}, obs.bulk)

	arcA := archiveIDFor(t, db, record.FamilyClient, a)
	arcB := archiveIDFor(t, db, record.FamilyClient, b)

	res, err = e.Bulk(ctx, ownership.ActionRestore, []int64{arcA, 999}, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)

	res, err = e.Bulk(ctx, ownership.ActionPurge, []int64{arcB, arcA}, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount, "restored archive is gone")
	assert.Equal(t, []int64{arcA}, res.FailedIDs)
	assert.Zero(t, archiveCount(t, db))
}

func TestBulk_ForeignIDsFail(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	e := NewInvoiceEngine(db, Options{})

	mine := insertInvoice(t, db, owner.ID, "INV-1")
	theirs := insertInvoice(t, db, stranger.ID, "INV-2")

	res, err := e.Bulk(ctx, ownership.ActionTrash, []int64{mine, theirs}, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, []int64{theirs}, res.FailedIDs)

	live, err := e.GetLive(ctx, theirs, stranger)
	require.NoError(t, err)
	assert.False(t, live.Deleted)
}

func TestBulk_RejectsInvalidRequests(t *testing.T) {
	ctx := context.Background()
	e := NewClientEngine(newTestDB(t), Options{MaxBulkSize: 2})

	_, err := e.Bulk(ctx, ownership.ActionView, []int64{1}, owner)
	assert.True(t, errors.IsValidation(err))

	_, err = e.Bulk(ctx, ownership.ActionTrash, []int64{1, 2, 3}, owner)
	assert.True(t, errors.IsValidation(err))

	res, err := e.Bulk(ctx, ownership.ActionTrash, nil, owner)
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Zero(t, res.SuccessCount)
}
