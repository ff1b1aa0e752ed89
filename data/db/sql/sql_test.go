package sql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	core "recordbin/data/db"
	"recordbin/data/db/basic"
)

func newTestDB(t *testing.T) *basic.DB {
	t.Helper()
	db, err := basic.New(core.DBConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(context.Background(), `CREATE TABLE kv (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		family TEXT NOT NULL,
		original_id INTEGER,
		label TEXT NOT NULL DEFAULT ''
	)`)
	require.NoError(t, err)
	_, err = db.Exec(context.Background(), `CREATE UNIQUE INDEX ux_kv ON kv(family, original_id)`)
	require.NoError(t, err)
	return db
}

func TestSelectBuild(t *testing.T) {
	s := New(basic.NewFromSQL(nil, "pgx"))
	q, args := s.Select("id", "label").From("kv").
		Where("family = ?", "invoice").
		Or("label LIKE ?", "%x%").
		OrderBy("id DESC").Limit(10).Offset(20).ForUpdate().Build()

	assert.Equal(t, "SELECT id, label FROM kv WHERE (family = ? OR label LIKE ?) ORDER BY id DESC LIMIT ? OFFSET ? FOR UPDATE", q)
	assert.Equal(t, []any{"invoice", "%x%", 10, 20}, args)
}

func TestInsertBuild_Returning(t *testing.T) {
	s := New(basic.NewFromSQL(nil, "sqlite"))
	q, args := s.InsertInto("kv").Columns("family", "label").Values("client", "a").Returning("id").Build()

	assert.Equal(t, `INSERT INTO "kv" ("family", "label") VALUES (?, ?) RETURNING "id"`, q)
	assert.Equal(t, []any{"client", "a"}, args)
}

// TestUpdateBuild_SetMapSorted SetMap 的列顺序稳定
func TestUpdateBuild_SetMapSorted(t *testing.T) {
	s := New(basic.NewFromSQL(nil, "sqlite"))
	q, args := s.Update("kv").SetMap(map[string]any{"label": "b", "family": "f"}).Where("id = ?", 1).Build()

	assert.Equal(t, `UPDATE "kv" SET "family" = ?, "label" = ? WHERE id = ?`, q)
	assert.Equal(t, []any{"f", "b", 1}, args)
}

func TestDeleteBuild_RequiresWhere(t *testing.T) {
	s := New(basic.NewFromSQL(nil, "sqlite"))
	assert.Panics(t, func() { s.DeleteFrom("kv").Build() })
	assert.Panics(t, func() { s.Select().From("kv; DROP TABLE kv").Build() })
}

// TestUpsert_FallbackToUpdate 第二次写入同键时走 UPDATE 分支
func TestUpsert_FallbackToUpdate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := New(db)

	res, err := s.UpsertInto("kv").Columns("family", "original_id", "label").
		Values("invoice", 7, "first").Key("family", "original_id").Exec(ctx)
	require.NoError(t, err)
	assert.True(t, res.Inserted)

	res, err = s.UpsertInto("kv").Columns("family", "original_id", "label").
		Values("invoice", 7, "second").Key("family", "original_id").Exec(ctx)
	require.NoError(t, err)
	assert.False(t, res.Inserted)
	assert.Equal(t, int64(1), res.RowsAffected)

	var count int
	require.NoError(t, db.QueryRow(ctx, "SELECT COUNT(*) FROM kv").Scan(&count))
	assert.Equal(t, 1, count)

	var label string
	require.NoError(t, s.Select("label").From("kv").Where("original_id = ?", 7).QueryRow(ctx).Scan(&label))
	assert.Equal(t, "second", label)
}

// TestUpsert_InsideTransaction 事务内冲突后事务仍可提交
func TestUpsert_InsideTransaction(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := New(db).InsertInto("kv").Columns("family", "original_id", "label").Values("client", 1, "old").Exec(ctx)
	require.NoError(t, err)

	err = core.InTx(ctx, db, func(tx core.IDatabase) error {
		_, err := New(tx).UpsertInto("kv").Columns("family", "original_id", "label").
			Values("client", 1, "new").Key("family", "original_id").Exec(ctx)
		return err
	})
	require.NoError(t, err)

	var label string
	require.NoError(t, db.QueryRow(ctx, "SELECT label FROM kv WHERE original_id = ?", 1).Scan(&label))
	assert.Equal(t, "new", label)
}

func TestUpsert_MissingKey(t *testing.T) {
	db := newTestDB(t)
	_, err := New(db).UpsertInto("kv").Columns("family").Values("x").Exec(context.Background())
	assert.Error(t, err)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, EscapeLike(`50%_off\`))
}
