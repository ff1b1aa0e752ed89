package dialect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind_Postgres(t *testing.T) {
	for _, name := range []string{"postgres", "pgx", "PostgreSQL"} {
		d := New(name)
		got := d.Rebind("SELECT * FROM t WHERE a = ? AND b IN (?, ?)")
		assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)", got, name)
	}
}

func TestRebind_NoChangeForSQLite(t *testing.T) {
	orig := "DELETE FROM t WHERE id = ? AND name = ?"
	assert.Equal(t, orig, New("sqlite").Rebind(orig))
	assert.Equal(t, orig, New("unknown").Rebind(orig))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"record_archives"`, New("sqlite").QuoteIdentifier("record_archives"))
	assert.Equal(t, `"public"."invoices"`, New("pgx").QuoteIdentifier("public.invoices"))
	assert.Equal(t, "invoices", New("").QuoteIdentifier("invoices"))
}

// TestIsUniqueViolation 覆盖两种驱动的真实错误文本
func TestIsUniqueViolation(t *testing.T) {
	sqliteErr := errors.New("constraint failed: UNIQUE constraint failed: record_archives.family, record_archives.original_id (2067)")
	pgErr := errors.New(`ERROR: duplicate key value violates unique constraint "ux_record_archives_family_original" (SQLSTATE 23505)`)

	assert.True(t, New("sqlite").IsUniqueViolation(sqliteErr))
	assert.True(t, New("pgx").IsUniqueViolation(pgErr))
	assert.False(t, New("sqlite").IsUniqueViolation(errors.New("no such table: x")))
	assert.False(t, New("pgx").IsUniqueViolation(nil))
}

func TestAbortsTxOnError(t *testing.T) {
	assert.True(t, New("pgx").AbortsTxOnError())
	assert.False(t, New("sqlite").AbortsTxOnError())
}
