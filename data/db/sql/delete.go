package sql

import (
	"context"
	"database/sql"
	"strings"

	core "recordbin/data/db"
	"recordbin/data/db/dialect"
)

type deleteBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table string
	where []string
	args  []any
}

func (b *deleteBuilder) Where(cond string, args ...any) IDeleteBuilder {
	if cond != "" {
		b.where = append(b.where, cond)
		b.args = append(b.args, args...)
	}
	return b
}

// Build 不允许无条件删除
func (b *deleteBuilder) Build() (string, []any) {
	if !isSafeIdentifier(b.table) {
		panic("deleteBuilder: unsafe table name " + b.table)
	}
	if len(b.where) == 0 {
		panic("deleteBuilder: refusing DELETE without WHERE on " + b.table)
	}

	var sb strings.Builder
	args := make([]any, len(b.args))
	copy(args, b.args)

	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.dialect.QuoteIdentifier(b.table))
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(b.where, " AND "))

	return sb.String(), args
}

func (b *deleteBuilder) Exec(ctx context.Context) (sql.Result, error) {
	q, args := b.Build()
	return b.db.Exec(ctx, q, args...)
}
