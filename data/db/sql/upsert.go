package sql

import (
	"context"
	"fmt"
	"strings"

	core "recordbin/data/db"
	"recordbin/data/db/dialect"
)

const upsertSavepoint = "recordbin_upsert"

type upsertBuilder struct {
	db      core.IDatabase
	dialect dialect.Dialect

	table      string
	columns    []string
	values     []any
	keyColumns []string
}

func (b *upsertBuilder) Columns(cols ...string) IUpsertBuilder {
	b.columns = cols
	return b
}

func (b *upsertBuilder) Values(vals ...any) IUpsertBuilder {
	b.values = vals
	return b
}

func (b *upsertBuilder) Key(cols ...string) IUpsertBuilder {
	b.keyColumns = cols
	return b
}

// Exec 先尝试 INSERT；唯一键冲突说明并发写入方已插入同键记录，
// 此时改为按 Key 列 UPDATE 其余列，冲突本身不返回给调用方。
//
// 在事务内且方言会因语句失败中止事务（Postgres）时，INSERT 包在 SAVEPOINT 中，
// 冲突后回滚到保存点再执行 UPDATE。
func (b *upsertBuilder) Exec(ctx context.Context) (UpsertResult, error) {
	if len(b.columns) == 0 {
		return UpsertResult{}, fmt.Errorf("upsert: Columns is required")
	}
	if len(b.values) != len(b.columns) {
		return UpsertResult{}, fmt.Errorf("upsert: values length mismatch columns length")
	}
	if len(b.keyColumns) == 0 {
		return UpsertResult{}, fmt.Errorf("upsert: Key is required")
	}

	_, inTx := b.db.(core.ITransaction)
	useSavepoint := inTx && b.dialect.AbortsTxOnError()

	ins := &insertBuilder{
		db:      b.db,
		dialect: b.dialect,
		table:   b.table,
		columns: b.columns,
		rows:    [][]any{b.values},
	}

	if useSavepoint {
		if _, err := b.db.Exec(ctx, "SAVEPOINT "+upsertSavepoint); err != nil {
			return UpsertResult{}, err
		}
	}

	res, err := ins.Exec(ctx)
	if err == nil {
		if useSavepoint {
			if _, relErr := b.db.Exec(ctx, "RELEASE SAVEPOINT "+upsertSavepoint); relErr != nil {
				return UpsertResult{}, relErr
			}
		}
		n, _ := res.RowsAffected()
		return UpsertResult{Inserted: true, RowsAffected: n}, nil
	}

	if !b.dialect.IsUniqueViolation(err) {
		return UpsertResult{}, err
	}

	if useSavepoint {
		if _, rbErr := b.db.Exec(ctx, "ROLLBACK TO SAVEPOINT "+upsertSavepoint); rbErr != nil {
			return UpsertResult{}, rbErr
		}
	}

	upd, err := b.updateOnConflict()
	if err != nil {
		return UpsertResult{}, err
	}
	res, err = upd.Exec(ctx)
	if err != nil {
		return UpsertResult{}, err
	}
	n, _ := res.RowsAffected()
	return UpsertResult{Inserted: false, RowsAffected: n}, nil
}

func (b *upsertBuilder) updateOnConflict() (IUpdateBuilder, error) {
	index := make(map[string]int, len(b.columns))
	for i, c := range b.columns {
		index[c] = i
	}

	isKey := make(map[string]bool, len(b.keyColumns))
	whereParts := make([]string, 0, len(b.keyColumns))
	whereArgs := make([]any, 0, len(b.keyColumns))
	for _, key := range b.keyColumns {
		idx, ok := index[key]
		if !ok {
			return nil, fmt.Errorf("upsert: key column %s not found in Columns", key)
		}
		isKey[key] = true
		whereParts = append(whereParts, b.dialect.QuoteIdentifier(key)+" = ?")
		whereArgs = append(whereArgs, b.values[idx])
	}

	upd := &updateBuilder{db: b.db, dialect: b.dialect, table: b.table}
	for i, col := range b.columns {
		if isKey[col] {
			continue
		}
		upd.Set(col, b.values[i])
	}
	upd.Where(strings.Join(whereParts, " AND "), whereArgs...)
	return upd, nil
}
