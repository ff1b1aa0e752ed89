// Package migrations 内嵌各方言的表结构迁移，通过 goose 执行
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"recordbin/data/db/dialect"
)

//go:embed sqlite/*.sql postgres/*.sql
var Migrations embed.FS

// goose 的 BaseFS/Dialect 是包级全局状态
var gooseMu sync.Mutex

// gooseUpContext 测试替换点
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Up 按方言执行全部未应用的迁移，重复执行是幂等的
func Up(ctx context.Context, db *sql.DB, driver string) error {
	dir, gooseDialect, err := resolve(driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(Migrations)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, dir)
}

// Version 返回当前已应用的迁移版本
func Version(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	_, gooseDialect, err := resolve(driver)
	if err != nil {
		return 0, err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(gooseDialect); err != nil {
		return 0, fmt.Errorf("set goose dialect: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db)
}

func resolve(driver string) (dir, gooseDialect string, err error) {
	switch dialect.New(driver).Name() {
	case dialect.NameSQLite:
		return "sqlite", "sqlite3", nil
	case dialect.NamePostgres:
		return "postgres", "pgx", nil
	default:
		return "", "", fmt.Errorf("migrations: unsupported driver %q", driver)
	}
}
