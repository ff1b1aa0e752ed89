package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "recordbin/data/db"
	"recordbin/data/db/basic"
	"recordbin/domain/record"
	"recordbin/store"
)

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "migrate", "trash", "restore", "purge", "trash-list", "activity"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
	assert.Equal(t, "recordbin.yaml", cmd.PersistentFlags().Lookup("config").DefValue)
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
}

// cliEnv 每个测试一个 sqlite 文件库，命令之间共享数据
type cliEnv struct {
	dsn string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	dsn := "file:" + filepath.Join(dir, "recordbin.db") + "?_pragma=busy_timeout(5000)&_time_format=sqlite"
	t.Setenv("RECORDBIN_DATABASE_DSN", dsn)
	t.Setenv("RECORDBIN_LOG_LEVEL", "error")
	return &cliEnv{dsn: dsn}
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *cliEnv) insertClient(t *testing.T, ownerID int64, name string) int64 {
	t.Helper()
	db, err := basic.New(core.DBConfig{Driver: "sqlite", DSN: e.dsn, MaxOpenConns: 1})
	require.NoError(t, err)
	defer db.Close()
	id, err := store.NewClientStore(db).Insert(context.Background(), &record.Client{
		Base: record.Base{OwnerID: record.Ptr(ownerID), CreatedAt: time.Now().UTC()},
		Name: name,
	})
	require.NoError(t, err)
	return id
}

func TestInvalidFormat(t *testing.T) {
	_, err := newCLIEnv(t).run(t, "--format", "xml", "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestTrashRequiresActor(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "trash", "client", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--actor")
}

func TestTrashListRestoreFlow(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "database at version")

	id := env.insertClient(t, 1, "Acme")
	other := env.insertClient(t, 1, "Globex")

	out, err = env.run(t, "--actor", "1", "trash", "clients", fmt.Sprint(id))
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	out, err = env.run(t, "--actor", "1", "--format", "json", "trash", "client", fmt.Sprint(other), "999")
	require.NoError(t, err)
	var bulk struct {
		Total        int `json:"total"`
		SuccessCount int `json:"success_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &bulk))
	assert.Equal(t, 2, bulk.Total)
	assert.Equal(t, 1, bulk.SuccessCount)

	out, err = env.run(t, "--actor", "1", "--format", "json", "trash-list", "client", "-q", "acme")
	require.NoError(t, err)
	var list trashList
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Acme", list.Items[0].Label)

	out, err = env.run(t, "--actor", "1", "trash-list", "client")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ARCHIVE"))
	assert.Contains(t, out, "2 total")

	out, err = env.run(t, "--actor", "1", "--format", "json", "restore", "client", fmt.Sprint(list.Items[0].ArchiveID))
	require.NoError(t, err)
	var restored map[string]int64
	require.NoError(t, json.Unmarshal([]byte(out), &restored))
	assert.Equal(t, id, restored["id"])

	_, err = env.run(t, "--actor", "2", "purge", "client", fmt.Sprint(list.Items[0].ArchiveID))
	assert.Error(t, err, "归档已随恢复删除")

	out, err = env.run(t, "--actor", "1", "activity")
	require.NoError(t, err)
	assert.Contains(t, out, "client_deleted")
	assert.Contains(t, out, "client_restored")
}

func TestUnknownFamily(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "--actor", "1", "trash", "vendor", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown record family")
}
