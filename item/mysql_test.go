package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	c "github.com/d0ngw/timeline-counter/common"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBConfig(t *testing.T) {
	conf := &DBConfig{User: "root", Pass: "123456", URL: "127.0.0.1:3306", Schema: "test"}
	require.Nil(t, conf.Parse())
	assert.Equal(t, defaultTable, conf.Table)
	dsn := conf.DSN()
	assert.True(t, strings.HasPrefix(dsn, "root:123456@tcp(127.0.0.1:3306)/test?"), dsn)
	assert.Contains(t, dsn, "charset=utf8mb4")
	assert.Contains(t, dsn, "parseTime=true")

	assert.NotNil(t, (&DBConfig{Schema: "test"}).Parse())
	assert.NotNil(t, (&DBConfig{URL: "127.0.0.1:3306"}).Parse())
	assert.NotNil(t, (&DBConfig{URL: "127.0.0.1:3306", Schema: "test", Table: "bad;table"}).Parse())
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("op", nil))
	assert.True(t, errors.Is(classify("op", &mysql.MySQLError{Number: erDupEntry}), c.ErrConflict))
	assert.True(t, errors.Is(classify("op", &mysql.MySQLError{Number: erLockDeadlock}), c.ErrTransient))
	assert.True(t, errors.Is(classify("op", &mysql.MySQLError{Number: erLockWaitTimeout}), c.ErrTransient))
	syntax := classify("op", &mysql.MySQLError{Number: 1064})
	assert.False(t, c.IsRetryable(syntax))
	assert.True(t, errors.Is(classify("op", mysql.ErrInvalidConn), c.ErrTransient))
	assert.True(t, errors.Is(classify("op", context.DeadlineExceeded), c.ErrTransient))
	assert.False(t, errors.Is(classify("op", context.Canceled), c.ErrTransient))
}

// TestMySQLStore needs a live server, e.g.
// COUNTER_TEST_MYSQL_DSN="root:123456@tcp(127.0.0.1:3306)/test"
func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("COUNTER_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("COUNTER_TEST_MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	require.Nil(t, err)
	defer db.Close()

	table := fmt.Sprintf("timeline_item_test_%d", time.Now().UnixNano()%100000)
	store := NewMySQLStoreWithDB(db, table)
	ctx := context.Background()
	require.Nil(t, store.CreateTable(ctx))
	defer db.Exec("DROP TABLE " + table)

	testStore(t, store)

	it, err := store.Insert(ctx, &Item{SourceItemID: `{"num":0}`})
	require.Nil(t, err)
	first, err := store.Get(ctx, it.ID)
	require.Nil(t, err)
	second, err := store.Get(ctx, it.ID)
	require.Nil(t, err)
	require.Nil(t, store.Update(ctx, it.ID, first))
	err = store.Update(ctx, it.ID, second)
	assert.True(t, errors.Is(err, c.ErrConflict))
}
