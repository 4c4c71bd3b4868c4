package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	c "github.com/d0ngw/timeline-counter/common"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// MySQL server error numbers
const (
	erDupEntry        = 1062
	erLockWaitTimeout = 1205
	erLockDeadlock    = 1213
)

const defaultTable = "timeline_item"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DBConfig 数据库配置
type DBConfig struct {
	User          string `yaml:"user"`
	Pass          string `yaml:"pass"`
	URL           string `yaml:"url"`
	Schema        string `yaml:"schema"`
	Table         string `yaml:"table"`
	MaxConn       int    `yaml:"maxConn"`
	MaxIdle       int    `yaml:"maxIdle"`
	MaxTimeSecond int    `yaml:"maxTimeSecond"`
	Charset       string `yaml:"charset"`
}

// Parse implements Configurer
func (p *DBConfig) Parse() error {
	if p.URL == "" {
		return fmt.Errorf("need url")
	}
	if p.Schema == "" {
		return fmt.Errorf("need schema")
	}
	if p.Table == "" {
		p.Table = defaultTable
	}
	if !tableNamePattern.MatchString(p.Table) {
		return fmt.Errorf("invalid table name %q", p.Table)
	}
	return nil
}

// DSN builds the go-sql-driver/mysql data source name
func (p *DBConfig) DSN() string {
	conf := mysql.NewConfig()
	conf.User = p.User
	conf.Passwd = p.Pass
	conf.Net = "tcp"
	conf.Addr = p.URL
	conf.DBName = p.Schema
	conf.ParseTime = true
	conf.Loc = time.Local
	charset := p.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	conf.Params = map[string]string{"charset": charset}
	return conf.FormatDSN()
}

// MySQLStore implements Store on a MySQL table. The item body is stored as
// msgpack and every update is guarded by the ver column.
type MySQLStore struct {
	c.BaseService
	Config *DBConfig
	db     *sql.DB
}

// NewMySQLStore creates the store service, the pool is opened by Init
func NewMySQLStore(config *DBConfig) *MySQLStore {
	return &MySQLStore{
		BaseService: c.BaseService{SName: "item.mysql"},
		Config:      config,
	}
}

// NewMySQLStoreWithDB wraps an opened pool
func NewMySQLStoreWithDB(db *sql.DB, table string) *MySQLStore {
	return &MySQLStore{
		BaseService: c.BaseService{SName: "item.mysql"},
		Config:      &DBConfig{Table: table},
		db:          db,
	}
}

// Init implements Service.Init
func (p *MySQLStore) Init() error {
	if p.db != nil {
		return nil
	}
	if p.Config == nil {
		return fmt.Errorf("no db config")
	}
	if err := p.Config.Parse(); err != nil {
		return err
	}
	db, err := sql.Open("mysql", p.Config.DSN())
	if err != nil {
		return fmt.Errorf("open mysql %s fail: %w", p.Config.URL, err)
	}
	db.SetMaxIdleConns(p.Config.MaxIdle)
	db.SetMaxOpenConns(p.Config.MaxConn)
	if p.Config.MaxTimeSecond > 0 {
		db.SetConnMaxLifetime(time.Duration(p.Config.MaxTimeSecond) * time.Second)
	}
	p.db = db
	return nil
}

// Stop implements Service.Stop
func (p *MySQLStore) Stop() bool {
	if p.db == nil {
		return true
	}
	if err := p.db.Close(); err != nil {
		c.Errorf("close mysql fail,err:%v", err)
		return false
	}
	return true
}

// CreateTable creates the item table when it does not exist
func (p *MySQLStore) CreateTable(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+p.table()+
		" (id VARCHAR(64) NOT NULL PRIMARY KEY, body BLOB NOT NULL, ver BIGINT NOT NULL)")
	return classify("create table", err)
}

func (p *MySQLStore) table() string {
	if p.Config == nil || p.Config.Table == "" {
		return defaultTable
	}
	return p.Config.Table
}

// Get implements Store.Get
func (p *MySQLStore) Get(ctx context.Context, id string) (*Item, error) {
	var body []byte
	var ver int64
	err := p.db.QueryRowContext(ctx, "SELECT body, ver FROM "+p.table()+" WHERE id = ?", id).Scan(&body, &ver)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, c.ErrNotFound)
	}
	if err != nil {
		return nil, classify("get item "+id, err)
	}
	it := &Item{}
	if err := MsgPackDecodeBytes(body, it); err != nil {
		return nil, fmt.Errorf("decode item %s fail: %w", id, err)
	}
	it.ID = id
	it.Version = ver
	return it, nil
}

// Update implements Store.Update
func (p *MySQLStore) Update(ctx context.Context, id string, it *Item) error {
	if it == nil {
		return fmt.Errorf("nil item for %s", id)
	}
	stored := it.Clone()
	stored.ID = id
	body, err := MsgPackEncodeBytes(stored)
	if err != nil {
		return fmt.Errorf("encode item %s fail: %w", id, err)
	}
	res, err := p.db.ExecContext(ctx, "UPDATE "+p.table()+" SET body = ?, ver = ver + 1 WHERE id = ? AND ver = ?", body, id, it.Version)
	if err != nil {
		return classify("update item "+id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify("update item "+id, err)
	}
	if affected == 1 {
		return nil
	}
	var exist int
	err = p.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+p.table()+" WHERE id = ?", id).Scan(&exist)
	if err != nil {
		return classify("update item "+id, err)
	}
	if exist == 0 {
		return fmt.Errorf("item %s: %w", id, c.ErrNotFound)
	}
	return fmt.Errorf("item %s version %d: %w", id, it.Version, c.ErrConflict)
}

// Insert implements Store.Insert
func (p *MySQLStore) Insert(ctx context.Context, it *Item) (*Item, error) {
	if it == nil {
		return nil, fmt.Errorf("nil item")
	}
	stored := it.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.Version = 1
	body, err := MsgPackEncodeBytes(stored)
	if err != nil {
		return nil, fmt.Errorf("encode item %s fail: %w", stored.ID, err)
	}
	_, err = p.db.ExecContext(ctx, "INSERT INTO "+p.table()+" (id, body, ver) VALUES (?, ?, ?)", stored.ID, body, stored.Version)
	if err != nil {
		return nil, classify("insert item "+stored.ID, err)
	}
	return stored, nil
}

// Delete implements Store.Delete
func (p *MySQLStore) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, "DELETE FROM "+p.table()+" WHERE id = ?", id)
	if err != nil {
		return classify("delete item "+id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify("delete item "+id, err)
	}
	if affected == 0 {
		return fmt.Errorf("item %s: %w", id, c.ErrNotFound)
	}
	return nil
}

// classify maps driver errors onto the store error kinds. Server side errors
// are terminal apart from lock timeouts and deadlocks, everything else
// happened on the way to the server and is transient.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case erDupEntry:
			return fmt.Errorf("%s: %v: %w", op, err, c.ErrConflict)
		case erLockWaitTimeout, erLockDeadlock:
			return fmt.Errorf("%s: %v: %w", op, err, c.ErrTransient)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %v: %w", op, err, c.ErrTransient)
}
