package cache

import (
	"context"
	"errors"
	"fmt"

	c "github.com/d0ngw/timeline-counter/common"
	"github.com/gomodule/redigo/redis"
)

// RedisClient redis client over the configured groups, a key always maps to
// the same server of its group
type RedisClient struct {
	c.BaseService
	conf   *RedisConf
	groups map[string][]*RedisServer
}

// NewRedisClientWithConf create redis client with the conf
func NewRedisClientWithConf(conf *RedisConf) *RedisClient {
	return &RedisClient{
		BaseService: c.BaseService{SName: "cache.redis"},
		conf:        conf,
	}
}

// Init implements Service.Init
func (p *RedisClient) Init() error {
	if p.groups != nil {
		return nil
	}
	if p.conf == nil {
		return fmt.Errorf("no redis conf")
	}
	if err := p.conf.Parse(); err != nil {
		return err
	}
	p.groups = p.conf.groups
	return nil
}

// Stop implements Service.Stop, closes all pools
func (p *RedisClient) Stop() bool {
	ok := true
	for group, servers := range p.groups {
		for _, server := range servers {
			if err := server.close(); err != nil {
				c.Errorf("close redis %s of group %s fail,err:%v", server.ID, group, err)
				ok = false
			}
		}
	}
	return ok
}

// HasGroup reports whether the group is configured
func (p *RedisClient) HasGroup(group string) bool {
	return len(p.groups[group]) > 0
}

func (p *RedisClient) server(param Param) (*RedisServer, error) {
	servers := p.groups[param.Group()]
	if len(servers) == 0 {
		return nil, fmt.Errorf("can't find redis group %s", param.Group())
	}
	return servers[c.Fnv32Hashcode(param.Key())%len(servers)], nil
}

// GetConn acquires a conn of the server param.Key() maps to
func (p *RedisClient) GetConn(ctx context.Context, param Param) (redis.Conn, error) {
	server, err := p.server(param)
	if err != nil {
		return nil, err
	}
	conn, err := server.GetConn(ctx)
	if err != nil {
		return nil, wrapRedisErr(err)
	}
	return conn, nil
}

// Do runs fn with a conn of the server param.Key() maps to
func (p *RedisClient) Do(ctx context.Context, param Param, fn func(conn redis.Conn) (interface{}, error)) (interface{}, error) {
	conn, err := p.GetConn(ctx, param)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	reply, err := fn(conn)
	return reply, wrapRedisErr(err)
}

// Eval runs the lua script on the server param.Key() maps to
func (p *RedisClient) Eval(ctx context.Context, param Param, script *redis.Script, keysAndArgs ...interface{}) (interface{}, error) {
	return p.Do(ctx, param, func(conn redis.Conn) (interface{}, error) {
		return script.Do(conn, keysAndArgs...)
	})
}

// wrapRedisErr marks transport failures as transient, errors replied by the
// server are returned as is
func wrapRedisErr(err error) error {
	if err == nil {
		return nil
	}
	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return err
	}
	if errors.Is(err, redis.ErrNil) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: redis: %v", c.ErrTransient, err)
}
