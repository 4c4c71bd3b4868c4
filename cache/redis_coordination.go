package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gomodule/redigo/redis"
)

// Luabool
const (
	LUATRUE  = 1
	LUAFALSE = 0
)

// 每个协调项是一个hash: v为计数值,ver为版本号
// 版本号取自同一实例上的自增序列,协调项被淘汰后重建也不会复用旧版本号
// 序列的key以seqPrefix开头,不落在协调项的key前缀下
const (
	fieldValue   = "v"
	fieldVersion = "ver"
	seqPrefix    = "__seq:"
)

// KEYS[1]协调项 KEYS[2]版本序列 ARGV[1]值 ARGV[2]过期秒数
const setIfAbsentLua = `
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local ver = redis.call('INCR', KEYS[2])
redis.call('HMSET', KEYS[1], 'v', ARGV[1], 'ver', ver)
if tonumber(ARGV[2]) > 0 then
	redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return 1
`

// KEYS[1]协调项 KEYS[2]版本序列 ARGV[1]期望的版本 ARGV[2]新值 ARGV[3]过期秒数
const casLua = `
local cur = redis.call('HGET', KEYS[1], 'ver')
if (not cur) or cur ~= ARGV[1] then
	return 0
end
local ver = redis.call('INCR', KEYS[2])
redis.call('HMSET', KEYS[1], 'v', ARGV[2], 'ver', ver)
if tonumber(ARGV[3]) > 0 then
	redis.call('EXPIRE', KEYS[1], ARGV[3])
end
return 1
`

var (
	setIfAbsentScript = redis.NewScript(2, setIfAbsentLua)
	casScript         = redis.NewScript(2, casLua)
)

// RedisCache is the CoordinationCache shared by all processes through redis
type RedisCache struct {
	client *RedisClient
	param  *ParamConf
}

// NewRedisCache creates the cache, entries live in param.Group() with the
// key prefix and expire of param
func NewRedisCache(client *RedisClient, param *ParamConf) (*RedisCache, error) {
	if client == nil || param == nil {
		return nil, fmt.Errorf("redis client and param must be set")
	}
	return &RedisCache{client: client, param: param}, nil
}

func (p *RedisCache) seqKey() string {
	return seqPrefix + p.param.KeyPrefix()
}

// entry builds the param of key, the key of the version sequence is reserved
func (p *RedisCache) entry(key string) (*ParamKey, error) {
	param := p.param.NewParamKey(key)
	if param.Key() == p.seqKey() {
		return nil, fmt.Errorf("key %q is reserved for the version sequence", key)
	}
	return param, nil
}

// GetWithVersion implements CoordinationCache
func (p *RedisCache) GetWithVersion(ctx context.Context, key string) (int64, Version, bool, error) {
	param, err := p.entry(key)
	if err != nil {
		return 0, 0, false, err
	}
	reply, err := p.client.Do(ctx, param, func(conn redis.Conn) (interface{}, error) {
		return conn.Do("HMGET", param.Key(), fieldValue, fieldVersion)
	})
	values, err := redis.Values(reply, err)
	if err != nil {
		return 0, 0, false, err
	}
	if len(values) != 2 || values[0] == nil || values[1] == nil {
		return 0, 0, false, nil
	}
	value, err := redis.Int64(values[0], nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid value of %s: %w", param.Key(), err)
	}
	version, err := redis.Int64(values[1], nil)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid version of %s: %w", param.Key(), err)
	}
	return value, Version(version), true, nil
}

// SetIfAbsent implements CoordinationCache
func (p *RedisCache) SetIfAbsent(ctx context.Context, key string, value int64) (bool, error) {
	param, err := p.entry(key)
	if err != nil {
		return false, err
	}
	set, err := redis.Int(p.client.Eval(ctx, param, setIfAbsentScript, param.Key(), p.seqKey(), value, param.Expire()))
	if err != nil {
		return false, err
	}
	return set == LUATRUE, nil
}

// CompareAndSwap implements CoordinationCache
func (p *RedisCache) CompareAndSwap(ctx context.Context, key string, version Version, value int64) (bool, error) {
	param, err := p.entry(key)
	if err != nil {
		return false, err
	}
	swapped, err := redis.Int(p.client.Eval(ctx, param, casScript, param.Key(), p.seqKey(),
		strconv.FormatInt(int64(version), 10), value, param.Expire()))
	if err != nil {
		return false, err
	}
	return swapped == LUATRUE, nil
}

// Delete implements CoordinationCache
func (p *RedisCache) Delete(ctx context.Context, key string) error {
	param, err := p.entry(key)
	if err != nil {
		return err
	}
	_, err = p.client.Do(ctx, param, func(conn redis.Conn) (interface{}, error) {
		return conn.Do("DEL", param.Key())
	})
	return err
}
