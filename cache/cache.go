// Package cache 提供计数器协调用的缓存服务
package cache

import (
	"fmt"
	"strings"
	"time"
)

// Param is the cache param
type Param interface {
	//Group cache group id
	Group() string
	//Key cache key
	Key() string
	//Expire second time
	Expire() int
}

// ParamConf is the cache param conf with cache group,key prefix and expire
type ParamConf struct {
	group     string
	keyPrefix string
	expire    int
}

// NewParamConf create ParamConf
func NewParamConf(group, keyPrefix string, expire int) *ParamConf {
	return &ParamConf{
		group:     group,
		keyPrefix: keyPrefix,
		expire:    expire,
	}
}

// Group return cache group
func (p *ParamConf) Group() string {
	return p.group
}

// Expire return expire second
func (p *ParamConf) Expire() int {
	return p.expire
}

// ExpireDuration return expire as duration, 0 means never expire
func (p *ParamConf) ExpireDuration() time.Duration {
	return time.Duration(p.expire) * time.Second
}

// KeyPrefix return key prefix
func (p *ParamConf) KeyPrefix() string {
	return p.keyPrefix
}

// NewParamKey create new ParamKey with key
func (p *ParamConf) NewParamKey(key string) *ParamKey {
	return &ParamKey{
		ParamConf: p,
		key:       p.keyPrefix + key,
	}
}

// ParamKey is the cache param with key
type ParamKey struct {
	*ParamConf
	key string
}

// Key implements Param.Key()
func (p *ParamKey) Key() string {
	return p.key
}

// 协调缓存的后端
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// CoordinationConf 协调缓存的配置
type CoordinationConf struct {
	Backend   string `yaml:"backend"`    //memory或redis,默认memory
	Group     string `yaml:"group"`      //redis组
	KeyPrefix string `yaml:"key_prefix"` //key前缀
	Expire    int    `yaml:"expire"`     //过期时间,单位秒,0表示不过期
}

// Parse implements Configurer
func (p *CoordinationConf) Parse() error {
	if p.Backend == "" {
		p.Backend = BackendMemory
	}
	switch p.Backend {
	case BackendMemory:
	case BackendRedis:
		if p.Group == "" {
			return fmt.Errorf("redis coordination cache needs a group")
		}
	default:
		return fmt.Errorf("unknown coordination cache backend %q", p.Backend)
	}
	if p.KeyPrefix == "" {
		p.KeyPrefix = "cnt:"
	}
	if strings.ContainsAny(p.KeyPrefix, " \t\r\n") {
		return fmt.Errorf("invalid key prefix %q", p.KeyPrefix)
	}
	if p.Expire < 0 {
		return fmt.Errorf("invalid expire %d", p.Expire)
	}
	return nil
}

// ParamConf builds the key param of the coordination entries
func (p *CoordinationConf) ParamConf() *ParamConf {
	return NewParamConf(p.Group, p.KeyPrefix, p.Expire)
}
