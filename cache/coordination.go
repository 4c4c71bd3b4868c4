package cache

import (
	"context"
	"fmt"
)

// Version identifies one write of a coordination entry. Backends never hand
// out the same version twice for a key, also across evictions.
type Version int64

// CoordinationCache is the shared versioned cell used to linearize counter
// updates. Entries are volatile: they may expire or be evicted at any point.
type CoordinationCache interface {
	// GetWithVersion returns the value and its version, ok is false when absent
	GetWithVersion(ctx context.Context, key string) (value int64, version Version, ok bool, err error)
	// SetIfAbsent initializes key, it reports false when key already exists
	SetIfAbsent(ctx context.Context, key string, value int64) (bool, error)
	// CompareAndSwap replaces the value only when the stored version is still
	// version. It reports false when another writer got there first or the
	// entry is gone.
	CompareAndSwap(ctx context.Context, key string, version Version, value int64) (bool, error)
	// Delete drops the entry, deleting an absent key is not an error
	Delete(ctx context.Context, key string) error
}

// NewCoordinationCache builds the backend named by conf, client is only
// needed by the redis backend
func NewCoordinationCache(conf *CoordinationConf, client *RedisClient) (CoordinationCache, error) {
	if conf == nil {
		return nil, fmt.Errorf("no coordination cache conf")
	}
	if err := conf.Parse(); err != nil {
		return nil, err
	}
	switch conf.Backend {
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis coordination cache needs a redis client")
		}
		if !client.HasGroup(conf.Group) {
			return nil, fmt.Errorf("can't find redis group %s", conf.Group)
		}
		return NewRedisCache(client, conf.ParamConf())
	default:
		return NewMemoryCache(conf.ParamConf().ExpireDuration()), nil
	}
}
