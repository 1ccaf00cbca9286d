// Package cache is a small key value store for JSON encoded values, kept
// either in a local fastcache file or in redis.
package cache

import (
	"context"
	"fmt"
	"time"
)

var (
	ErrKeyNotExist = fmt.Errorf("cache key not exists")
)

type Cache interface {
	GetAs(ctx context.Context, key string, out interface{}) error
	SetExp(ctx context.Context, key string, inValue interface{}, expireDur time.Duration) error
	Delete(ctx context.Context, key string) error
}
