package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/segmentio/encoding/json"
)

const DefaultMaxBytes = 32 * 1048576 // 32MB

type InMemory struct {
	DB   *fastcache.Cache
	path string
}

var _ Cache = (*InMemory)(nil)

// NewInMemory is a process local cache.
func NewInMemory() (*InMemory, error) {
	db := fastcache.New(DefaultMaxBytes)
	return &InMemory{
		DB: db,
	}, nil
}

// NewFile loads the cache saved at path by an earlier Close, or starts empty
// when there is none yet. A path that exists but cannot be loaded is an error,
// so a damaged journal is never silently replaced by an empty one.
func NewFile(path string) (*InMemory, error) {
	if path == "" {
		return nil, fmt.Errorf("cache file path is empty")
	}

	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &InMemory{
			DB:   fastcache.New(DefaultMaxBytes),
			path: path,
		}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("cannot stat cache file %s: %w", path, err)
	}

	db, err := fastcache.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load cache file %s: %w", path, err)
	}

	return &InMemory{
		DB:   db,
		path: path,
	}, nil
}

func (i *InMemory) GetAs(_ context.Context, key string, out interface{}) error {
	result, exist := i.DB.HasGet(nil, []byte(key))
	if !exist {
		return ErrKeyNotExist
	}

	return json.Unmarshal(result, out)
}

// SetExp using InMemory does not support expired.
func (i *InMemory) SetExp(_ context.Context, key string, inValue interface{}, _ time.Duration) error {
	val, err := json.Marshal(inValue)
	if err != nil {
		err = fmt.Errorf("cannot marshal json value: %w", err)
		return err
	}

	i.DB.Set([]byte(key), val)
	return nil
}

func (i *InMemory) Delete(_ context.Context, key string) error {
	i.DB.Del([]byte(key))
	return nil
}

// Close saves a file backed cache. The cache must not be used afterwards.
func (i *InMemory) Close() error {
	defer i.DB.Reset()

	if i.path == "" {
		return nil
	}

	if err := i.DB.SaveToFile(i.path); err != nil {
		return fmt.Errorf("cannot save cache file %s: %w", i.path, err)
	}

	return nil
}
