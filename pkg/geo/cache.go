package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-redis/redis/v8"
)

// Cache stores successful geocoder lookups keyed by place name.
type Cache interface {
	Get(ctx context.Context, name string) (Coords, bool, error)
	Put(ctx context.Context, name string, c Coords) error
}

// FileCache persists one JSON file per place under a directory.
// Writes go through a temp file and rename, so a reader observes either
// no entry or a complete entry.
type FileCache struct {
	dir string
}

// NewFileCache creates (if needed) the cache directory.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating geocache directory: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (f *FileCache) entryPath(name string) string {
	return filepath.Join(f.dir, url.PathEscape(name)+".json")
}

func (f *FileCache) Get(_ context.Context, name string) (Coords, bool, error) {
	data, err := os.ReadFile(f.entryPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Coords{}, false, nil
		}
		return Coords{}, false, err
	}
	var c Coords
	if err := json.Unmarshal(data, &c); err != nil {
		// A corrupt entry is treated as a miss; it will be rewritten.
		return Coords{}, false, nil
	}
	return c, true, nil
}

func (f *FileCache) Put(_ context.Context, name string, c Coords) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.entryPath(name))
}

// RedisCache stores lookups in Redis, for deployments where several hosts
// share one geocoder budget.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the given Redis address.
func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

func redisKey(name string) string {
	return "geocache:" + name
}

func (r *RedisCache) Get(ctx context.Context, name string) (Coords, bool, error) {
	data, err := r.client.Get(ctx, redisKey(name)).Bytes()
	if err == redis.Nil {
		return Coords{}, false, nil
	}
	if err != nil {
		return Coords{}, false, err
	}
	var c Coords
	if err := json.Unmarshal(data, &c); err != nil {
		return Coords{}, false, nil
	}
	return c, true, nil
}

func (r *RedisCache) Put(ctx context.Context, name string, c Coords) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(name), data, 0).Err()
}
