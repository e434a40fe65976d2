package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// GetOrLoadJSON 按 JSON 存取；加载错误（含 not found）不写缓存，
// 缓存内容无法解码时删除该 key 并回源一次
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (*T, error),
) (*T, error) {
	loadBytes := func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}

	b, err := c.GetOrLoad(ctx, key, ttl, loadBytes)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if json.Unmarshal(b, out) == nil {
		return out, nil
	}

	_ = c.RDB.Del(ctx, key).Err()
	if b, err = c.GetOrLoad(ctx, key, ttl, loadBytes); err != nil {
		return nil, err
	}
	out = new(T)
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return out, nil
}
