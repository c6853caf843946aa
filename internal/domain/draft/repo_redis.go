package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	redisDraftPrefix   = "homecare:draft:"
	redisDraftIndex    = "homecare:drafts"
	redisSettingPrefix = "homecare:setting:"
)

type redisRepo struct {
	client redis.Cmdable
}

// NewRedisRepo stores drafts as JSON values. A sorted set scored by save time
// indexes them for DeleteOlderThan.
func NewRedisRepo(client redis.Cmdable) Repository {
	return &redisRepo{client: client}
}

func (r *redisRepo) Put(ctx context.Context, d *Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	member := d.Key.StorageKey()
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisDraftPrefix+member, payload, 0)
		pipe.ZAdd(ctx, redisDraftIndex, &redis.Z{Score: float64(d.SavedAt.UnixMilli()), Member: member})
		return nil
	})
	if err != nil {
		return fmt.Errorf("put draft %s: %w", member, err)
	}
	return nil
}

func (r *redisRepo) Get(ctx context.Context, k Key) (*Draft, error) {
	raw, err := r.client.Get(ctx, redisDraftPrefix+k.StorageKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &d, nil
}

func (r *redisRepo) Delete(ctx context.Context, k Key) error {
	member := k.StorageKey()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisDraftPrefix+member)
		pipe.ZRem(ctx, redisDraftIndex, member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", member, err)
	}
	return nil
}

func (r *redisRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	members, err := r.client.ZRangeByScore(ctx, redisDraftIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan draft index: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}
	keys := make([]string, len(members))
	ids := make([]interface{}, len(members))
	for i, m := range members {
		keys[i] = redisDraftPrefix + m
		ids[i] = m
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, redisDraftIndex, ids...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sweep drafts: %w", err)
	}
	return len(members), nil
}

func (r *redisRepo) GetFlag(ctx context.Context, name string) (bool, bool, error) {
	raw, err := r.client.Get(ctx, redisSettingPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("get setting %s: %w", name, err)
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("setting %s: %w", name, err)
	}
	return v, true, nil
}

func (r *redisRepo) SetFlag(ctx context.Context, name string, value bool) error {
	if err := r.client.Set(ctx, redisSettingPrefix+name, strconv.FormatBool(value), 0).Err(); err != nil {
		return fmt.Errorf("set setting %s: %w", name, err)
	}
	return nil
}
