package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPrefsRepo はRedisのハッシュに利用者設定を保存するリポジトリ。
type RedisPrefsRepo struct {
	client *redis.Client
	key    string
}

// NewRedisPrefsRepo はRedisPrefsRepoを生成する。keyは設定を保存するハッシュのキー。
func NewRedisPrefsRepo(client *redis.Client, key string) *RedisPrefsRepo {
	return &RedisPrefsRepo{client: client, key: key}
}

// RefreshInterval は保存済みの自動更新間隔を返す。
func (r *RedisPrefsRepo) RefreshInterval(ctx context.Context) (time.Duration, bool, error) {
	seconds, ok, err := r.getInt(ctx, fieldRefreshInterval)
	if err != nil || !ok {
		return 0, ok, err
	}
	return time.Duration(seconds) * time.Second, true, nil
}

// SetRefreshInterval は自動更新間隔を秒単位で保存する。
func (r *RedisPrefsRepo) SetRefreshInterval(ctx context.Context, interval time.Duration) error {
	return r.setInt(ctx, fieldRefreshInterval, int(interval/time.Second))
}

// PageSize は保存済みのページサイズを返す。
func (r *RedisPrefsRepo) PageSize(ctx context.Context) (int, bool, error) {
	return r.getInt(ctx, fieldPageSize)
}

// SetPageSize はページサイズを保存する。
func (r *RedisPrefsRepo) SetPageSize(ctx context.Context, size int) error {
	return r.setInt(ctx, fieldPageSize, size)
}

func (r *RedisPrefsRepo) getInt(ctx context.Context, field string) (int, bool, error) {
	raw, err := r.client.HGet(ctx, r.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get preference %s: %w", field, err)
	}
	v, err := parseNonNegative(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid preference %s: %w", field, err)
	}
	return v, true, nil
}

func (r *RedisPrefsRepo) setInt(ctx context.Context, field string, value int) error {
	if value < 0 {
		return fmt.Errorf("invalid preference %s: negative value %d", field, value)
	}
	if err := r.client.HSet(ctx, r.key, field, value).Err(); err != nil {
		return fmt.Errorf("failed to set preference %s: %w", field, err)
	}
	return nil
}

// parseNonNegative は保存値を0以上の整数として解釈する。
func parseNonNegative(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %d", v)
	}
	return v, nil
}
