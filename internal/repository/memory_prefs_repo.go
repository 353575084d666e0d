package repository

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryPrefsRepo はプロセス内に利用者設定を保持するリポジトリ。
// Redisを設定しない場合に使う。
type MemoryPrefsRepo struct {
	mu     sync.RWMutex
	values map[string]int
}

// NewMemoryPrefsRepo はMemoryPrefsRepoを生成する。
func NewMemoryPrefsRepo() *MemoryPrefsRepo {
	return &MemoryPrefsRepo{values: make(map[string]int)}
}

// RefreshInterval は保存済みの自動更新間隔を返す。
func (r *MemoryPrefsRepo) RefreshInterval(_ context.Context) (time.Duration, bool, error) {
	seconds, ok := r.get(fieldRefreshInterval)
	return time.Duration(seconds) * time.Second, ok, nil
}

// SetRefreshInterval は自動更新間隔を保存する。
func (r *MemoryPrefsRepo) SetRefreshInterval(_ context.Context, interval time.Duration) error {
	return r.set(fieldRefreshInterval, int(interval/time.Second))
}

// PageSize は保存済みのページサイズを返す。
func (r *MemoryPrefsRepo) PageSize(_ context.Context) (int, bool, error) {
	size, ok := r.get(fieldPageSize)
	return size, ok, nil
}

// SetPageSize はページサイズを保存する。
func (r *MemoryPrefsRepo) SetPageSize(_ context.Context, size int) error {
	return r.set(fieldPageSize, size)
}

func (r *MemoryPrefsRepo) get(field string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[field]
	return v, ok
}

func (r *MemoryPrefsRepo) set(field string, value int) error {
	if value < 0 {
		return fmt.Errorf("invalid preference %s: negative value %d", field, value)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[field] = value
	return nil
}
