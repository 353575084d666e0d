// Package repository は利用者設定の永続化を提供する。
package repository

import (
	"context"
	"time"
)

// PreferenceRepository は利用者設定（自動更新間隔・ページサイズ）の永続化インターフェース。
type PreferenceRepository interface {
	// RefreshInterval は保存済みの自動更新間隔を返す。未保存の場合はokがfalse。
	RefreshInterval(ctx context.Context) (interval time.Duration, ok bool, err error)

	// SetRefreshInterval は自動更新間隔を保存する。0は自動更新の無効を表す。
	SetRefreshInterval(ctx context.Context, interval time.Duration) error

	// PageSize は保存済みのページサイズを返す。未保存の場合はokがfalse。
	PageSize(ctx context.Context) (size int, ok bool, err error)

	// SetPageSize はページサイズを保存する。
	SetPageSize(ctx context.Context, size int) error
}

// 設定のフィールド名
const (
	fieldRefreshInterval = "refresh_interval_seconds"
	fieldPageSize        = "page_size"
)
