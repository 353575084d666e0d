package syncctl

import (
	"time"

	"github.com/hitoshi/newswatcher/internal/model"
)

// Renderer は表示内容の出力先。
// すべてのメソッドはコントローラのキューから呼ばれ、ブロックしてはならない。
type Renderer interface {
	Render(s Snapshot)
	Notify(n Notice)
	Alert(a model.HighImportanceAlert, ttl time.Duration)
}

// Snapshot はある時点の表示内容。
type Snapshot struct {
	Tab              model.Tab
	Query            model.Query
	DateRange        model.DateRange
	Items            []model.NewsItem
	Page             model.PageInfo
	Loading          bool
	Detail           *model.NewsItem
	Stats            *Stats
	Sources          []string
	Metals           []string
	UnseenCount      int
	PendingReconcile bool
	PendingEdits     int // バックエンドの応答待ちの楽観的変更がある記事数
	AlertCount       int
	LastAlert        *model.HighImportanceAlert
}

// Stats は統計タブの表示内容。
type Stats struct {
	System   model.SystemStats
	Analysis model.AnalysisStats
}

// NoticeLevel はメッセージの種別。
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice は一定時間で消えるメッセージ。
type Notice struct {
	Level   NoticeLevel
	Message string
	TTL     time.Duration
}
