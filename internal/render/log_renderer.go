// Package render は同期コントローラの表示内容を出力するアダプタを提供する。
package render

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/newswatcher/internal/model"
	"github.com/hitoshi/newswatcher/internal/syncctl"
)

// LogRenderer は表示内容を構造化ログとして出力するRenderer。
// 画面を持たない実行環境での既定の出力先。
type LogRenderer struct {
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	last        syncctl.Snapshot
	alert       *model.HighImportanceAlert
	alertExpiry time.Time
}

// NewLogRenderer はLogRendererの新しいインスタンスを生成する。
func NewLogRenderer(logger *slog.Logger) *LogRenderer {
	return &LogRenderer{
		logger: logger,
		now:    time.Now,
	}
}

// Render は表示内容の要約をログに出力する。
func (r *LogRenderer) Render(s syncctl.Snapshot) {
	r.mu.Lock()
	r.last = s
	r.mu.Unlock()

	attrs := []any{
		slog.String("tab", string(s.Tab)),
		slog.Int("count", len(s.Items)),
		slog.Int("total_count", s.Page.TotalCount),
		slog.Int("page", s.Page.CurrentPage),
		slog.Int("total_pages", s.Page.TotalPages),
		slog.Bool("has_next", s.Page.HasNext),
		slog.Bool("loading", s.Loading),
		slog.Int("unseen", s.UnseenCount),
		slog.Int("pending_edits", s.PendingEdits),
		slog.Int("alert_count", s.AlertCount),
	}
	if s.Query.Keyword != "" {
		attrs = append(attrs, slog.String("keyword", s.Query.Keyword))
	}
	if s.Detail != nil {
		attrs = append(attrs, slog.String("detail_id", s.Detail.NewsID))
	}
	r.logger.Info("表示を更新しました", attrs...)

	for _, item := range s.Items {
		r.logger.Debug("ニュース",
			slog.String("news_id", item.NewsID),
			slog.String("title", item.Title),
			slog.String("source", item.Source),
			slog.Int("rating", int(item.Rating)),
			slog.Bool("is_read", item.IsRead),
		)
	}
	if s.Stats != nil {
		r.logger.Info("統計",
			slog.Int("total_news", s.Stats.System.TotalNews),
			slog.Int("today_news", s.Stats.System.TodayNews),
			slog.Int("total_analyzed", s.Stats.Analysis.TotalAnalyzed),
			slog.Float64("daily_cost", s.Stats.Analysis.DailyCost),
		)
	}
}

// Notify はメッセージをログに出力する。エラーはWARNレベル。
func (r *LogRenderer) Notify(n syncctl.Notice) {
	level := slog.LevelInfo
	if n.Level == syncctl.NoticeError {
		level = slog.LevelWarn
	}
	r.logger.Log(context.Background(), level, n.Message, slog.Duration("ttl", n.TTL))
}

// Alert は重要ニュースをログに出力し、ttlの間だけ表示中として保持する。
func (r *LogRenderer) Alert(a model.HighImportanceAlert, ttl time.Duration) {
	r.mu.Lock()
	alert := a
	r.alert = &alert
	r.alertExpiry = r.now().Add(ttl)
	r.mu.Unlock()

	r.logger.Warn("重要ニュース",
		slog.String("news_id", a.NewsID),
		slog.String("title", a.Title),
		slog.String("source", a.Source),
		slog.Int("importance_score", a.ImportanceScore),
	)
}

// ActiveAlert は表示期限内の重要ニュースを返す。期限切れの場合はfalse。
func (r *LogRenderer) ActiveAlert() (model.HighImportanceAlert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.alert == nil || !r.now().Before(r.alertExpiry) {
		return model.HighImportanceAlert{}, false
	}
	return *r.alert, true
}

// Last は最後に描画した表示内容を返す。
func (r *LogRenderer) Last() syncctl.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
