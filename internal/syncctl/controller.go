// Package syncctl はビュー状態とバックエンドの整合を保つ同期コントローラを提供する。
// すべての状態変更は1つのgoroutineが処理する操作キューに直列化される。
// バックエンド呼び出しは別goroutineで実行し、結果をキューに戻して反映する。
package syncctl

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hitoshi/newswatcher/internal/metrics"
	"github.com/hitoshi/newswatcher/internal/model"
	"github.com/hitoshi/newswatcher/internal/viewstate"
)

// Gateway はコントローラが利用するバックエンド呼び出しのインターフェース。
type Gateway interface {
	FetchLatest(ctx context.Context, pageSize, offset int) (model.NewsPage, error)
	Search(ctx context.Context, q model.Query) (model.NewsPage, error)
	SearchArchive(ctx context.Context, dr model.DateRange, q model.Query) (model.NewsPage, error)
	FetchDetail(ctx context.Context, newsID string) (model.NewsItem, error)
	MutateRating(ctx context.Context, newsID string, rating model.Rating) error
	SetReadState(ctx context.Context, newsID string, isRead bool) error
	SubmitManualEntry(ctx context.Context, entry model.ManualEntry) (string, error)
	DeleteManualEntry(ctx context.Context, newsID string) error
	TriggerAnalysis(ctx context.Context, newsID string) error
	SaveAnalysisEdit(ctx context.Context, newsID string, edit model.AnalysisEdit) error
	FetchSourcesList(ctx context.Context) ([]string, error)
	FetchMetalsList(ctx context.Context) ([]string, error)
	FetchSystemStats(ctx context.Context) (model.SystemStats, error)
	FetchAnalysisStats(ctx context.Context) (model.AnalysisStats, error)
	CollectNow(ctx context.Context) (model.CollectResult, error)
}

// RefreshGate は自動更新スケジューラのうちコントローラが操作する部分。
type RefreshGate interface {
	Enable(interval time.Duration) error
	Disable()
	SetFeedActive(active bool)
	Suspend()
	Resume()
	BeginRefresh() bool
	EndRefresh()
}

// Notifications はプッシュ通知の購読口。
type Notifications interface {
	OnHighImportance(handler func(model.HighImportanceAlert))
	OnDataAvailable(handler func(model.DataAvailable))
}

// Preferences は利用者設定の保存先。
type Preferences interface {
	SetRefreshInterval(ctx context.Context, interval time.Duration) error
}

// Options はコントローラの動作設定。
type Options struct {
	PageSize       int
	ReconcileDelay time.Duration // 新着通知から再取得までの待ち時間
	AlertTTL       time.Duration // 重要ニュース表示の自動消去までの時間
	NoticeTTL      time.Duration // メッセージ表示の自動消去までの時間
}

// view はリクエスト順序を管理する単位。
type view string

const (
	viewFeed    view = "feed"
	viewArchive view = "archive"
	viewDetail  view = "detail"
	viewStats   view = "stats"
)

// Controller は同期コントローラ。
// Run を起動したgoroutine以外から状態に触れることはない。
type Controller struct {
	gw       Gateway
	gate     RefreshGate
	renderer Renderer
	prefs    Preferences
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
	opts     Options

	ops          chan func()
	done         chan struct{}
	inflight     atomic.Int64
	registerOnce sync.Once

	// 以下はキューのgoroutineのみが操作する
	ctx   context.Context
	state *viewstate.ViewState
	seq   map[view]uint64

	unseen           int
	dataSeq          uint64
	pendingReconcile bool
	reconcileTimer   *time.Timer
	reconcileGen     uint64

	alertCount int
	lastAlert  *model.HighImportanceAlert

	autoReadSeq uint64
	stats       *Stats
	sources     []string
	metals      []string
}

// New はControllerの新しいインスタンスを生成する。
// prefsとcollectorはnilでもよい。
func New(
	gw Gateway,
	gate RefreshGate,
	renderer Renderer,
	prefs Preferences,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
	opts Options,
) *Controller {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = model.DefaultPageSize
	}
	if opts.AlertTTL <= 0 {
		opts.AlertTTL = 5 * time.Second
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = 3 * time.Second
	}
	return &Controller{
		gw:       gw,
		gate:     gate,
		renderer: renderer,
		prefs:    prefs,
		logger:   logger,
		metrics:  collector,
		opts:     opts,
		ops:      make(chan func(), 64),
		done:     make(chan struct{}),
		state:    viewstate.New(opts.PageSize),
		seq:      make(map[view]uint64),
	}
}

// Register はプッシュ通知のハンドラを登録する。2回目以降の呼び出しは何もしない。
func (c *Controller) Register(n Notifications) {
	c.registerOnce.Do(func() {
		n.OnHighImportance(func(a model.HighImportanceAlert) {
			c.post(func() { c.handleHighImportance(a) })
		})
		n.OnDataAvailable(func(d model.DataAvailable) {
			c.post(func() { c.handleDataAvailable(d) })
		})
		c.logger.Info("プッシュ通知のハンドラを登録しました")
	})
}

// Run はコンテキストがキャンセルされるまで操作キューを処理する。
// 1つのControllerにつき1回だけ呼び出す。
func (c *Controller) Run(ctx context.Context) {
	c.ctx = ctx
	defer close(c.done)

	c.logger.Info("同期コントローラを開始しました")
	for {
		select {
		case <-ctx.Done():
			if c.reconcileTimer != nil {
				c.reconcileTimer.Stop()
			}
			c.logger.Info("同期コントローラを停止しました")
			return
		case op := <-c.ops:
			c.execute(op)
		}
	}
}

// execute は操作を1つ実行する。パニックは回復してログに記録する。
func (c *Controller) execute(op func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("同期処理でパニックが発生しました", slog.Any("panic", r))
		}
	}()
	op()
}

// post は操作をキューに投入する。コントローラ停止後はfalseを返す。
func (c *Controller) post(op func()) bool {
	select {
	case c.ops <- op:
		return true
	case <-c.done:
		return false
	}
}

// background はバックエンド呼び出しを別goroutineで実行し、返された反映処理をキューに戻す。
// 反映処理を投入できなかった場合はonDropを呼ぶ。
func (c *Controller) background(call func(ctx context.Context) func(), onDrop func()) {
	ctx := c.ctx
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Add(-1)
		apply := call(ctx)
		if !c.post(apply) && onDrop != nil {
			onDrop()
		}
	}()
}

// next はビューの新しいシーケンス番号を発行する。
func (c *Controller) next(v view) uint64 {
	c.seq[v]++
	return c.seq[v]
}

// isCurrent はシーケンス番号がビューの最新かどうかを返す。
// 最新でない応答は破棄し、メトリクスに記録する。
func (c *Controller) isCurrent(v view, seq uint64) bool {
	if c.seq[v] == seq {
		return true
	}
	c.metrics.RecordStaleResponse(string(v))
	c.logger.Debug("古い応答を破棄しました",
		slog.String("view", string(v)),
		slog.Uint64("seq", seq),
		slog.Uint64("latest", c.seq[v]),
		slog.String("reason", model.ErrStaleResponse.Error()),
	)
	return false
}

// Snapshot は現在の表示内容を返す。キューに投入済みの操作がすべて反映された後の値になる。
func (c *Controller) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if !c.post(func() { reply <- c.snapshot() }) {
		return Snapshot{}
	}
	select {
	case s := <-reply:
		return s
	case <-c.done:
		return Snapshot{}
	}
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		Tab:              c.state.Tab(),
		Query:            c.state.Query(),
		DateRange:        c.state.DateRange(),
		Items:            c.state.Items(),
		Page:             c.state.PageInfo(),
		Loading:          c.state.Loading(),
		Sources:          append([]string(nil), c.sources...),
		Metals:           append([]string(nil), c.metals...),
		UnseenCount:      c.unseen,
		PendingReconcile: c.pendingReconcile,
		PendingEdits:     c.state.PendingCount(),
		AlertCount:       c.alertCount,
	}
	if d, ok := c.state.Detail(); ok {
		s.Detail = &d
	}
	if c.stats != nil {
		st := *c.stats
		s.Stats = &st
	}
	if c.lastAlert != nil {
		a := *c.lastAlert
		s.LastAlert = &a
	}
	return s
}

// render は現在の表示内容をRendererに渡す。
func (c *Controller) render() {
	c.renderer.Render(c.snapshot())
}

// notice はメッセージを表示する。
func (c *Controller) notice(level NoticeLevel, message string) {
	c.renderer.Notify(Notice{Level: level, Message: message, TTL: c.opts.NoticeTTL})
}

// noticeError はエラーをユーザー向けメッセージとして表示する。
func (c *Controller) noticeError(operation string, err error) {
	c.logger.Warn("操作に失敗しました",
		slog.String("operation", operation),
		slog.String("kind", string(model.KindOf(err))),
		slog.String("error", err.Error()),
	)
	c.notice(NoticeError, model.UserMessage(err))
}
