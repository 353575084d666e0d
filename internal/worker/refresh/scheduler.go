// Package refresh は最新フィードの自動更新タイマーと、取得の多重実行防止を提供する。
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hitoshi/newswatcher/internal/metrics"
)

// State はスケジューラの状態。
type State int

const (
	// StateIdle はタイマー未設定。
	StateIdle State = iota
	// StateScheduled はタイマー稼働中。
	StateScheduled
	// StateSuspended はタイマーを保持したままティックを無効化している状態。
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateSuspended:
		return "suspended"
	}
	return "unknown"
}

// MinInterval は設定可能な最短の更新間隔。
const MinInterval = time.Second

// Scheduler は自動更新タイマーを管理する。
// 最新タブ以外ではティックを無視し、取得中のティックは破棄する（キューイングしない）。
type Scheduler struct {
	cron    *cron.Cron
	onTick  func()
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	mu         sync.Mutex
	entryID    cron.EntryID
	state      State
	interval   time.Duration
	feedActive bool
	inFlight   bool
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// onTickはゲートを通過したティックごとに呼ばれ、呼び出し側は取得完了時にEndRefreshを呼ぶ。
func NewScheduler(onTick func(), logger *slog.Logger, collector metrics.MetricsCollector) *Scheduler {
	if collector == nil {
		collector = metrics.Nop{}
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:       cron.New(cron.WithChain(cron.Recover(cl)), cron.WithLogger(cl)),
		onTick:     onTick,
		logger:     logger,
		metrics:    collector,
		feedActive: true,
	}
}

// Start はタイマーを起動し、コンテキストがキャンセルされるまでブロックする。
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("自動更新スケジューラを開始しました")

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("自動更新スケジューラを停止しました")
}

// Enable は指定間隔でタイマーを設定する。設定済みの場合は間隔を置き換える。
func (s *Scheduler) Enable(interval time.Duration) error {
	if interval < MinInterval {
		return fmt.Errorf("更新間隔は%s以上で指定してください: %s", MinInterval, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeEntryLocked()
	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.Tick)
	if err != nil {
		return fmt.Errorf("自動更新タイマーの設定に失敗しました: %w", err)
	}
	s.entryID = id
	s.interval = interval
	s.state = StateScheduled

	s.logger.Info("自動更新を有効にしました", slog.Duration("interval", interval))
	return nil
}

// Disable はタイマーを解除する。
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeEntryLocked()
	s.state = StateIdle
	s.logger.Info("自動更新を無効にしました")
}

func (s *Scheduler) removeEntryLocked() {
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
}

// Suspend はタイマーを保持したままティックを無効にする。
func (s *Scheduler) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateScheduled {
		s.state = StateSuspended
	}
}

// Resume は一時停止したタイマーを再開する。
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSuspended {
		s.state = StateScheduled
	}
}

// SetFeedActive は最新タブが表示中かどうかを設定する。タブ切替時に呼ばれる。
func (s *Scheduler) SetFeedActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedActive = active
}

// State は現在の状態を返す。
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Interval は設定中の更新間隔を返す。
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Tick はタイマー1回分の処理を行う。
// 稼働中・最新タブ表示中・取得中でない場合のみonTickを呼ぶ。
func (s *Scheduler) Tick() {
	s.mu.Lock()
	outcome := metrics.TickFired
	switch {
	case s.state != StateScheduled:
		outcome = metrics.TickNotArmed
	case !s.feedActive:
		outcome = metrics.TickSkippedTab
	case s.inFlight:
		outcome = metrics.TickDropped
	default:
		s.inFlight = true
	}
	s.mu.Unlock()

	s.metrics.RecordRefreshTick(outcome)
	if outcome != metrics.TickFired {
		s.logger.Debug("自動更新ティックをスキップしました", slog.String("outcome", outcome))
		return
	}
	s.onTick()
}

// BeginRefresh は取得中フラグを取得する。既に取得中の場合はfalseを返す。
// プッシュ通知による再取得もこのゲートを通る。
func (s *Scheduler) BeginRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	return true
}

// EndRefresh は取得中フラグを解放する。
func (s *Scheduler) EndRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

// InFlight は取得中かどうかを返す。
func (s *Scheduler) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// cronLogger はcronのログをslogに出力するアダプタ。
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]any{slog.String("error", err.Error())}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}
