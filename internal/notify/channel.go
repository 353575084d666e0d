// Package notify はバックエンドからのプッシュ通知を購読者に配送する。
// 通知は到着順に1つのgoroutineで配送され、ハンドラ同士が並行に呼ばれることはない。
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/newswatcher/internal/model"
)

// defaultBufferSize は配送待ちイベントのバッファ数。
const defaultBufferSize = 256

// ErrNilEvent はnilのイベントが発行された場合のエラー。
var ErrNilEvent = errors.New("通知イベントがnilです")

// Publisher は通知イベントをチャネルに投入するインターフェース。
// HTTP受信ハンドラとNATS購読者が実装を共有する。
type Publisher interface {
	Publish(ctx context.Context, event model.NotificationEvent) error
}

// Channel はプッシュ通知の受信口。
// OnHighImportance / OnDataAvailable で購読し、Run で配送を開始する。
type Channel struct {
	events chan model.NotificationEvent
	logger *slog.Logger

	mu           sync.RWMutex
	highHandlers []func(model.HighImportanceAlert)
	dataHandlers []func(model.DataAvailable)
}

// NewChannel はChannelの新しいインスタンスを生成する。
// bufferSizeが0以下の場合はデフォルト値256を使用する。
func NewChannel(logger *slog.Logger, bufferSize int) *Channel {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Channel{
		events: make(chan model.NotificationEvent, bufferSize),
		logger: logger,
	}
}

// OnHighImportance は重要ニュース通知のハンドラを登録する。
func (c *Channel) OnHighImportance(handler func(model.HighImportanceAlert)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.highHandlers = append(c.highHandlers, handler)
}

// OnDataAvailable は新着データ通知のハンドラを登録する。
func (c *Channel) OnDataAvailable(handler func(model.DataAvailable)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dataHandlers = append(c.dataHandlers, handler)
}

// Publish はイベントを配送キューに投入する。
// キューが満杯の場合はctxがキャンセルされるまでブロックする。
func (c *Channel) Publish(ctx context.Context, event model.NotificationEvent) error {
	if event == nil {
		return ErrNilEvent
	}
	select {
	case c.events <- event:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("通知イベントの投入を中断しました: %w", ctx.Err())
	}
}

// Run はコンテキストがキャンセルされるまでイベントを到着順に配送する。
func (c *Channel) Run(ctx context.Context) {
	c.logger.Info("通知チャネルの配送を開始しました")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("通知チャネルの配送を停止しました")
			return
		case event := <-c.events:
			c.dispatch(event)
		}
	}
}

// dispatch はイベント種別に応じて登録済みハンドラを順に呼び出す。
func (c *Channel) dispatch(event model.NotificationEvent) {
	c.mu.RLock()
	high := c.highHandlers
	data := c.dataHandlers
	c.mu.RUnlock()

	switch ev := event.(type) {
	case model.HighImportanceAlert:
		for _, h := range high {
			c.invoke(event.Kind(), func() { h(ev) })
		}
	case model.DataAvailable:
		for _, h := range data {
			c.invoke(event.Kind(), func() { h(ev) })
		}
	default:
		c.logger.Warn("未知の通知イベントを破棄しました",
			slog.String("type", fmt.Sprintf("%T", event)),
		)
	}
}

// invoke はハンドラを呼び出す。パニックは回復してログに記録し、後続の配送を継続する。
func (c *Channel) invoke(kind model.EventKind, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("通知ハンドラでパニックが発生しました",
				slog.String("kind", string(kind)),
				slog.Any("panic", r),
			)
		}
	}()
	fn()
}
