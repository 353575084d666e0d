package syncctl

import (
	"log/slog"
	"time"

	"github.com/hitoshi/newswatcher/internal/model"
)

// handleDataAvailable は新着データ通知を処理する。
// 最新タブ表示中は少し待ってから再取得し、それ以外のタブでは再取得を保留する。
func (c *Controller) handleDataAvailable(d model.DataAvailable) {
	c.unseen += d.NewCount
	c.dataSeq++
	c.logger.Info("新着データの通知を受信しました",
		slog.Int("new_count", d.NewCount),
		slog.Int("unseen", c.unseen),
	)

	if c.state.Tab() == model.TabLatest {
		c.scheduleReconcile()
	} else {
		c.pendingReconcile = true
	}
	c.render()
}

// unseenMark は最新一覧の取得を発行した時点の新着通知の状態。
type unseenMark struct {
	dataSeq uint64
	unseen  int
}

func (c *Controller) markUnseen() unseenMark {
	return unseenMark{dataSeq: c.dataSeq, unseen: c.unseen}
}

// settleUnseen は最新一覧の反映後に、取得発行時点までに通知された件数だけ未確認件数を減らす。
// 取得中に新着通知が届いていた場合は、その分の再取得を予約し直す。
func (c *Controller) settleUnseen(mark unseenMark) {
	c.unseen -= mark.unseen
	if c.unseen < 0 {
		c.unseen = 0
	}
	c.pendingReconcile = false
	if c.dataSeq != mark.dataSeq {
		c.logger.Debug("取得中に新着データが通知されたため再取得を予約します",
			slog.Int("unseen", c.unseen),
		)
		c.scheduleReconcile()
	}
}

// scheduleReconcile は遅延再取得を予約する。予約済みの場合はまとめる。
func (c *Controller) scheduleReconcile() {
	if c.reconcileTimer != nil {
		return
	}
	gen := c.reconcileGen
	c.reconcileTimer = time.AfterFunc(c.opts.ReconcileDelay, func() {
		c.post(func() {
			if gen != c.reconcileGen {
				return
			}
			c.reconcileTimer = nil
			c.reconcile()
		})
	})
}

// cancelReconcile は予約済みの遅延再取得を取り消す。
func (c *Controller) cancelReconcile() {
	if c.reconcileTimer != nil {
		c.reconcileTimer.Stop()
		c.reconcileTimer = nil
	}
	c.reconcileGen++
}

// reconcile は手動更新と同じ経路で最新一覧を取得する。取得中の場合は破棄する。
func (c *Controller) reconcile() {
	if c.state.Tab() != model.TabLatest {
		c.pendingReconcile = true
		c.render()
		return
	}
	if !c.gate.BeginRefresh() {
		c.logger.Debug("取得中のため新着データの再取得を破棄しました")
		return
	}
	c.fetchFeed(true)
}

// handleHighImportance は重要ニュース通知を処理する。
// どのタブでもアラートを表示し、件数と最新の通知を保持する。
func (c *Controller) handleHighImportance(a model.HighImportanceAlert) {
	c.alertCount++
	alert := a
	c.lastAlert = &alert
	c.logger.Info("重要ニュースの通知を受信しました",
		slog.String("news_id", a.NewsID),
		slog.Int("importance_score", a.ImportanceScore),
		slog.Int("alert_count", c.alertCount),
	)
	c.renderer.Alert(a, c.opts.AlertTTL)
	c.render()
}

// ClearAlerts は重要ニュースの件数と保持中の通知を消去する。
func (c *Controller) ClearAlerts() {
	c.post(func() {
		c.alertCount = 0
		c.lastAlert = nil
		c.render()
	})
}
