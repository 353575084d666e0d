package syncctl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/newswatcher/internal/model"
)

// SetRating は記事の評価を楽観的に更新する。RatingNone は評価の解除。
// 評価のない記事の解除はバックエンドを呼ばずに成功とする。
func (c *Controller) SetRating(newsID string, rating model.Rating) {
	c.post(func() {
		if !rating.Valid() {
			c.noticeError("update_news_rating", model.NewInvalidRatingError(int(rating)))
			return
		}
		if rating == model.RatingNone {
			if item, ok := c.state.Item(newsID); ok && item.Rating == model.RatingNone {
				c.logger.Debug("評価のない記事の解除は何もしません", slog.String("news_id", newsID))
				return
			}
		}

		applied := model.OverlayPatch{Rating: model.RatingPtr(rating)}
		c.mutate(newsID, "rating", applied, func(ctx context.Context) error {
			return c.gw.MutateRating(ctx, newsID, rating)
		})
	})
}

// SetReadState は記事の既読・未読を楽観的に更新する。
func (c *Controller) SetReadState(newsID string, isRead bool) {
	c.post(func() { c.setReadState(newsID, isRead) })
}

func (c *Controller) setReadState(newsID string, isRead bool) {
	applied := model.OverlayPatch{IsRead: model.BoolPtr(isRead)}
	c.mutate(newsID, "is_read", applied, func(ctx context.Context) error {
		return c.gw.SetReadState(ctx, newsID, isRead)
	})
}

// mutate は楽観的変更を適用して即座に描画し、バックエンドの結果に応じて確定または巻き戻す。
func (c *Controller) mutate(newsID, field string, applied model.OverlayPatch, call func(ctx context.Context) error) {
	prior, _ := c.state.Overlay(newsID)
	c.state.SetOverlay(newsID, applied)
	c.render()

	c.background(func(ctx context.Context) func() {
		err := call(ctx)
		return func() {
			if err != nil {
				c.state.Restore(newsID, applied, prior)
				c.metrics.RecordRollback(field)
				c.logger.Warn("楽観的更新を巻き戻しました",
					slog.String("news_id", newsID),
					slog.String("field", field),
				)
				c.noticeError("update_"+field, err)
			} else {
				c.state.Confirm(newsID, applied)
			}
			c.render()
		}
	}, nil)
}

// SubmitManualEntry はニュースを手動登録する。成功すると最新タブに切り替える。
func (c *Controller) SubmitManualEntry(entry model.ManualEntry) {
	c.post(func() {
		if err := entry.Validate(); err != nil {
			c.noticeError("add_manual_news", err)
			return
		}
		c.background(func(ctx context.Context) func() {
			newsID, err := c.gw.SubmitManualEntry(ctx, entry)
			return func() {
				if err != nil {
					c.noticeError("add_manual_news", err)
					return
				}
				c.logger.Info("ニュースを手動登録しました", slog.String("news_id", newsID))
				c.notice(NoticeInfo, "ニュースを登録しました")
				c.switchTab(model.TabLatest)
			}
		}, nil)
	})
}

// DeleteManualEntry は手動登録したニュースを削除する。
// 成功すると詳細を閉じて現在のタブを取得し直す。
func (c *Controller) DeleteManualEntry(newsID string) {
	c.post(func() {
		c.background(func(ctx context.Context) func() {
			err := c.gw.DeleteManualEntry(ctx, newsID)
			return func() {
				if err != nil {
					c.noticeError("delete_manual_news", err)
					return
				}
				if d, ok := c.state.Detail(); ok && d.NewsID == newsID {
					c.next(viewDetail)
				}
				c.state.RemoveItem(newsID)
				c.notice(NoticeInfo, "ニュースを削除しました")
				switch c.state.Tab() {
				case model.TabLatest:
					c.fetchFeed(false)
				case model.TabArchive:
					c.fetchArchive()
				default:
					c.render()
				}
			}
		}, nil)
	})
}

// TriggerAnalysis は記事のAI分析を要求する。詳細表示中なら結果を取得し直す。
func (c *Controller) TriggerAnalysis(newsID string) {
	c.post(func() {
		c.background(func(ctx context.Context) func() {
			err := c.gw.TriggerAnalysis(ctx, newsID)
			return func() {
				if err != nil {
					c.noticeError("analyze_news", err)
					return
				}
				c.notice(NoticeInfo, "AI分析が完了しました")
				c.reloadDetail(newsID)
			}
		}, nil)
	})
}

// SaveAnalysisEdit は編集した分析結果を保存する。詳細表示中なら取得し直す。
func (c *Controller) SaveAnalysisEdit(newsID string, edit model.AnalysisEdit) {
	c.post(func() {
		if err := edit.Validate(); err != nil {
			c.noticeError("update_news_analysis", err)
			return
		}
		c.background(func(ctx context.Context) func() {
			err := c.gw.SaveAnalysisEdit(ctx, newsID, edit)
			return func() {
				if err != nil {
					c.noticeError("update_news_analysis", err)
					return
				}
				c.notice(NoticeInfo, "分析結果を保存しました")
				c.reloadDetail(newsID)
			}
		}, nil)
	})
}

// CollectNow はバックエンドにニュース収集を即時実行させ、最新タブ表示中なら取得し直す。
// 収集中は自動更新のティックを止める。
func (c *Controller) CollectNow() {
	c.post(func() {
		c.gate.Suspend()
		c.background(func(ctx context.Context) func() {
			res, err := c.gw.CollectNow(ctx)
			return func() {
				c.gate.Resume()
				if err != nil {
					c.noticeError("manual_collect_news", err)
					return
				}
				c.notice(NoticeInfo, fmt.Sprintf("%d件のニュースを収集しました", res.CollectedCount))
				if c.state.Tab() == model.TabLatest {
					c.fetchFeed(false)
				}
			}
		}, c.gate.Resume)
	})
}

// SetRefreshInterval は自動更新の間隔を変更し、設定を保存する。0以下で自動更新を無効にする。
func (c *Controller) SetRefreshInterval(interval time.Duration) {
	c.post(func() {
		if interval <= 0 {
			c.gate.Disable()
		} else if err := c.gate.Enable(interval); err != nil {
			c.noticeError("set_refresh_interval", model.NewValidationError(err.Error()))
			return
		}
		if c.prefs == nil {
			return
		}
		c.background(func(ctx context.Context) func() {
			err := c.prefs.SetRefreshInterval(ctx, interval)
			return func() {
				if err != nil {
					c.logger.Warn("更新間隔の保存に失敗しました", slog.String("error", err.Error()))
				}
			}
		}, nil)
	})
}
