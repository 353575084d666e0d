package syncctl

import (
	"context"
	"log/slog"

	"github.com/hitoshi/newswatcher/internal/model"
)

// SwitchTab はタブを切り替える。
// 最新タブへの切替では保留中の再取得を取り消し、取得をちょうど1回行う。
func (c *Controller) SwitchTab(tab model.Tab) {
	c.post(func() { c.switchTab(tab) })
}

func (c *Controller) switchTab(tab model.Tab) {
	if !tab.Valid() {
		c.notice(NoticeError, "不明なタブです: "+string(tab))
		return
	}

	prev := c.state.Tab()
	c.state.SetTab(tab)
	c.gate.SetFeedActive(tab == model.TabLatest)
	if prev != tab {
		// 前のタブ向けの取得結果は反映しない
		c.next(viewFeed)
		c.next(viewArchive)
		c.state.SetLoading(false)
	}

	switch tab {
	case model.TabLatest:
		c.cancelReconcile()
		c.pendingReconcile = false
		c.fetchFeed(false)
	case model.TabArchive:
		if prev != tab {
			c.state.ApplyFetchResult(nil, 0, 0)
		}
		c.render()
	case model.TabStats:
		c.loadStats()
	default:
		c.render()
	}
}

// Search は検索条件を設定して現在の一覧を取得し直す。
// 一覧のないタブでは最新タブに切り替える。
func (c *Controller) Search(q model.Query) {
	c.post(func() {
		q.Page = 1
		c.state.SetQuery(q)
		c.reloadList()
	})
}

// SetPage はページを移動する。
func (c *Controller) SetPage(page int) {
	c.post(func() {
		q := c.state.Query()
		q.Page = page
		c.state.SetQuery(q)
		c.reloadList()
	})
}

// Refresh は現在のタブの内容を取得し直す。
// ユーザー操作による更新はシーケンス番号のみで順序を保証し、取得中ゲートは通さない。
func (c *Controller) Refresh() {
	c.post(func() {
		switch c.state.Tab() {
		case model.TabLatest:
			c.fetchFeed(false)
		case model.TabArchive:
			c.fetchArchive()
		case model.TabStats:
			c.loadStats()
		default:
			c.render()
		}
	})
}

// TimerTick は自動更新タイマーのティックを処理する。
// スケジューラのゲートを通過した後に呼ばれ、取得完了時にゲートを解放する。
func (c *Controller) TimerTick() {
	ok := c.post(func() {
		if c.state.Tab() != model.TabLatest {
			c.gate.EndRefresh()
			return
		}
		c.fetchFeed(true)
	})
	if !ok {
		c.gate.EndRefresh()
	}
}

func (c *Controller) reloadList() {
	switch c.state.Tab() {
	case model.TabArchive:
		c.fetchArchive()
	case model.TabLatest:
		c.fetchFeed(false)
	default:
		c.switchTab(model.TabLatest)
	}
}

// fetchFeed は最新タブの一覧を取得する。
// 条件が指定されていない場合は最新ニュース、指定されている場合は検索APIを使う。
// gatedがtrueの場合は取得完了時にゲートを解放する。
func (c *Controller) fetchFeed(gated bool) {
	seq := c.next(viewFeed)
	fetch := c.state.BeginFetch()
	mark := c.markUnseen()
	q := c.state.Query()
	c.state.SetLoading(true)
	c.render()

	release := func() {
		if gated {
			c.gate.EndRefresh()
		}
	}

	c.background(func(ctx context.Context) func() {
		var page model.NewsPage
		var err error
		if q.HasFilters() {
			page, err = c.gw.Search(ctx, q)
		} else {
			page, err = c.gw.FetchLatest(ctx, q.PageSize, q.Offset())
		}
		return func() {
			release()
			c.applyList(viewFeed, seq, fetch, mark, page, err)
		}
	}, release)
}

// SearchArchive は期間を指定してアーカイブを検索する。
// 期間の検証に失敗した場合はバックエンドを呼び出さない。
func (c *Controller) SearchArchive(dr model.DateRange, q model.Query) {
	c.post(func() {
		if err := dr.Validate(); err != nil {
			c.noticeError("search_archive", err)
			return
		}
		if c.state.Tab() != model.TabArchive {
			c.state.SetTab(model.TabArchive)
			c.gate.SetFeedActive(false)
			c.next(viewFeed)
		}
		q.Page = 1
		c.state.SetDateRange(dr)
		c.state.SetQuery(q)
		c.fetchArchive()
	})
}

func (c *Controller) fetchArchive() {
	dr := c.state.DateRange()
	if err := dr.Validate(); err != nil {
		c.noticeError("search_archive", err)
		return
	}

	seq := c.next(viewArchive)
	fetch := c.state.BeginFetch()
	q := c.state.Query()
	c.state.SetLoading(true)
	c.render()

	c.background(func(ctx context.Context) func() {
		page, err := c.gw.SearchArchive(ctx, dr, q)
		return func() { c.applyList(viewArchive, seq, fetch, unseenMark{}, page, err) }
	}, nil)
}

// applyList は一覧の取得結果を反映する。
// 失敗時は読み込み中表示を解除してメッセージを出し、既存の一覧は変更しない。
func (c *Controller) applyList(v view, seq, fetch uint64, mark unseenMark, page model.NewsPage, err error) {
	if !c.isCurrent(v, seq) {
		return
	}
	c.state.SetLoading(false)
	if err != nil {
		c.noticeError(string(v), err)
		c.render()
		return
	}

	c.state.ApplyPage(page, fetch)
	if v == viewFeed {
		c.settleUnseen(mark)
	}
	c.logger.Debug("一覧を更新しました",
		slog.String("view", string(v)),
		slog.Int("count", len(page.Items)),
		slog.Int("total_count", page.TotalCount),
	)
	c.render()
}

// OpenDetail は記事の詳細を表示する。
// 未読の記事は詳細表示1回につき1回だけ既読にする。
func (c *Controller) OpenDetail(newsID string) {
	c.post(func() {
		seq := c.next(viewDetail)
		if item, ok := c.state.Item(newsID); ok && !item.IsRead {
			c.autoMarkRead(seq, newsID)
		}
		c.render()

		fetch := c.state.BeginFetch()
		c.background(func(ctx context.Context) func() {
			item, err := c.gw.FetchDetail(ctx, newsID)
			return func() { c.applyDetail(seq, fetch, newsID, item, err) }
		}, nil)
	})
}

// CloseDetail は詳細表示を閉じる。取得中の詳細は反映しない。
func (c *Controller) CloseDetail() {
	c.post(func() {
		c.next(viewDetail)
		c.state.ClearDetail()
		c.render()
	})
}

func (c *Controller) applyDetail(seq, fetch uint64, newsID string, item model.NewsItem, err error) {
	if !c.isCurrent(viewDetail, seq) {
		return
	}
	if err != nil {
		c.noticeError("get_news_detail", err)
		c.render()
		return
	}

	c.state.SetDetail(item, fetch)
	if merged, ok := c.state.Detail(); ok && !merged.IsRead {
		c.autoMarkRead(seq, newsID)
	}
	c.render()
}

// autoMarkRead は詳細表示による既読化を行う。同じ詳細表示では2回目以降は何もしない。
func (c *Controller) autoMarkRead(seq uint64, newsID string) {
	if c.autoReadSeq == seq {
		return
	}
	c.autoReadSeq = seq
	c.setReadState(newsID, true)
}

// reloadDetail は表示中の詳細を取得し直す。既読化は行わない。
func (c *Controller) reloadDetail(newsID string) {
	d, ok := c.state.Detail()
	if !ok || d.NewsID != newsID {
		return
	}
	seq := c.next(viewDetail)
	c.autoReadSeq = seq
	fetch := c.state.BeginFetch()
	c.background(func(ctx context.Context) func() {
		item, err := c.gw.FetchDetail(ctx, newsID)
		return func() { c.applyDetail(seq, fetch, newsID, item, err) }
	}, nil)
}

// LoadFilters は検索条件の選択肢（ソース・金属）を取得する。
func (c *Controller) LoadFilters() {
	c.post(func() {
		c.background(func(ctx context.Context) func() {
			sources, srcErr := c.gw.FetchSourcesList(ctx)
			metals, metErr := c.gw.FetchMetalsList(ctx)
			return func() {
				if srcErr != nil {
					c.logger.Warn("ソース一覧の取得に失敗しました", slog.String("error", srcErr.Error()))
				} else {
					c.sources = sources
				}
				if metErr != nil {
					c.logger.Warn("金属一覧の取得に失敗しました", slog.String("error", metErr.Error()))
				} else {
					c.metals = metals
				}
				c.render()
			}
		}, nil)
	})
}

// loadStats はシステム統計とAI分析統計を取得する。
func (c *Controller) loadStats() {
	seq := c.next(viewStats)
	c.render()

	c.background(func(ctx context.Context) func() {
		system, err := c.gw.FetchSystemStats(ctx)
		var analysis model.AnalysisStats
		if err == nil {
			analysis, err = c.gw.FetchAnalysisStats(ctx)
		}
		return func() {
			if !c.isCurrent(viewStats, seq) {
				return
			}
			if err != nil {
				c.noticeError("get_system_stats", err)
				c.render()
				return
			}
			c.stats = &Stats{System: system, Analysis: analysis}
			c.render()
		}
	}, nil)
}
