// Package viewstate は画面の表示状態（タブ、検索条件、一覧、楽観的変更）を保持する。
// ViewState はスレッドセーフではない。同期コントローラの単一キューからのみ操作する。
package viewstate

import (
	"github.com/hitoshi/newswatcher/internal/model"
)

// ViewState は現在のタブ・検索条件・取得済み一覧と、楽観的変更を保持する。
// items はサーバーから取得したままの値で、Items() が confirmed と overlays を重ねた結果を返す。
type ViewState struct {
	tab         model.Tab
	query       model.Query
	dateRange   model.DateRange
	items       []model.NewsItem
	totalCount  int
	currentPage int
	pageSize    int
	loading     bool
	detail      *model.NewsItem
	overlays    map[string]model.OverlayPatch
	confirmed   map[string]confirmedPatch
	fetchSeq    uint64
}

// confirmedPatch はバックエンドが受け付けた変更。
// fence 以前に発行された取得の結果は確定前の値を含みうるため、その上に重ね続ける。
type confirmedPatch struct {
	patch model.OverlayPatch
	fence uint64
}

// New は最新タブ・1ページ目の初期状態を生成する。
func New(pageSize int) *ViewState {
	q := model.Query{Page: 1}.Normalize(pageSize)
	return &ViewState{
		tab:         model.TabLatest,
		query:       q,
		currentPage: 1,
		pageSize:    q.PageSize,
		overlays:    make(map[string]model.OverlayPatch),
		confirmed:   make(map[string]confirmedPatch),
	}
}

// Tab は現在のタブを返す。
func (v *ViewState) Tab() model.Tab { return v.tab }

// SetTab はタブを切り替える。
// 一覧は取得し直すまで前のタブの内容を保持する。
func (v *ViewState) SetTab(tab model.Tab) {
	v.tab = tab
}

// Query は現在の検索条件を返す。
func (v *ViewState) Query() model.Query { return v.query }

// SetQuery は検索条件を正規化して設定する。ページサイズはセッション中固定。
func (v *ViewState) SetQuery(q model.Query) model.Query {
	v.query = q.Normalize(v.pageSize)
	return v.query
}

// DateRange はアーカイブ検索の期間を返す。
func (v *ViewState) DateRange() model.DateRange { return v.dateRange }

// SetDateRange はアーカイブ検索の期間を設定する。
func (v *ViewState) SetDateRange(dr model.DateRange) { v.dateRange = dr }

// PageSize はセッション中のページサイズを返す。
func (v *ViewState) PageSize() int { return v.pageSize }

// Loading は取得中かどうかを返す。
func (v *ViewState) Loading() bool { return v.loading }

// SetLoading は取得中フラグを設定する。
func (v *ViewState) SetLoading(loading bool) { v.loading = loading }

// BeginFetch は一覧・詳細の取得を発行するときに呼び、取得結果の反映時に渡す番号を返す。
func (v *ViewState) BeginFetch() uint64 {
	v.fetchSeq++
	return v.fetchSeq
}

// ApplyFetchResult は一覧と総件数を丸ごと置き換える。fetchはBeginFetchの戻り値。
// 結果に含まれる記事の保留中の変更のうち、取得値と一致するフィールドは確定済みとして消去する。
// 一致しないフィールドは保持し、Items() で取得値の上に重ねる。
func (v *ViewState) ApplyFetchResult(items []model.NewsItem, totalCount int, fetch uint64) {
	fresh := make([]model.NewsItem, len(items))
	for i, item := range items {
		fresh[i] = item.Clone()
		v.reconcile(fresh[i], fetch)
	}
	v.items = fresh
	v.totalCount = totalCount
	v.loading = false
}

// ApplyPage はページ単位の取得結果を反映する。
func (v *ViewState) ApplyPage(page model.NewsPage, fetch uint64) {
	v.ApplyFetchResult(page.Items, page.TotalCount, fetch)
	v.currentPage = page.CurrentPage
	if v.currentPage < 1 {
		v.currentPage = v.query.Page
	}
}

// reconcile は取得値で確認できた保留フィールドを消去する。
// 確定済みの変更は、確定より後に発行された取得の結果が届いた時点で消去する。
func (v *ViewState) reconcile(item model.NewsItem, fetch uint64) {
	if c, ok := v.confirmed[item.NewsID]; ok && fetch > c.fence {
		delete(v.confirmed, item.NewsID)
	}

	patch, ok := v.overlays[item.NewsID]
	if !ok {
		return
	}
	if patch.Rating != nil && *patch.Rating == item.Rating {
		patch.Rating = nil
	}
	if patch.IsRead != nil && *patch.IsRead == item.IsRead {
		patch.IsRead = nil
	}
	v.storeOverlay(item.NewsID, patch)
}

// SetOverlay は保留中の変更にpatchを重ねる。nilのフィールドは既存の値を維持する。
func (v *ViewState) SetOverlay(newsID string, patch model.OverlayPatch) {
	v.storeOverlay(newsID, mergePatch(v.overlays[newsID], patch))
}

// mergePatch はbaseにpatchの非nilフィールドを上書きしたコピーを返す。
func mergePatch(base, patch model.OverlayPatch) model.OverlayPatch {
	if patch.Rating != nil {
		r := *patch.Rating
		base.Rating = &r
	}
	if patch.IsRead != nil {
		b := *patch.IsRead
		base.IsRead = &b
	}
	return base
}

// ClearOverlay は記事の保留中・確定済みの変更をすべて消去する。
func (v *ViewState) ClearOverlay(newsID string) {
	delete(v.overlays, newsID)
	delete(v.confirmed, newsID)
}

// Overlay は記事の保留中の変更を返す。
func (v *ViewState) Overlay(newsID string) (model.OverlayPatch, bool) {
	p, ok := v.overlays[newsID]
	return p, ok
}

// PendingCount は保留中の変更がある記事数を返す。
func (v *ViewState) PendingCount() int { return len(v.overlays) }

func (v *ViewState) storeOverlay(newsID string, patch model.OverlayPatch) {
	if patch.IsEmpty() {
		delete(v.overlays, newsID)
		return
	}
	v.overlays[newsID] = patch
}

// Confirm はバックエンドが確定した値を取得済みの記事に反映し、
// 同じ値の保留フィールドを消去する。後から別の値で上書きされた保留は残す。
// 確定した値は、これ以降に発行された取得の結果が反映されるまで取得値の上に重ねる。
func (v *ViewState) Confirm(newsID string, applied model.OverlayPatch) {
	update := func(item *model.NewsItem) {
		if item.NewsID != newsID {
			return
		}
		*item = applied.ApplyTo(*item)
	}
	for i := range v.items {
		update(&v.items[i])
	}
	if v.detail != nil {
		update(v.detail)
	}

	c := v.confirmed[newsID]
	c.patch = mergePatch(c.patch, applied)
	c.fence = v.fetchSeq
	v.confirmed[newsID] = c

	current, ok := v.overlays[newsID]
	if !ok {
		return
	}
	if applied.Rating != nil && current.Rating != nil && *current.Rating == *applied.Rating {
		current.Rating = nil
	}
	if applied.IsRead != nil && current.IsRead != nil && *current.IsRead == *applied.IsRead {
		current.IsRead = nil
	}
	v.storeOverlay(newsID, current)
}

// Restore は失敗した楽観的変更を巻き戻す。
// appliedの各フィールドが現在も保留中の値と一致する場合のみ、priorの値（nilなら保留なし）に戻す。
func (v *ViewState) Restore(newsID string, applied, prior model.OverlayPatch) {
	current := v.overlays[newsID]
	if applied.Rating != nil && current.Rating != nil && *current.Rating == *applied.Rating {
		current.Rating = prior.Rating
	}
	if applied.IsRead != nil && current.IsRead != nil && *current.IsRead == *applied.IsRead {
		current.IsRead = prior.IsRead
	}
	v.storeOverlay(newsID, current)
}

// Items は保留中の変更を重ねた一覧のコピーを返す。
func (v *ViewState) Items() []model.NewsItem {
	out := make([]model.NewsItem, len(v.items))
	for i, item := range v.items {
		out[i] = v.merged(item)
	}
	return out
}

// TotalCount は総件数を返す。
func (v *ViewState) TotalCount() int { return v.totalCount }

// Item は一覧または詳細から記事を探し、保留中の変更を重ねて返す。
func (v *ViewState) Item(newsID string) (model.NewsItem, bool) {
	if v.detail != nil && v.detail.NewsID == newsID {
		return v.merged(*v.detail), true
	}
	for _, item := range v.items {
		if item.NewsID == newsID {
			return v.merged(item), true
		}
	}
	return model.NewsItem{}, false
}

func (v *ViewState) merged(item model.NewsItem) model.NewsItem {
	c := item.Clone()
	if confirmed, ok := v.confirmed[item.NewsID]; ok {
		c = confirmed.patch.ApplyTo(c)
	}
	if patch, ok := v.overlays[item.NewsID]; ok {
		c = patch.ApplyTo(c)
	}
	return c
}

// SetDetail は詳細表示中の記事を設定する。fetchはBeginFetchの戻り値。
func (v *ViewState) SetDetail(item model.NewsItem, fetch uint64) {
	c := item.Clone()
	v.reconcile(c, fetch)
	v.detail = &c
}

// ClearDetail は詳細を閉じる。
func (v *ViewState) ClearDetail() { v.detail = nil }

// Detail は詳細表示中の記事を返す。表示していない場合はfalse。
func (v *ViewState) Detail() (model.NewsItem, bool) {
	if v.detail == nil {
		return model.NewsItem{}, false
	}
	return v.merged(*v.detail), true
}

// RemoveItem は削除された記事を一覧から取り除く。
func (v *ViewState) RemoveItem(newsID string) {
	kept := v.items[:0]
	removed := 0
	for _, item := range v.items {
		if item.NewsID == newsID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	v.items = kept
	if v.totalCount >= removed {
		v.totalCount -= removed
	}
	v.ClearOverlay(newsID)
	if v.detail != nil && v.detail.NewsID == newsID {
		v.detail = nil
	}
}

// PageInfo は現在のページネーション情報を返す。
func (v *ViewState) PageInfo() model.PageInfo {
	return model.NewPageInfo(v.currentPage, v.pageSize, v.totalCount)
}
