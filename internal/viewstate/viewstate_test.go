package viewstate

import (
	"testing"

	"github.com/hitoshi/newswatcher/internal/model"
)

func item(id string, rating model.Rating, isRead bool) model.NewsItem {
	return model.NewsItem{NewsID: id, Title: "title " + id, Rating: rating, IsRead: isRead}
}

func TestNew_InitialState(t *testing.T) {
	v := New(50)

	if v.Tab() != model.TabLatest {
		t.Errorf("Tab = %q, want latest", v.Tab())
	}
	q := v.Query()
	if q.Page != 1 || q.PageSize != 50 || q.SortBy != model.SortSmart {
		t.Errorf("Query = %+v", q)
	}
	if len(v.Items()) != 0 || v.TotalCount() != 0 {
		t.Error("初期状態では一覧は空であるべき")
	}
}

func TestApplyFetchResult_ReplacesWholesale(t *testing.T) {
	v := New(50)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 0, false), item("n2", 0, false)}, 2, v.BeginFetch())
	v.ApplyFetchResult([]model.NewsItem{item("n3", 1, true)}, 10, v.BeginFetch())

	items := v.Items()
	if len(items) != 1 || items[0].NewsID != "n3" {
		t.Errorf("Items = %+v, want [n3]", items)
	}
	if v.TotalCount() != 10 {
		t.Errorf("TotalCount = %d, want 10", v.TotalCount())
	}
}

func TestApplyFetchResult_ClearsConfirmedOverlay(t *testing.T) {
	v := New(50)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 0, false)}, 1, v.BeginFetch())
	v.SetOverlay("n1", model.OverlayPatch{Rating: model.RatingPtr(2)})

	// 取得結果が保留値と一致 → 確定として消去
	v.ApplyFetchResult([]model.NewsItem{item("n1", 2, false)}, 1, v.BeginFetch())

	if _, ok := v.Overlay("n1"); ok {
		t.Error("取得値と一致した保留は消去されるべき")
	}
	if got := v.Items()[0].Rating; got != 2 {
		t.Errorf("Rating = %d, want 2", got)
	}
}

func TestApplyFetchResult_ReappliesUnconfirmedOverlay(t *testing.T) {
	v := New(50)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 0, false)}, 1, v.BeginFetch())
	v.SetOverlay("n1", model.OverlayPatch{Rating: model.RatingPtr(3), IsRead: model.BoolPtr(true)})

	// 並行した更新で古い値が返ってきても楽観的変更は失われない
	v.ApplyFetchResult([]model.NewsItem{item("n1", 1, true)}, 1, v.BeginFetch())

	got := v.Items()[0]
	if got.Rating != 3 {
		t.Errorf("Rating = %d, want 3（保留値を重ねる）", got.Rating)
	}
	if !got.IsRead {
		t.Error("IsRead は true であるべき")
	}
	patch, ok := v.Overlay("n1")
	if !ok {
		t.Fatal("未確定の保留は残るべき")
	}
	if patch.IsRead != nil {
		t.Error("一致したIsReadは消去されるべき")
	}
	if patch.Rating == nil || *patch.Rating != 3 {
		t.Error("一致しないRatingは残るべき")
	}
}

func TestApplyFetchResult_KeepsOverlayForAbsentItem(t *testing.T) {
	v := New(50)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 0, false)}, 1, v.BeginFetch())
	v.SetOverlay("n1", model.OverlayPatch{Rating: model.RatingPtr(1)})

	v.ApplyFetchResult([]model.NewsItem{item("n2", 0, false)}, 1, v.BeginFetch())

	if _, ok := v.Overlay("n1"); !ok {
		t.Error("結果に含まれない記事の保留は残るべき")
	}
}

func TestApplyFetchResult_DoesNotAliasInput(t *testing.T) {
	v := New(50)
	input := []model.NewsItem{item("n1", 0, false)}
	input[0].RelatedMetals = []string{"Copper"}
	v.ApplyFetchResult(input, 1, v.BeginFetch())

	input[0].Title = "changed"
	input[0].RelatedMetals[0] = "Gold"

	got := v.Items()[0]
	if got.Title != "title n1" || got.RelatedMetals[0] != "Copper" {
		t.Errorf("入力スライスの変更が状態に影響した: %+v", got)
	}
}

func TestSetOverlay_MergesFields(t *testing.T) {
	v := New(50)
	v.SetOverlay("n1", model.OverlayPatch{Rating: model.RatingPtr(2)})
	v.SetOverlay("n1", model.OverlayPatch{IsRead: model.BoolPtr(true)})

	patch, ok := v.Overlay("n1")
	if !ok || patch.Rating == nil || patch.IsRead == nil {
		t.Fatalf("patch = %+v, 両方のフィールドが保留されるべき", patch)
	}
	if *patch.Rating != 2 || !*patch.IsRead {
		t.Errorf("patch = rating %d, read %v", *patch.Rating, *patch.IsRead)
	}

	v.ClearOverlay("n1")
	if v.PendingCount() != 0 {
		t.Error("ClearOverlay 後は保留がないべき")
	}
}

func TestConfirm_UpdatesItemAndClearsOverlay(t *testing.T) {
	v := New(50)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 0, false)}, 1, v.BeginFetch())
	applied := model.OverlayPatch{Rating: model.RatingPtr(2)}
	v.SetOverlay("n1", applied)

	v.Confirm("n1", applied)

	if _, ok := v.Overlay("n1"); ok {
		t.Error("確定後は保留が消去されるべき")
	}
	if got := v.Items()[0].Rating; got != 2 {
		t.Errorf("Rating = %d, want 2", got)
	}
}

func TestConfirm_KeepsNewerOverlay(t *testing.T) {
	v := New(50)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 0, false)}, 1, v.BeginFetch())
	first := model.OverlayPatch{Rating: model.RatingPtr(2)}
	v.SetOverlay("n1", first)
	v.SetOverlay("n1", model.OverlayPatch{Rating: model.RatingPtr(3)})

	v.Confirm("n1", first)

	if got := v.Items()[0].Rating; got != 3 {
		t.Errorf("Rating = %d, want 3（後の保留が優先）", got)
	}
}

func TestConfirm_SurvivesFetchIssuedBeforeConfirmation(t *testing.T) {
	v := New(50)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 1, false)}, 1, v.BeginFetch())

	// 変更の確定前に発行した取得が、確定の後に届く
	inflight := v.BeginFetch()
	applied := model.OverlayPatch{Rating: model.RatingPtr(2)}
	v.SetOverlay("n1", applied)
	v.Confirm("n1", applied)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 1, false)}, 1, inflight)

	if got := v.Items()[0].Rating; got != 2 {
		t.Errorf("Rating = %d, want 2（確定前の取得値で戻ってはならない）", got)
	}

	// 確定後に発行した取得はバックエンドの値をそのまま使う
	v.ApplyFetchResult([]model.NewsItem{item("n1", 3, false)}, 1, v.BeginFetch())
	if got := v.Items()[0].Rating; got != 3 {
		t.Errorf("Rating = %d, want 3（確定後の取得値）", got)
	}
}

func TestConfirm_DetailFetchedBeforeConfirmationStaysRead(t *testing.T) {
	v := New(50)
	inflight := v.BeginFetch()
	applied := model.OverlayPatch{IsRead: model.BoolPtr(true)}
	v.SetOverlay("n1", applied)
	v.Confirm("n1", applied)

	v.SetDetail(item("n1", 0, false), inflight)

	got, ok := v.Detail()
	if !ok || !got.IsRead {
		t.Errorf("Detail = %+v, 確定済みの既読が重なるべき", got)
	}
	if found, _ := v.Item("n1"); !found.IsRead {
		t.Error("Item も既読を返すべき")
	}
}

func TestRestore_FallsBackToConfirmedValue(t *testing.T) {
	v := New(50)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 0, false)}, 1, v.BeginFetch())
	first := model.OverlayPatch{Rating: model.RatingPtr(2)}
	v.SetOverlay("n1", first)
	v.Confirm("n1", first)

	prior, _ := v.Overlay("n1")
	second := model.OverlayPatch{Rating: model.RatingPtr(3)}
	v.SetOverlay("n1", second)
	v.Restore("n1", second, prior)

	if got := v.Items()[0].Rating; got != 2 {
		t.Errorf("Rating = %d, want 2（確定済みの値）", got)
	}
}

func TestRestore_RevertsToPriorValue(t *testing.T) {
	v := New(50)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 1, false)}, 1, v.BeginFetch())
	prior, _ := v.Overlay("n1")
	applied := model.OverlayPatch{Rating: model.RatingPtr(3)}
	v.SetOverlay("n1", applied)

	if got := v.Items()[0].Rating; got != 3 {
		t.Fatalf("楽観的変更が反映されていない: %d", got)
	}

	v.Restore("n1", applied, prior)

	if got := v.Items()[0].Rating; got != 1 {
		t.Errorf("Rating = %d, want 1（変更前の値）", got)
	}
	if v.PendingCount() != 0 {
		t.Error("巻き戻し後は保留がないべき")
	}
}

func TestRestore_ReturnsToEarlierPendingValue(t *testing.T) {
	v := New(50)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 0, false)}, 1, v.BeginFetch())
	v.SetOverlay("n1", model.OverlayPatch{Rating: model.RatingPtr(1)})
	prior, _ := v.Overlay("n1")
	applied := model.OverlayPatch{Rating: model.RatingPtr(2)}
	v.SetOverlay("n1", applied)

	v.Restore("n1", applied, prior)

	if got := v.Items()[0].Rating; got != 1 {
		t.Errorf("Rating = %d, want 1（直前の保留値）", got)
	}
}

func TestDetail_AppliesOverlay(t *testing.T) {
	v := New(50)
	d := item("n1", 0, false)
	v.SetDetail(d, v.BeginFetch())
	v.SetOverlay("n1", model.OverlayPatch{IsRead: model.BoolPtr(true)})

	got, ok := v.Detail()
	if !ok || !got.IsRead {
		t.Errorf("Detail = %+v, 既読の保留が重なるべき", got)
	}

	found, ok := v.Item("n1")
	if !ok || !found.IsRead {
		t.Error("Item は詳細表示中の記事も返すべき")
	}

	v.ClearDetail()
	if _, ok := v.Detail(); ok {
		t.Error("ClearDetail で詳細は閉じるべき")
	}
}

func TestRemoveItem(t *testing.T) {
	v := New(50)
	v.ApplyFetchResult([]model.NewsItem{item("n1", 0, false), item("n2", 0, false)}, 2, v.BeginFetch())
	d := item("n1", 0, false)
	v.SetDetail(d, v.BeginFetch())
	v.SetOverlay("n1", model.OverlayPatch{Rating: model.RatingPtr(1)})

	v.RemoveItem("n1")

	if items := v.Items(); len(items) != 1 || items[0].NewsID != "n2" {
		t.Errorf("Items = %+v, want [n2]", items)
	}
	if v.TotalCount() != 1 {
		t.Errorf("TotalCount = %d, want 1", v.TotalCount())
	}
	if _, ok := v.Detail(); ok {
		t.Error("削除した記事の詳細は閉じるべき")
	}
	if v.PendingCount() != 0 {
		t.Error("削除した記事の保留は消去されるべき")
	}
}

func TestPageInfo_EmptySecondPage(t *testing.T) {
	v := New(50)
	v.SetQuery(model.Query{Keyword: "copper", Page: 2})
	v.ApplyPage(model.NewsPage{Items: nil, TotalCount: 2, CurrentPage: 2}, v.BeginFetch())

	info := v.PageInfo()
	if len(v.Items()) != 0 {
		t.Error("2ページ目は空であるべき")
	}
	if info.TotalCount != 2 || info.CurrentPage != 2 {
		t.Errorf("PageInfo = %+v", info)
	}
	if info.HasNext {
		t.Error("次ページは無効であるべき")
	}
	if !info.HasPrev {
		t.Error("前ページは有効であるべき")
	}
}

func TestSetQuery_NormalizesAndKeepsPageSize(t *testing.T) {
	v := New(20)
	q := v.SetQuery(model.Query{Keyword: "  zinc ", Page: 0, PageSize: 999, SortBy: model.SortRelevance})

	if q.Page != 1 || q.PageSize != 20 || q.Keyword != "zinc" {
		t.Errorf("Query = %+v", q)
	}
	if q.SortBy != model.SortRelevance {
		t.Errorf("キーワードありの relevance は維持されるべき: %q", q.SortBy)
	}
}
