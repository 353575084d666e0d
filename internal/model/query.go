package model

import (
	"strings"
	"time"
)

// DefaultPageSize は1ページあたりのデフォルト件数。
const DefaultPageSize = 50

// SortBy は一覧のソートキー。
type SortBy string

const (
	// SortSmart は重要度・評価・新しさを組み合わせた優先順（デフォルト）。
	SortSmart      SortBy = "smart"
	SortTimeDesc   SortBy = "time_desc"
	SortTimeAsc    SortBy = "time_asc"
	SortRatingDesc SortBy = "rating_desc"
	SortRatingAsc  SortBy = "rating_asc"
	// SortRelevance はキーワード一致度順。キーワードがない場合はSortSmartとして扱う。
	SortRelevance SortBy = "relevance"
)

// validSortKeys は有効なソートキーのセット。
var validSortKeys = map[SortBy]bool{
	SortSmart:      true,
	SortTimeDesc:   true,
	SortTimeAsc:    true,
	SortRatingDesc: true,
	SortRatingAsc:  true,
	SortRelevance:  true,
}

// ParseSortBy は文字列をソートキーに変換する。空文字はSortSmart。
func ParseSortBy(s string) (SortBy, error) {
	if s == "" {
		return SortSmart, nil
	}
	sb := SortBy(s)
	if !validSortKeys[sb] {
		return "", NewInvalidSortKeyError(s)
	}
	return sb, nil
}

// Tab は画面のタブ。
type Tab string

const (
	// TabLatest は最新ニュースのフィード。自動更新とプッシュ反映の対象。
	TabLatest  Tab = "latest"
	TabArchive Tab = "archive"
	TabManual  Tab = "manual"
	TabStats   Tab = "stats"
)

// Valid は定義済みのタブかどうかを返す。
func (t Tab) Valid() bool {
	switch t {
	case TabLatest, TabArchive, TabManual, TabStats:
		return true
	}
	return false
}

// Query は一覧取得の検索条件。
type Query struct {
	Keyword  string
	Source   string
	Metal    string
	IsManual *bool
	Rating   *Rating
	IsRead   *bool
	SortBy   SortBy
	Page     int
	PageSize int
}

// Normalize はページ番号・件数・ソートキーを補正したコピーを返す。
func (q Query) Normalize(pageSize int) Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if pageSize > 0 {
		q.PageSize = pageSize
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	q.Keyword = strings.TrimSpace(q.Keyword)
	if q.SortBy == "" {
		q.SortBy = SortSmart
	}
	if q.SortBy == SortRelevance && q.Keyword == "" {
		q.SortBy = SortSmart
	}
	return q
}

// Offset は先頭からのオフセットを返す。
func (q Query) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// HasFilters は最新一覧以外の条件が指定されているかを返す。
func (q Query) HasFilters() bool {
	return q.Keyword != "" || q.Source != "" || q.Metal != "" ||
		q.IsManual != nil || q.Rating != nil || q.IsRead != nil ||
		(q.SortBy != "" && q.SortBy != SortSmart)
}

// DateRange はアーカイブ検索の期間（YYYY-MM-DD）。
type DateRange struct {
	Start string
	End   string
}

// DateLayout はアーカイブ検索の日付形式。
const DateLayout = "2006-01-02"

// Validate は開始日・終了日が両方指定され、YYYY-MM-DD形式かどうかを検証する。
// 終了日の23:59:59までを含める処理はバックエンドが行う。
func (d DateRange) Validate() error {
	if strings.TrimSpace(d.Start) == "" || strings.TrimSpace(d.End) == "" {
		return NewDateRangeRequiredError()
	}
	for _, v := range []string{d.Start, d.End} {
		if _, err := time.Parse(DateLayout, strings.TrimSpace(v)); err != nil {
			return NewValidationError("日付は YYYY-MM-DD 形式で指定してください")
		}
	}
	return nil
}

// PageInfo はページネーションの表示情報。
type PageInfo struct {
	CurrentPage int
	PageSize    int
	TotalCount  int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
}

// NewPageInfo は総件数と現在ページからPageInfoを計算する。
func NewPageInfo(currentPage, pageSize, totalCount int) PageInfo {
	if currentPage < 1 {
		currentPage = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := 0
	if totalCount > 0 {
		totalPages = (totalCount + pageSize - 1) / pageSize
	}
	return PageInfo{
		CurrentPage: currentPage,
		PageSize:    pageSize,
		TotalCount:  totalCount,
		TotalPages:  totalPages,
		HasPrev:     currentPage > 1,
		HasNext:     currentPage < totalPages,
	}
}
