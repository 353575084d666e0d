package gateway

import (
	"context"
	"strconv"
	"strings"

	"github.com/hitoshi/newswatcher/internal/model"
)

// latestRequest は get_latest_news の入力。
type latestRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FetchLatest はフィルタなしの最新ニュースを取得する。
func (c *Client) FetchLatest(ctx context.Context, pageSize, offset int) (model.NewsPage, error) {
	var resp listResponse
	err := c.call(ctx, "get_latest_news", "", latestRequest{Limit: pageSize, Offset: offset}, &resp)
	if err != nil {
		return model.NewsPage{}, err
	}
	fallback := 1
	if pageSize > 0 {
		fallback = offset/pageSize + 1
	}
	return resp.toPage(fallback), nil
}

// searchRequest は search_news の入力。
// is_manual は文字列 "true"/"false" で送る。
type searchRequest struct {
	Keyword  string `json:"keyword,omitempty"`
	Source   string `json:"source,omitempty"`
	Metal    string `json:"metal,omitempty"`
	IsManual string `json:"is_manual,omitempty"`
	Rating   *int   `json:"rating,omitempty"`
	IsRead   *bool  `json:"is_read,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
}

func newSearchRequest(q model.Query) searchRequest {
	req := searchRequest{
		Keyword: q.Keyword,
		Source:  q.Source,
		Metal:   q.Metal,
		IsRead:  q.IsRead,
		SortBy:  string(q.SortBy),
		Page:    q.Page,
		PerPage: q.PageSize,
	}
	if q.IsManual != nil {
		req.IsManual = strconv.FormatBool(*q.IsManual)
	}
	if q.Rating != nil {
		r := int(*q.Rating)
		req.Rating = &r
	}
	return req
}

// Search は検索条件に一致するニュースを取得する。
func (c *Client) Search(ctx context.Context, q model.Query) (model.NewsPage, error) {
	if q.SortBy != "" {
		if _, err := model.ParseSortBy(string(q.SortBy)); err != nil {
			return model.NewsPage{}, err
		}
	}
	if q.Rating != nil && !q.Rating.Valid() {
		return model.NewsPage{}, model.NewInvalidRatingError(int(*q.Rating))
	}

	var resp listResponse
	if err := c.call(ctx, "search_news", "", newSearchRequest(q), &resp); err != nil {
		return model.NewsPage{}, err
	}
	return resp.toPage(q.Page), nil
}

// archiveRequest は search_archive の入力。
type archiveRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Keyword   string `json:"keyword,omitempty"`
	Page      int    `json:"page"`
	PerPage   int    `json:"per_page"`
}

// SearchArchive は期間を指定してアーカイブを検索する。
// 開始日・終了日のどちらかが未指定の場合は呼び出し前に検証エラーを返す。
func (c *Client) SearchArchive(ctx context.Context, dr model.DateRange, q model.Query) (model.NewsPage, error) {
	if err := dr.Validate(); err != nil {
		return model.NewsPage{}, err
	}

	req := archiveRequest{
		StartDate: strings.TrimSpace(dr.Start),
		EndDate:   strings.TrimSpace(dr.End),
		Keyword:   q.Keyword,
		Page:      q.Page,
		PerPage:   q.PageSize,
	}

	var resp listResponse
	if err := c.call(ctx, "search_archive", "", req, &resp); err != nil {
		return model.NewsPage{}, err
	}
	return resp.toPage(q.Page), nil
}

// newsIDRequest は記事IDのみを送るAPIの入力。
type newsIDRequest struct {
	NewsID string `json:"news_id"`
}

// FetchDetail は分析結果を含む記事の詳細を取得する。
func (c *Client) FetchDetail(ctx context.Context, newsID string) (model.NewsItem, error) {
	var rec newsRecord
	if err := c.call(ctx, "get_news_detail", newsID, newsIDRequest{NewsID: newsID}, &rec); err != nil {
		return model.NewsItem{}, err
	}
	if rec.NewsID == "" {
		rec.NewsID = newsID
	}
	return rec.toModel(), nil
}
