package gateway

import (
	"context"
	"time"

	"github.com/hitoshi/newswatcher/internal/model"
)

// ratingRequest は update_news_rating の入力。ratingがnilの場合は評価を解除する。
type ratingRequest struct {
	NewsID string `json:"news_id"`
	Rating *int   `json:"rating"`
}

// MutateRating は記事の評価を更新する。RatingNone は評価の解除を意味する。
func (c *Client) MutateRating(ctx context.Context, newsID string, rating model.Rating) error {
	if !rating.Valid() {
		return model.NewInvalidRatingError(int(rating))
	}

	req := ratingRequest{NewsID: newsID}
	if rating != model.RatingNone {
		r := int(rating)
		req.Rating = &r
	}
	return c.call(ctx, "update_news_rating", newsID, req, nil)
}

// SetReadState は記事の既読・未読を更新する。
func (c *Client) SetReadState(ctx context.Context, newsID string, isRead bool) error {
	operation := "mark_news_as_unread"
	if isRead {
		operation = "mark_news_as_read"
	}
	return c.call(ctx, operation, newsID, newsIDRequest{NewsID: newsID}, nil)
}

// manualRequest は add_manual_news の入力。
type manualRequest struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	Source        string `json:"source"`
	URL           string `json:"url,omitempty"`
	PublishTime   string `json:"publish_time,omitempty"`
	RelatedMetals string `json:"related_metals,omitempty"`
}

// manualResponse は add_manual_news の応答。
type manualResponse struct {
	NewsID string `json:"news_id"`
}

// SubmitManualEntry はニュースを手動登録し、採番された記事IDを返す。
// 入力はバックエンドに送る前に検証する。関連金属が未指定ならタイトルと本文から抽出する。
func (c *Client) SubmitManualEntry(ctx context.Context, entry model.ManualEntry) (string, error) {
	if err := entry.Validate(); err != nil {
		return "", err
	}
	entry = entry.WithDerivedMetals()

	req := manualRequest{
		Title:         entry.Title,
		Body:          entry.Body,
		Source:        entry.Source,
		URL:           entry.URL,
		RelatedMetals: model.JoinList(entry.RelatedMetals),
	}
	if entry.PublishTime != nil {
		req.PublishTime = entry.PublishTime.Format("2006-01-02T15:04:05")
	}

	var resp manualResponse
	if err := c.call(ctx, "add_manual_news", "", req, &resp); err != nil {
		return "", err
	}
	return resp.NewsID, nil
}

// DeleteManualEntry は手動登録したニュースを削除する。
func (c *Client) DeleteManualEntry(ctx context.Context, newsID string) error {
	return c.call(ctx, "delete_manual_news", newsID, newsIDRequest{NewsID: newsID}, nil)
}

// TriggerAnalysis は記事のAI分析（再分析）を要求する。
func (c *Client) TriggerAnalysis(ctx context.Context, newsID string) error {
	return c.call(ctx, "analyze_news", newsID, newsIDRequest{NewsID: newsID}, nil)
}

// analysisEditRequest は update_news_analysis の入力。
type analysisEditRequest struct {
	NewsID    string `json:"news_id"`
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
	Keywords  string `json:"keywords"`
	EditedAt  string `json:"edited_at"`
}

// SaveAnalysisEdit はユーザーが編集した分析結果を保存する。
func (c *Client) SaveAnalysisEdit(ctx context.Context, newsID string, edit model.AnalysisEdit) error {
	if err := edit.Validate(); err != nil {
		return err
	}

	req := analysisEditRequest{
		NewsID:    newsID,
		Summary:   edit.Summary,
		Sentiment: string(edit.Sentiment),
		Keywords:  model.JoinList(edit.Keywords),
		EditedAt:  time.Now().Format(time.RFC3339),
	}
	return c.call(ctx, "update_news_analysis", newsID, req, nil)
}
