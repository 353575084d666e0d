package gateway

import (
	"strings"
	"time"

	"github.com/hitoshi/newswatcher/internal/model"
)

// newsRecord はバックエンドが返すニュース1件のJSON表現。
// related_metals と keywords はカンマ区切り文字列で届く。
type newsRecord struct {
	NewsID          string `json:"news_id"`
	Title           string `json:"title"`
	Body            string `json:"body"`
	Source          string `json:"source"`
	URL             string `json:"url"`
	PublishTime     string `json:"publish_time"`
	AcquireTime     string `json:"acquire_time"`
	IsManual        bool   `json:"is_manual"`
	RelatedMetals   string `json:"related_metals"`
	Rating          *int   `json:"rating"`
	IsRead          bool   `json:"is_read"`
	ReadAt          string `json:"read_at"`
	Summary         string `json:"summary"`
	Sentiment       string `json:"sentiment"`
	Keywords        string `json:"keywords"`
	ImportanceScore *int   `json:"importance_score"`
}

// timeLayouts はバックエンドが返しうる日時形式。
// タイムゾーンなしの形式はローカル時刻として解釈する。
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// parseTime は日時文字列をパースする。空文字やパース不能な値はゼロ値を返す。
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// toModel はJSON表現をドメインモデルに変換する。
func (r newsRecord) toModel() model.NewsItem {
	item := model.NewsItem{
		NewsID:        r.NewsID,
		Title:         r.Title,
		Body:          r.Body,
		Source:        r.Source,
		URL:           r.URL,
		PublishTime:   parseTime(r.PublishTime),
		AcquireTime:   parseTime(r.AcquireTime),
		RelatedMetals: model.SplitList(r.RelatedMetals),
		IsManual:      r.IsManual,
		IsRead:        r.IsRead,
	}
	if r.Rating != nil {
		item.Rating = model.Rating(*r.Rating)
	}
	if t := parseTime(r.ReadAt); !t.IsZero() {
		item.ReadAt = &t
	}

	// 分析結果はいずれかの項目が存在する場合のみ設定する
	if r.Summary != "" || r.Sentiment != "" || r.Keywords != "" || r.ImportanceScore != nil {
		a := &model.Analysis{
			Summary:   r.Summary,
			Sentiment: model.Sentiment(r.Sentiment),
			Keywords:  model.SplitList(r.Keywords),
		}
		if r.ImportanceScore != nil {
			a.ImportanceScore = clampScore(*r.ImportanceScore)
		}
		item.Analysis = a
	}

	return item
}

// clampScore は重要度を0〜10に丸める。
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// toModels はJSON表現のスライスを変換する。
func toModels(records []newsRecord) []model.NewsItem {
	items := make([]model.NewsItem, 0, len(records))
	for _, r := range records {
		items = append(items, r.toModel())
	}
	return items
}

// listResponse は一覧系APIの応答。
type listResponse struct {
	News        []newsRecord `json:"news"`
	TotalCount  int          `json:"total_count"`
	CurrentPage int          `json:"current_page"`
}

func (r listResponse) toPage(fallbackPage int) model.NewsPage {
	page := r.CurrentPage
	if page < 1 {
		page = fallbackPage
	}
	return model.NewsPage{
		Items:       toModels(r.News),
		TotalCount:  r.TotalCount,
		CurrentPage: page,
	}
}
