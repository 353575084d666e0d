package model

import "time"

// Rating はユーザーが付ける星評価を表す。
// RatingNone は未評価を意味する。
type Rating int

const (
	// RatingNone は未評価。
	RatingNone Rating = 0
	// RatingMin は評価の最小値。
	RatingMin Rating = 1
	// RatingMax は評価の最大値。
	RatingMax Rating = 3
)

// Valid は評価値が未評価または1〜3の範囲内かどうかを返す。
func (r Rating) Valid() bool {
	return r == RatingNone || (r >= RatingMin && r <= RatingMax)
}

// Sentiment はAI分析によるセンチメント分類。
type Sentiment string

const (
	SentimentPositive Sentiment = "ポジティブ"
	SentimentNegative Sentiment = "ネガティブ"
	SentimentNeutral  Sentiment = "ニュートラル"
)

// Valid は定義済みのセンチメントかどうかを返す。
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Analysis は外部の分析ステップが生成する分析結果。
// 再分析により丸ごと置き換えられる。
type Analysis struct {
	Summary         string
	Sentiment       Sentiment
	Keywords        []string
	ImportanceScore int // 0〜10
}

// NewsItem はバックエンドから取得したニュース記事を表す。
// NewsID・本文・時刻・IsManual は生成後に変化しない。
// Rating・IsRead・Analysis はサーバー応答ごとに丸ごと置き換える。
type NewsItem struct {
	NewsID        string
	Title         string
	Body          string
	Source        string
	URL           string
	PublishTime   time.Time
	AcquireTime   time.Time
	RelatedMetals []string
	IsManual      bool
	Rating        Rating
	IsRead        bool
	ReadAt        *time.Time
	Analysis      *Analysis
}

// Clone はスライスとポインタを複製したコピーを返す。
func (n NewsItem) Clone() NewsItem {
	c := n
	if n.RelatedMetals != nil {
		c.RelatedMetals = append([]string(nil), n.RelatedMetals...)
	}
	if n.ReadAt != nil {
		t := *n.ReadAt
		c.ReadAt = &t
	}
	if n.Analysis != nil {
		a := *n.Analysis
		if n.Analysis.Keywords != nil {
			a.Keywords = append([]string(nil), n.Analysis.Keywords...)
		}
		c.Analysis = &a
	}
	return c
}

// NewsPage は一覧取得の結果。
type NewsPage struct {
	Items       []NewsItem
	TotalCount  int
	CurrentPage int
}

// OverlayPatch は未確定の楽観的変更を表す。
// nilのフィールドは変更しない。
type OverlayPatch struct {
	Rating *Rating
	IsRead *bool
}

// IsEmpty はどのフィールドも保留していないかを返す。
func (p OverlayPatch) IsEmpty() bool {
	return p.Rating == nil && p.IsRead == nil
}

// ApplyTo はパッチを記事に適用したコピーを返す。
func (p OverlayPatch) ApplyTo(item NewsItem) NewsItem {
	if p.Rating != nil {
		item.Rating = *p.Rating
	}
	if p.IsRead != nil {
		item.IsRead = *p.IsRead
	}
	return item
}

// RatingPtr はRatingのポインタを返す。
func RatingPtr(r Rating) *Rating {
	return &r
}

// BoolPtr はboolのポインタを返す。
func BoolPtr(b bool) *bool {
	return &b
}
