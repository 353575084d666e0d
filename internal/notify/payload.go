package notify

import (
	"encoding/json"
	"strings"

	"github.com/hitoshi/newswatcher/internal/model"
)

// HighImportancePayload は重要ニュース通知のJSON表現。
type HighImportancePayload struct {
	NewsID          string `json:"news_id"`
	Title           string `json:"title"`
	Source          string `json:"source"`
	ImportanceScore int    `json:"importance_score"`
}

// DataAvailablePayload は新着データ通知のJSON表現。
type DataAvailablePayload struct {
	NewCount int `json:"new_count"`
}

// DecodeHighImportance はJSONを重要ニュース通知に変換する。
func DecodeHighImportance(data []byte) (model.HighImportanceAlert, error) {
	var p HighImportancePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return model.HighImportanceAlert{}, model.NewValidationError("通知の形式が正しくありません")
	}
	if strings.TrimSpace(p.NewsID) == "" {
		return model.HighImportanceAlert{}, model.NewValidationError("news_id は必須項目です")
	}
	if p.ImportanceScore < 0 || p.ImportanceScore > 10 {
		return model.HighImportanceAlert{}, model.NewValidationError("importance_score は0から10の範囲で指定してください")
	}
	return model.HighImportanceAlert{
		NewsID:          p.NewsID,
		Title:           p.Title,
		Source:          p.Source,
		ImportanceScore: p.ImportanceScore,
	}, nil
}

// DecodeDataAvailable はJSONを新着データ通知に変換する。
func DecodeDataAvailable(data []byte) (model.DataAvailable, error) {
	var p DataAvailablePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return model.DataAvailable{}, model.NewValidationError("通知の形式が正しくありません")
	}
	if p.NewCount < 0 {
		return model.DataAvailable{}, model.NewValidationError("new_count は0以上で指定してください")
	}
	return model.DataAvailable{NewCount: p.NewCount}, nil
}
