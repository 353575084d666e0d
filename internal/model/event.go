package model

// EventKind はプッシュ通知の種別。
type EventKind string

const (
	EventHighImportance EventKind = "high_importance"
	EventDataAvailable  EventKind = "data_available"
)

// NotificationEvent はバックエンドから届くプッシュ通知。
// 永続化しない。
type NotificationEvent interface {
	Kind() EventKind
}

// HighImportanceAlert は重要度の高いニュースの通知。
type HighImportanceAlert struct {
	NewsID          string
	Title           string
	Source          string
	ImportanceScore int
}

// Kind はEventHighImportanceを返す。
func (HighImportanceAlert) Kind() EventKind { return EventHighImportance }

// DataAvailable は新着データの通知。
type DataAvailable struct {
	NewCount int
}

// Kind はEventDataAvailableを返す。
func (DataAvailable) Kind() EventKind { return EventDataAvailable }
