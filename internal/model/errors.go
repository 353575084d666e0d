// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はエラーの種別を表す。
// 呼び出し元はKindで分岐し、メッセージ文字列には依存しない。
type ErrorKind string

const (
	// KindNetwork は通信レベルの失敗（接続不可、タイムアウト等）。
	KindNetwork ErrorKind = "network"
	// KindBackend はバックエンドが失敗を報告した場合。
	KindBackend ErrorKind = "backend"
	// KindValidation は入力検証エラー。クライアント側・バックエンド側の両方を含む。
	KindValidation ErrorKind = "validation"
	// KindNotFound は対象のニュースが存在しない場合。
	KindNotFound ErrorKind = "not_found"
)

// ErrStaleResponse は後続リクエストに追い越された応答を示す内部エラー。
// ユーザーには表示せず、破棄するだけに使う。
var ErrStaleResponse = errors.New("stale response")

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Kind     ErrorKind // エラー種別
	Code     string    // エラーコード
	Message  string    // エラーメッセージ
	Category string    // カテゴリ: network, validation, news, system
	Action   string    // ユーザー向け対処方法
	Err      error     // 原因エラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeNetworkFailure    = "NETWORK_FAILURE"
	ErrCodeBackendError      = "BACKEND_ERROR"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
	ErrCodeNewsNotFound      = "NEWS_NOT_FOUND"
	ErrCodeDateRangeRequired = "DATE_RANGE_REQUIRED"
	ErrCodeInvalidRating     = "INVALID_RATING"
	ErrCodeInvalidSortKey    = "INVALID_SORT_KEY"
	ErrCodeInvalidSentiment  = "INVALID_SENTIMENT"
)

// KindOf はerrに含まれるAPIErrorの種別を返す。
// APIErrorを含まない場合はKindNetworkとみなす。
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

// IsKind はerrが指定種別のAPIErrorかどうかを返す。
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == kind
}

// UserMessage はユーザーに表示するメッセージを返す。
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// NewNetworkError は通信失敗エラーを生成する。
func NewNetworkError(operation string, err error) *APIError {
	return &APIError{
		Kind:     KindNetwork,
		Code:     ErrCodeNetworkFailure,
		Message:  fmt.Sprintf("バックエンドとの通信に失敗しました: %s", operation),
		Category: "network",
		Action:   "ネットワーク接続とバックエンドの起動状態を確認し、再度お試しください。",
		Err:      err,
	}
}

// NewBackendError はバックエンドが報告したエラーを生成する。
func NewBackendError(message string) *APIError {
	if message == "" {
		message = "バックエンドでエラーが発生しました。"
	}
	return &APIError{
		Kind:     KindBackend,
		Code:     ErrCodeBackendError,
		Message:  message,
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewNewsNotFoundError はニュース未検出エラーを生成する。
func NewNewsNotFoundError(newsID string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeNewsNotFound,
		Message:  fmt.Sprintf("ニュースが見つかりません: %s", newsID),
		Category: "news",
		Action:   "一覧を再読み込みしてください。",
	}
}

// NewDateRangeRequiredError はアーカイブ検索で期間が未指定の場合のエラーを生成する。
func NewDateRangeRequiredError() *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeDateRangeRequired,
		Message:  "開始日と終了日を指定してください",
		Category: "validation",
		Action:   "検索期間の開始日と終了日を YYYY-MM-DD 形式で入力してください。",
	}
}

// NewInvalidRatingError は評価値が範囲外の場合のエラーを生成する。
func NewInvalidRatingError(rating int) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidRating,
		Message:  fmt.Sprintf("無効な評価値です: %d", rating),
		Category: "validation",
		Action:   "評価は1から3の範囲で指定してください。",
	}
}

// NewInvalidSortKeyError は無効なソートキーのエラーを生成する。
func NewInvalidSortKeyError(sortBy string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidSortKey,
		Message:  fmt.Sprintf("無効なソートキーです: %s", sortBy),
		Category: "validation",
		Action:   "smart、time_desc、time_asc、rating_desc、rating_asc、relevance のいずれかを指定してください。",
	}
}

// NewInvalidSentimentError は無効なセンチメントのエラーを生成する。
func NewInvalidSentimentError(sentiment string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidSentiment,
		Message:  fmt.Sprintf("無効なセンチメントです: %s", sentiment),
		Category: "validation",
		Action:   "ポジティブ、ネガティブ、ニュートラルのいずれかを指定してください。",
	}
}
