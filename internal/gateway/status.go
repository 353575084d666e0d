package gateway

// StatusClass はHTTPステータスコードに基づく応答の分類。
type StatusClass int

const (
	// StatusOK は2xx。
	StatusOK StatusClass = iota
	// StatusNotFound は対象が存在しない（404/410）。
	StatusNotFound
	// StatusValidation は入力が拒否された（400/422）。
	StatusValidation
	// StatusUnavailable はバックエンドに到達できない（502/503/504）。
	StatusUnavailable
	// StatusBackendError はその他のエラーステータス。
	StatusBackendError
)

// ClassifyHTTPStatus はHTTPステータスコードを分類する。
func ClassifyHTTPStatus(statusCode int) StatusClass {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return StatusOK
	case statusCode == 404 || statusCode == 410:
		return StatusNotFound
	case statusCode == 400 || statusCode == 422:
		return StatusValidation
	case statusCode == 502 || statusCode == 503 || statusCode == 504:
		return StatusUnavailable
	default:
		return StatusBackendError
	}
}
