// Package gateway はバックエンドRPCへの型付きクライアントを提供する。
// 各呼び出しは成功ペイロードか *model.APIError を返し、リトライは行わない。
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/newswatcher/internal/metrics"
	"github.com/hitoshi/newswatcher/internal/model"
)

const (
	// userAgent はバックエンド呼び出し時のUser-Agent。
	userAgent = "NewsWatcher/1.0 Sync Client"
	// maxResponseSize はレスポンスボディの上限（10MB）。
	maxResponseSize = 10 << 20
	// RequestIDHeader はリクエスト追跡用ヘッダー。
	RequestIDHeader = "X-Request-ID"
)

// Client はバックエンドRPCのクライアント。
// 状態を持たないため、複数goroutineから同時に呼び出せる。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    string
}

// NewClient はClientの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewClient(httpClient *http.Client, baseURL string, logger *slog.Logger, collector metrics.MetricsCollector) *Client {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    collector,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// envelope はバックエンド応答の共通部分。
// successが省略された応答（統計・一覧系）は成功として扱う。
type envelope struct {
	Success   *bool  `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

// failed はsuccess=falseが明示されているかを返す。
func (e envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

// call は /api/{operation} にJSONをPOSTし、応答をoutにデコードする。
// newsIDは未検出エラーのメッセージに使う。
func (c *Client) call(ctx context.Context, operation, newsID string, body any, out any) (err error) {
	start := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = string(model.KindOf(err))
		}
		c.metrics.RecordGatewayCall(operation, result, time.Since(start))
	}()

	if body == nil {
		body = struct{}{}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	// HTTPリクエスト作成
	reqURL := c.baseURL + "/api/" + operation
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(RequestIDHeader, requestID)

	// HTTPリクエスト実行
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("バックエンドの呼び出しに失敗しました",
			slog.String("operation", operation),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return model.NewNetworkError(operation, err)
	}
	defer resp.Body.Close()

	// レスポンスボディ読み取り
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.logger.Error("レスポンスボディの読み取りに失敗しました",
			slog.String("operation", operation),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return model.NewNetworkError(operation, err)
	}

	// HTTPステータスチェック
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		_ = json.Unmarshal(data, &env)
		apiErr := statusError(resp.StatusCode, env, newsID)
		c.logger.Warn("バックエンドがエラーステータスを返しました",
			slog.String("operation", operation),
			slog.String("request_id", requestID),
			slog.Int("http_status", resp.StatusCode),
			slog.String("kind", string(apiErr.Kind)),
		)
		return apiErr
	}

	// 成功フラグの確認
	var env envelope
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(data, &env); err != nil {
			return c.decodeError(operation, requestID, err)
		}
	}
	if env.failed() {
		apiErr := envelopeError(env, newsID)
		c.logger.Warn("バックエンドが失敗を報告しました",
			slog.String("operation", operation),
			slog.String("request_id", requestID),
			slog.String("error", env.Error),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return c.decodeError(operation, requestID, err)
	}

	c.logger.Debug("バックエンド呼び出しが完了しました",
		slog.String("operation", operation),
		slog.String("request_id", requestID),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// decodeError はレスポンスのパース失敗をバックエンドエラーとして返す。
func (c *Client) decodeError(operation, requestID string, err error) error {
	c.logger.Error("バックエンドのレスポンスのパースに失敗しました",
		slog.String("operation", operation),
		slog.String("request_id", requestID),
		slog.String("error", err.Error()),
	)
	apiErr := model.NewBackendError("バックエンドの応答を解析できませんでした。")
	apiErr.Err = err
	return apiErr
}

// notFoundMarker はバックエンドが未検出を示すメッセージに含める文言。
const notFoundMarker = "見つかりません"

// envelopeError はsuccess=falseの応答をエラー種別に分類する。
func envelopeError(env envelope, newsID string) *model.APIError {
	switch {
	case env.ErrorCode == "not_found" || (newsID != "" && strings.Contains(env.Error, notFoundMarker)):
		apiErr := model.NewNewsNotFoundError(newsID)
		if env.Error != "" {
			apiErr.Message = env.Error
		}
		return apiErr
	case env.ErrorCode == "validation":
		return model.NewValidationError(env.Error)
	default:
		return model.NewBackendError(env.Error)
	}
}

// statusError はHTTPステータスコードをエラー種別に分類する。
func statusError(statusCode int, env envelope, newsID string) *model.APIError {
	switch ClassifyHTTPStatus(statusCode) {
	case StatusNotFound:
		apiErr := model.NewNewsNotFoundError(newsID)
		if env.Error != "" {
			apiErr.Message = env.Error
		}
		return apiErr
	case StatusValidation:
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("入力内容が受け付けられませんでした（HTTP %d）", statusCode)
		}
		return model.NewValidationError(msg)
	case StatusUnavailable:
		return model.NewNetworkError(fmt.Sprintf("HTTP %d", statusCode), nil)
	default:
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("バックエンドがステータス %d を返しました", statusCode)
		}
		return model.NewBackendError(msg)
	}
}
