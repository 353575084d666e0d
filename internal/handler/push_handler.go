package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/newswatcher/internal/metrics"
	"github.com/hitoshi/newswatcher/internal/middleware"
	"github.com/hitoshi/newswatcher/internal/model"
	"github.com/hitoshi/newswatcher/internal/notify"
)

// TransportHTTP はHTTP経由で受信したプッシュ通知のtransportラベル。
const TransportHTTP = "http"

// maxPushBodyBytes はプッシュ通知ボディの上限サイズ。
const maxPushBodyBytes = 64 << 10

// publishTimeout は通知チャネルへの投入を待つ上限時間。
const publishTimeout = 5 * time.Second

// PushHandler はバックエンドからのプッシュ通知を受け付けるHTTPハンドラー。
// 受信した通知は検証後に通知チャネルへ投入し、処理の完了は待たない。
type PushHandler struct {
	publisher notify.Publisher
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewPushHandler はPushHandlerを生成する。
func NewPushHandler(publisher notify.Publisher, collector metrics.MetricsCollector, logger *slog.Logger) *PushHandler {
	return &PushHandler{
		publisher: publisher,
		metrics:   collector,
		logger:    logger,
	}
}

// pushAcceptedResponse は受付完了レスポンス。
type pushAcceptedResponse struct {
	Status string `json:"status"`
	Kind   string `json:"kind"`
}

// HighImportance は重要ニュース通知を受け付ける。
// POST /push/high-importance
func (h *PushHandler) HighImportance(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, func(body []byte) (model.NotificationEvent, error) {
		return notify.DecodeHighImportance(body)
	})
}

// DataAvailable は新着データ通知を受け付ける。
// POST /push/data-available
func (h *PushHandler) DataAvailable(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, func(body []byte) (model.NotificationEvent, error) {
		return notify.DecodeDataAvailable(body)
	})
}

func (h *PushHandler) accept(w http.ResponseWriter, r *http.Request, decode func([]byte) (model.NotificationEvent, error)) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPushBodyBytes))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge,
			model.NewValidationError("通知のサイズが大きすぎます"))
		return
	}

	event, err := decode(body)
	if err != nil {
		handleDecodeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), publishTimeout)
	defer cancel()

	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Error("failed to publish push event",
			slog.String("kind", string(event.Kind())),
			slog.String("error", err.Error()),
		)
		middleware.WriteServiceUnavailable(w)
		return
	}

	h.metrics.RecordPushEvent(string(event.Kind()), TransportHTTP)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(pushAcceptedResponse{
		Status: "accepted",
		Kind:   string(event.Kind()),
	})
}

// handleDecodeError はデコード時のエラーをHTTPステータスコードに変換する。
func handleDecodeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Kind == model.KindValidation {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	middleware.WriteInternalServerError(w)
}
