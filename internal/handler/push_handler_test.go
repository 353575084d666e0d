package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/newswatcher/internal/middleware"
	"github.com/hitoshi/newswatcher/internal/model"
)

// --- モック定義 ---

// mockPublisher はnotify.Publisherのモック実装。
type mockPublisher struct {
	mu        sync.Mutex
	publishFn func(ctx context.Context, event model.NotificationEvent) error
	events    []model.NotificationEvent
}

func (m *mockPublisher) Publish(ctx context.Context, event model.NotificationEvent) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, event); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) published() []model.NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.NotificationEvent(nil), m.events...)
}

// mockCollector はプッシュ受信の記録だけを保持するMetricsCollector。
type mockCollector struct {
	mu     sync.Mutex
	pushes []string
}

func (m *mockCollector) RecordGatewayCall(string, string, time.Duration) {}
func (m *mockCollector) RecordStaleResponse(string)                      {}
func (m *mockCollector) RecordRollback(string)                           {}
func (m *mockCollector) RecordRefreshTick(string)                        {}
func (m *mockCollector) RecordPushEvent(kind, transport string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes = append(m.pushes, kind+"/"+transport)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func postJSON(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

// --- POST /push/high-importance ---

func TestPushHandler_HighImportance_Accepted(t *testing.T) {
	pub := &mockPublisher{}
	col := &mockCollector{}
	h := NewPushHandler(pub, col, discardLogger())

	w := postJSON(h.HighImportance, "/push/high-importance",
		`{"news_id":"n-1","title":"Copper surges","source":"Reuters","importance_score":9}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp pushAcceptedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "accepted" || resp.Kind != string(model.EventHighImportance) {
		t.Errorf("response = %+v", resp)
	}

	events := pub.published()
	if len(events) != 1 {
		t.Fatalf("publish回数 = %d, want 1", len(events))
	}
	alert, ok := events[0].(model.HighImportanceAlert)
	if !ok {
		t.Fatalf("イベントの型が違う: %T", events[0])
	}
	if alert.NewsID != "n-1" || alert.ImportanceScore != 9 || alert.Source != "Reuters" {
		t.Errorf("alert = %+v", alert)
	}

	if len(col.pushes) != 1 || col.pushes[0] != "high_importance/http" {
		t.Errorf("pushes = %v, want [high_importance/http]", col.pushes)
	}
}

func TestPushHandler_HighImportance_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"不正なJSON", `{"news_id":`},
		{"news_id欠落", `{"title":"x","importance_score":5}`},
		{"スコア範囲外", `{"news_id":"n-1","importance_score":11}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			h := NewPushHandler(pub, &mockCollector{}, discardLogger())

			w := postJSON(h.HighImportance, "/push/high-importance", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			var body middleware.ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body.Code != model.ErrCodeValidationFailed {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeValidationFailed)
			}
			if len(pub.published()) != 0 {
				t.Error("検証エラー時にpublishされるべきではない")
			}
		})
	}
}

// --- POST /push/data-available ---

func TestPushHandler_DataAvailable_Accepted(t *testing.T) {
	pub := &mockPublisher{}
	col := &mockCollector{}
	h := NewPushHandler(pub, col, discardLogger())

	w := postJSON(h.DataAvailable, "/push/data-available", `{"new_count":4}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	events := pub.published()
	if len(events) != 1 {
		t.Fatalf("publish回数 = %d, want 1", len(events))
	}
	if got, ok := events[0].(model.DataAvailable); !ok || got.NewCount != 4 {
		t.Errorf("event = %#v", events[0])
	}
	if len(col.pushes) != 1 || col.pushes[0] != "data_available/http" {
		t.Errorf("pushes = %v", col.pushes)
	}
}

func TestPushHandler_DataAvailable_NegativeCount(t *testing.T) {
	pub := &mockPublisher{}
	h := NewPushHandler(pub, &mockCollector{}, discardLogger())

	w := postJSON(h.DataAvailable, "/push/data-available", `{"new_count":-1}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// 通知チャネルに投入できない場合は503を返すことを検証
func TestPushHandler_PublishFailure_Returns503(t *testing.T) {
	pub := &mockPublisher{
		publishFn: func(ctx context.Context, event model.NotificationEvent) error {
			return context.DeadlineExceeded
		},
	}
	col := &mockCollector{}
	h := NewPushHandler(pub, col, discardLogger())

	w := postJSON(h.DataAvailable, "/push/data-available", `{"new_count":1}`)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if len(col.pushes) != 0 {
		t.Errorf("失敗時に受信が記録された: %v", col.pushes)
	}
}

func TestPushHandler_BodyTooLarge(t *testing.T) {
	h := NewPushHandler(&mockPublisher{}, &mockCollector{}, discardLogger())

	large := `{"new_count":1,"pad":"` + strings.Repeat("x", maxPushBodyBytes) + `"}`
	w := postJSON(h.DataAvailable, "/push/data-available", large)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestHandleDecodeError_NonValidation(t *testing.T) {
	w := httptest.NewRecorder()
	handleDecodeError(w, errors.New("unexpected"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("INTERNAL_ERROR")) {
		t.Errorf("body = %s", w.Body.String())
	}
}
