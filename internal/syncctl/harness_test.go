package syncctl

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/newswatcher/internal/model"
	"github.com/hitoshi/newswatcher/internal/worker/refresh"
)

// --- モック定義 ---

// fakeGateway はGatewayのテスト用モック。呼び出し回数を記録する。
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int

	fetchLatestFunc       func(ctx context.Context, pageSize, offset int) (model.NewsPage, error)
	searchFunc            func(ctx context.Context, q model.Query) (model.NewsPage, error)
	searchArchiveFunc     func(ctx context.Context, dr model.DateRange, q model.Query) (model.NewsPage, error)
	fetchDetailFunc       func(ctx context.Context, newsID string) (model.NewsItem, error)
	mutateRatingFunc      func(ctx context.Context, newsID string, rating model.Rating) error
	setReadStateFunc      func(ctx context.Context, newsID string, isRead bool) error
	submitManualEntryFunc func(ctx context.Context, entry model.ManualEntry) (string, error)
	deleteManualEntryFunc func(ctx context.Context, newsID string) error
	triggerAnalysisFunc   func(ctx context.Context, newsID string) error
	saveAnalysisEditFunc  func(ctx context.Context, newsID string, edit model.AnalysisEdit) error
	fetchSystemStatsFunc  func(ctx context.Context) (model.SystemStats, error)
	collectNowFunc        func(ctx context.Context) (model.CollectResult, error)
}

func (f *fakeGateway) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakeGateway) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeGateway) FetchLatest(ctx context.Context, pageSize, offset int) (model.NewsPage, error) {
	f.record("FetchLatest")
	if f.fetchLatestFunc != nil {
		return f.fetchLatestFunc(ctx, pageSize, offset)
	}
	return model.NewsPage{CurrentPage: 1}, nil
}

func (f *fakeGateway) Search(ctx context.Context, q model.Query) (model.NewsPage, error) {
	f.record("Search")
	if f.searchFunc != nil {
		return f.searchFunc(ctx, q)
	}
	return model.NewsPage{CurrentPage: q.Page}, nil
}

func (f *fakeGateway) SearchArchive(ctx context.Context, dr model.DateRange, q model.Query) (model.NewsPage, error) {
	f.record("SearchArchive")
	if f.searchArchiveFunc != nil {
		return f.searchArchiveFunc(ctx, dr, q)
	}
	return model.NewsPage{CurrentPage: q.Page}, nil
}

func (f *fakeGateway) FetchDetail(ctx context.Context, newsID string) (model.NewsItem, error) {
	f.record("FetchDetail")
	if f.fetchDetailFunc != nil {
		return f.fetchDetailFunc(ctx, newsID)
	}
	return model.NewsItem{NewsID: newsID}, nil
}

func (f *fakeGateway) MutateRating(ctx context.Context, newsID string, rating model.Rating) error {
	f.record("MutateRating")
	if f.mutateRatingFunc != nil {
		return f.mutateRatingFunc(ctx, newsID, rating)
	}
	return nil
}

func (f *fakeGateway) SetReadState(ctx context.Context, newsID string, isRead bool) error {
	f.record("SetReadState")
	if f.setReadStateFunc != nil {
		return f.setReadStateFunc(ctx, newsID, isRead)
	}
	return nil
}

func (f *fakeGateway) SubmitManualEntry(ctx context.Context, entry model.ManualEntry) (string, error) {
	f.record("SubmitManualEntry")
	if f.submitManualEntryFunc != nil {
		return f.submitManualEntryFunc(ctx, entry)
	}
	return "manual_1", nil
}

func (f *fakeGateway) DeleteManualEntry(ctx context.Context, newsID string) error {
	f.record("DeleteManualEntry")
	if f.deleteManualEntryFunc != nil {
		return f.deleteManualEntryFunc(ctx, newsID)
	}
	return nil
}

func (f *fakeGateway) TriggerAnalysis(ctx context.Context, newsID string) error {
	f.record("TriggerAnalysis")
	if f.triggerAnalysisFunc != nil {
		return f.triggerAnalysisFunc(ctx, newsID)
	}
	return nil
}

func (f *fakeGateway) SaveAnalysisEdit(ctx context.Context, newsID string, edit model.AnalysisEdit) error {
	f.record("SaveAnalysisEdit")
	if f.saveAnalysisEditFunc != nil {
		return f.saveAnalysisEditFunc(ctx, newsID, edit)
	}
	return nil
}

func (f *fakeGateway) FetchSourcesList(ctx context.Context) ([]string, error) {
	f.record("FetchSourcesList")
	return []string{"Manual Entry", "Refinitiv"}, nil
}

func (f *fakeGateway) FetchMetalsList(ctx context.Context) ([]string, error) {
	f.record("FetchMetalsList")
	return []string{"Copper", "Zinc"}, nil
}

func (f *fakeGateway) FetchSystemStats(ctx context.Context) (model.SystemStats, error) {
	f.record("FetchSystemStats")
	if f.fetchSystemStatsFunc != nil {
		return f.fetchSystemStatsFunc(ctx)
	}
	return model.SystemStats{TotalNews: 10}, nil
}

func (f *fakeGateway) FetchAnalysisStats(ctx context.Context) (model.AnalysisStats, error) {
	f.record("FetchAnalysisStats")
	return model.AnalysisStats{TotalAnalyzed: 4}, nil
}

func (f *fakeGateway) CollectNow(ctx context.Context) (model.CollectResult, error) {
	f.record("CollectNow")
	if f.collectNowFunc != nil {
		return f.collectNowFunc(ctx)
	}
	return model.CollectResult{CollectedCount: 3}, nil
}

// recordingRenderer は描画内容を記録するRenderer。
type recordingRenderer struct {
	mu      sync.Mutex
	renders []Snapshot
	notices []Notice
	alerts  []model.HighImportanceAlert
	ttls    []time.Duration
}

func (r *recordingRenderer) Render(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, s)
}

func (r *recordingRenderer) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingRenderer) Alert(a model.HighImportanceAlert, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	r.ttls = append(r.ttls, ttl)
}

func (r *recordingRenderer) renderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.renders)
}

func (r *recordingRenderer) rendersSince(i int) []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.renders[i:]...)
}

func (r *recordingRenderer) lastNotice() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// fakeNotifications は登録されたハンドラを保持するNotifications。
type fakeNotifications struct {
	high []func(model.HighImportanceAlert)
	data []func(model.DataAvailable)
}

func (n *fakeNotifications) OnHighImportance(h func(model.HighImportanceAlert)) {
	n.high = append(n.high, h)
}

func (n *fakeNotifications) OnDataAvailable(h func(model.DataAvailable)) {
	n.data = append(n.data, h)
}

func (n *fakeNotifications) pushData(count int) {
	for _, h := range n.data {
		h(model.DataAvailable{NewCount: count})
	}
}

func (n *fakeNotifications) pushAlert(a model.HighImportanceAlert) {
	for _, h := range n.high {
		h(a)
	}
}

// fakePrefs はPreferencesのテスト用モック。
type fakePrefs struct {
	mu       sync.Mutex
	interval time.Duration
	saved    int
}

func (p *fakePrefs) SetRefreshInterval(_ context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = d
	p.saved++
	return nil
}

// --- テストハーネス ---

type harness struct {
	ctrl     *Controller
	gw       *fakeGateway
	sched    *refresh.Scheduler
	renderer *recordingRenderer
	notify   *fakeNotifications
	prefs    *fakePrefs
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// newHarness はコントローラを起動し、テスト終了時に停止する。
func newHarness(t *testing.T, gw *fakeGateway) *harness {
	t.Helper()

	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	h := &harness{
		gw:       gw,
		renderer: &recordingRenderer{},
		notify:   &fakeNotifications{},
		prefs:    &fakePrefs{},
	}

	var ctrl *Controller
	h.sched = refresh.NewScheduler(func() { ctrl.TimerTick() }, logger, nil)
	ctrl = New(gw, h.sched, h.renderer, h.prefs, logger, nil, Options{
		PageSize:       50,
		ReconcileDelay: 20 * time.Millisecond,
		AlertTTL:       5 * time.Second,
	})
	h.ctrl = ctrl
	ctrl.Register(h.notify)

	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-ctrl.done
	})
	return h
}

// settle はバックエンド呼び出しとその反映がすべて終わるまで待ち、最終的な表示内容を返す。
func (h *harness) settle(t *testing.T) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.ctrl.Snapshot()
		if h.ctrl.inflight.Load() == 0 {
			s := h.ctrl.Snapshot()
			if h.ctrl.inflight.Load() == 0 {
				return s
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("バックエンド呼び出しが完了しなかった")
		}
		time.Sleep(time.Millisecond)
	}
}

// waitUntil は条件を満たすまで表示内容をポーリングする。
func (h *harness) waitUntil(t *testing.T, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := h.ctrl.Snapshot()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("条件を満たさなかった: %+v", s)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitCalls は呼び出し回数が指定値に達するまで待つ。
func (h *harness) waitCalls(t *testing.T, name string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.gw.count(name) < n {
		if time.Now().After(deadline) {
			t.Fatalf("%s の呼び出し回数 = %d, want %d", name, h.gw.count(name), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func news(id string, rating model.Rating, isRead bool) model.NewsItem {
	return model.NewsItem{NewsID: id, Title: "title " + id, Source: "Refinitiv", Rating: rating, IsRead: isRead}
}

func ids(items []model.NewsItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.NewsID
	}
	return out
}

// block はctxのキャンセルかreleaseのクローズまで待つ。
func block(ctx context.Context, release <-chan struct{}) error {
	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
