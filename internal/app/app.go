package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hitoshi/newswatcher/internal/config"
	"github.com/hitoshi/newswatcher/internal/gateway"
	"github.com/hitoshi/newswatcher/internal/handler"
	"github.com/hitoshi/newswatcher/internal/logger"
	"github.com/hitoshi/newswatcher/internal/metrics"
	"github.com/hitoshi/newswatcher/internal/middleware"
	"github.com/hitoshi/newswatcher/internal/model"
	"github.com/hitoshi/newswatcher/internal/notify"
	"github.com/hitoshi/newswatcher/internal/render"
	"github.com/hitoshi/newswatcher/internal/repository"
	"github.com/hitoshi/newswatcher/internal/syncctl"
	"github.com/hitoshi/newswatcher/internal/worker/refresh"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// shutdownTimeout はHTTPサーバーのグレースフルシャットダウンを待つ上限時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 設定ファイルと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		return runHealthcheck(healthcheckURL(listenAddrFromEnv()))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("backend_url", cfg.BackendURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandCollect:
		return runCollect(ctx, cfg)
	case CommandStatus:
		return runStatus(ctx, cfg)
	default:
		return runWatch(ctx, cfg)
	}
}

// newGateway は設定に従ってバックエンドクライアントを生成する。
func newGateway(cfg *config.Config, collector metrics.MetricsCollector) *gateway.Client {
	return gateway.NewClient(
		&http.Client{Timeout: cfg.BackendTimeout},
		cfg.BackendURL,
		slog.Default(),
		collector,
	)
}

// runWatch は同期クライアントを常駐起動する。
// 全依存関係をワイヤリングし、プッシュ受信用のHTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runWatch(ctx context.Context, cfg *config.Config) error {
	log := slog.Default()

	// 1. メトリクスの初期化
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. 利用者設定の保存先
	prefs, redisClient, err := openPreferences(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	interval, pageSize := resolvePreferences(ctx, prefs, cfg)

	// 3. バックエンドクライアントと通知チャネルの初期化
	gw := newGateway(cfg, collector)
	channel := notify.NewChannel(log, 0)

	// 4. スケジューラと同期コントローラの初期化
	var ctrl *syncctl.Controller
	scheduler := refresh.NewScheduler(func() { ctrl.TimerTick() }, log, collector)
	renderer := render.NewLogRenderer(log)
	ctrl = syncctl.New(gw, scheduler, renderer, prefs, log, collector, syncctl.Options{
		PageSize:       pageSize,
		ReconcileDelay: cfg.ReconcileDelay,
		AlertTTL:       cfg.AlertTTL,
	})
	ctrl.Register(channel)

	// 5. NATS購読（設定されている場合のみ）
	var natsConn *nats.Conn
	if cfg.NATSEnabled() {
		natsConn, err = notify.ConnectNATS(cfg.NATSURL, log)
		if err != nil {
			return err
		}
		defer natsConn.Close()

		sub := notify.NewNATSSubscriber(natsConn, cfg.NATSSubjectPrefix, channel, log, collector)
		if err := sub.Start(); err != nil {
			return err
		}
		defer sub.Close()
	}

	// 6. プッシュ受信ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:            rate.Limit(cfg.PushRateLimit),
		Burst:           cfg.PushRateBurst,
		CleanupInterval: 5 * time.Minute,
	}, log)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Publisher:     channel,
		Metrics:       collector,
		RateLimiter:   rateLimiter,
		Logger:        log,
		Gatherer:      reg,
		HealthChecker: &dependencyChecker{redis: redisClient, nats: natsConn},
	})

	server := &http.Server{
		Addr:         cfg.PushListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 7. バックグラウンド処理の起動
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, start := range []func(context.Context){channel.Run, ctrl.Run, scheduler.Start} {
		wg.Add(1)
		go func(start func(context.Context)) {
			defer wg.Done()
			start(runCtx)
		}(start)
	}

	// 8. 初期表示と自動更新の開始
	if interval > 0 {
		if err := scheduler.Enable(interval); err != nil {
			log.Warn("自動更新を開始できませんでした", slog.String("error", err.Error()))
		}
	}
	ctrl.LoadFilters()
	ctrl.SwitchTab(model.TabLatest)

	// 9. HTTPサーバーの起動
	serverErr := make(chan error, 1)
	go func() {
		log.Info("push receiver starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down...")
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("push receiver failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server shutdown failed: %w", err)
	}

	cancel()
	wg.Wait()

	if runErr == nil {
		log.Info("stopped gracefully")
	}
	return runErr
}

// openPreferences は利用者設定の保存先を開く。
// Redisが設定されていない場合はプロセス内の保存先を使う。
func openPreferences(ctx context.Context, cfg *config.Config) (repository.PreferenceRepository, *redis.Client, error) {
	if !cfg.RedisEnabled() {
		slog.Info("preferences are kept in memory")
		return repository.NewMemoryPrefsRepo(), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
	return repository.NewRedisPrefsRepo(client, cfg.PrefsKey), client, nil
}

// resolvePreferences は保存済みの設定があればそれを、なければ設定ファイルの値を返す。
func resolvePreferences(ctx context.Context, prefs repository.PreferenceRepository, cfg *config.Config) (time.Duration, int) {
	interval := cfg.RefreshInterval
	pageSize := cfg.PageSize

	if v, ok, err := prefs.RefreshInterval(ctx); err != nil {
		slog.Warn("failed to read refresh interval preference", slog.String("error", err.Error()))
	} else if ok {
		interval = v
	}

	if v, ok, err := prefs.PageSize(ctx); err != nil {
		slog.Warn("failed to read page size preference", slog.String("error", err.Error()))
	} else if ok && v > 0 {
		pageSize = v
	}

	return interval, pageSize
}

// runCollect はバックエンドにニュース収集を1回実行させ、結果をログに出力する。
func runCollect(ctx context.Context, cfg *config.Config) error {
	gw := newGateway(cfg, metrics.Nop{})

	result, err := gw.CollectNow(ctx)
	if err != nil {
		return fmt.Errorf("collect failed: %s: %w", model.UserMessage(err), err)
	}

	slog.Info(fmt.Sprintf("%d件のニュースを収集しました", result.CollectedCount),
		slog.Int("collected_count", result.CollectedCount),
	)
	return nil
}

// runStatus はバックエンドの稼働状態をログに出力する。
func runStatus(ctx context.Context, cfg *config.Config) error {
	gw := newGateway(cfg, metrics.Nop{})

	status, err := gw.FetchAppStatus(ctx)
	if err != nil {
		return fmt.Errorf("status failed: %s: %w", model.UserMessage(err), err)
	}

	attrs := []any{
		slog.Bool("database_connected", status.DatabaseConnected),
		slog.Bool("polling_active", status.PollingActive),
	}
	if !status.LastUpdate.IsZero() {
		attrs = append(attrs, slog.Time("last_update", status.LastUpdate))
	}
	slog.Info("backend status", attrs...)
	return nil
}

// listenAddrFromEnv はプッシュ受信の待ち受けアドレスを環境変数から取得する。
func listenAddrFromEnv() string {
	for _, key := range []string{config.EnvPrefix + "_PUSH_LISTEN_ADDR", "PUSH_LISTEN_ADDR"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return config.Default().PushListenAddr
}
