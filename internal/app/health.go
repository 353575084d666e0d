package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// dependencyChecker は外部依存（Redis、NATS）の疎通を確認する。
// 設定されていない依存は確認しない。
type dependencyChecker struct {
	redis *redis.Client
	nats  *nats.Conn
}

// PingContext は依存先の疎通を確認し、最初に見つかった異常を返す。
func (d *dependencyChecker) PingContext(ctx context.Context) error {
	if d.nats != nil && !d.nats.IsConnected() {
		return errors.New("nats: not connected")
	}
	if d.redis != nil {
		if err := d.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// healthcheckURL は待ち受けアドレスからヘルスチェックのURLを組み立てる。
// ホストが省略されている場合はlocalhostを使う。
func healthcheckURL(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return fmt.Sprintf("http://localhost%s/health", listenAddr)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s/health", net.JoinHostPort(host, port))
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
