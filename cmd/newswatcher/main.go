// Command newswatcher は金属ニュース分析バックエンドの同期クライアント。
//
// サブコマンド:
//
//	run          常駐して一覧を同期し、プッシュ通知を受信する（既定）
//	collect      バックエンドにニュース収集を1回実行させる
//	status       バックエンドの稼働状態を表示する
//	healthcheck  /health を確認する（Dockerヘルスチェック用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/newswatcher/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "newswatcher: %v\n", err)
		os.Exit(1)
	}
}
