package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandRun は同期クライアントを常駐起動することを示す。
	CommandRun Command = "run"
	// CommandCollect はバックエンドにニュース収集を1回実行させることを示す。
	CommandCollect Command = "collect"
	// CommandStatus はバックエンドの稼働状態を表示することを示す。
	CommandStatus Command = "status"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandRunを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandRun
	}

	switch args[0] {
	case "run":
		return CommandRun
	case "collect":
		return CommandCollect
	case "status":
		return CommandStatus
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandRun
	}
}
