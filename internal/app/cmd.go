package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はWebサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandCreateAdmin は管理者アカウントを発行することを示す。
	// 公開の登録フォームからは管理者を作成できないため、専用のサブコマンドで発行する。
	CommandCreateAdmin Command = "createadmin"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "createadmin":
		return CommandCreateAdmin
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}
