package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/nomiwang10/InkRush/internal/api/http"
	"github.com/nomiwang10/InkRush/internal/config"
	"github.com/nomiwang10/InkRush/internal/logger"
	"github.com/nomiwang10/InkRush/internal/service"
	"github.com/nomiwang10/InkRush/internal/service/game"
	"github.com/nomiwang10/InkRush/internal/state"
	"github.com/nomiwang10/InkRush/internal/wordbank"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel)

	// 按配置选择词库来源
	var words game.WordSupplier

	switch cfg.WordSource {
	case "postgres":
		bank, err := wordbank.NewPostgresBank(context.Background(), cfg.PostgresDSN, cfg.WordsFile)
		if err != nil {
			zap.S().Fatalf("初始化 Postgres 词库失败: %v", err)
		}
		defer bank.Close()

		words = bank
	default:
		bank, err := wordbank.LoadFileBank(cfg.WordsFile)
		if err != nil {
			zap.S().Fatalf("加载词库文件失败: %v", err)
		}

		words = bank
	}

	// 组装应用状态
	appState := state.NewAppState(
		cfg,
		service.NewSessionService(cfg.MaxClients, words),
	)

	// 启动服务器
	http.RunServer(appState)
}
