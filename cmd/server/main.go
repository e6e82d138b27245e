package main

import (
	"log"

	"github.com/gentlewarriormonk/Emergent-Strive/internal/config"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/db"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/handler"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/logger"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/router"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	jobLogger, err := logger.New(logger.Config{FilePath: cfg.RecomputeLogFile, Prefix: "recompute"})
	if err != nil {
		log.Fatalf("failed to initialize job logger: %v", err)
	}

	api := handler.NewAPI(db.DB, cfg.RecomputeWorkers, cfg.Location(), jobLogger)

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
