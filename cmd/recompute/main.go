package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gentlewarriormonk/Emergent-Strive/internal/config"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/db"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/logger"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/service"
)

// 夜间重算入口：由外部调度器（cron）每日触发一次
// 以原始打卡日志为事实来源重建全部派生状态，修正增量更新积累的偏差
func main() {
	classID := flag.Uint("class", 0, "仅重算指定班级的习惯，0 表示全量")
	verbose := flag.Bool("v", false, "输出 debug 级别日志")
	flag.Parse()

	cfg := config.Load()

	jobLogger, err := logger.New(logger.Config{
		FilePath: cfg.RecomputeLogFile,
		Verbose:  *verbose,
		Prefix:   "recompute",
	})
	if err != nil {
		os.Stderr.WriteString("failed to initialize job logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := db.Init(cfg.DatabasePath); err != nil {
		jobLogger.Fatal("failed to initialize database", "err", err)
	}

	// 运行中收到 SIGINT/SIGTERM 时协作式取消：做完手头的习惯后停止
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// “今天”在任务启动时按参照时区解析一次，整个运行过程保持不变
	loc := cfg.Location()
	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	job := service.NewRecomputeJob(db.DB, cfg.RecomputeWorkers, jobLogger)
	summary, err := job.Run(ctx, service.RecomputeFilter{ClassID: uint(*classID)}, today)
	if err != nil {
		jobLogger.Fatal("recompute run aborted", "err", err)
	}

	if summary.Failed > 0 {
		jobLogger.Warn("recompute finished with failures",
			"run_id", summary.RunID, "processed", summary.Processed, "failed", summary.Failed)
	}
}
