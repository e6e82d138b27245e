package handler

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/service"
	"gorm.io/gorm"
)

// API 聚合各 HTTP 处理器共享的依赖
type API struct {
	db          *gorm.DB
	streaks     *service.StreakService
	habitLogs   *service.HabitLogService
	leaderboard *service.LeaderboardService
	trends      *service.TrendService
	recompute   *service.RecomputeJob
	loc         *time.Location
}

// NewAPI 构造处理器集合并初始化各领域服务
func NewAPI(gdb *gorm.DB, recomputeWorkers int, loc *time.Location, jobLogger *log.Logger) *API {
	if loc == nil {
		loc = time.Local
	}

	return &API{
		db:          gdb,
		streaks:     service.NewStreakService(gdb),
		habitLogs:   service.NewHabitLogService(gdb),
		leaderboard: service.NewLeaderboardService(gdb),
		trends:      service.NewTrendService(gdb),
		recompute:   service.NewRecomputeJob(gdb, recomputeWorkers, jobLogger),
		loc:         loc,
	}
}

// DB 暴露底层 gorm 实例
func (a *API) DB() *gorm.DB {
	return a.db
}

// today 在每个请求开始时解析一次参照日期，处理过程中不再读取时钟
func (a *API) today() time.Time {
	now := time.Now().In(a.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)
}
