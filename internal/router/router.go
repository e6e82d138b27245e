package router

import (
	"github.com/gentlewarriormonk/Emergent-Strive/internal/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API) *gin.Engine {
	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// 看板/API 层消费的引擎接口
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/habits/:id/stats", api.GetHabitStats)
		apiGroup.POST("/habits/:id/logs", api.UpsertHabitLog)

		apiGroup.GET("/classes/:id/leaderboard", api.GetClassLeaderboard)
		apiGroup.GET("/classes/:id/analytics/daily", api.GetClassDailyTrend)
		apiGroup.GET("/classes/:id/analytics/weekly", api.GetClassWeeklyTrend)

		apiGroup.POST("/admin/recompute", api.TriggerRecompute)
	}

	return r
}
