package handler

import (
	"net/http"
	"time"

	"github.com/gentlewarriormonk/Emergent-Strive/internal/service"
	"github.com/gin-gonic/gin"
)

// TriggerRecompute 手工触发一次重算（夜间任务之外的运维入口）
// 支持 habit_id 多值参数或 class_id 限定范围，缺省为全量
func (a *API) TriggerRecompute(c *gin.Context) {
	filter := service.RecomputeFilter{
		HabitIDs: parseUintQuerySlice(c.QueryArray("habit_id")),
	}
	if ids := parseUintQuerySlice([]string{c.Query("class_id")}); len(ids) > 0 {
		filter.ClassID = ids[0]
	}

	summary, err := a.recompute.Run(c.Request.Context(), filter, a.today())
	if err != nil {
		handleEngineError(c, err)
		return
	}

	failures := make([]gin.H, 0, len(summary.Failures))
	for _, failure := range summary.Failures {
		failures = append(failures, gin.H{"habit_id": failure.HabitID, "reason": failure.Reason})
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      summary.RunID,
		"processed":   summary.Processed,
		"failed":      summary.Failed,
		"cancelled":   summary.Cancelled,
		"started_at":  summary.StartedAt.Format(time.RFC3339),
		"finished_at": summary.FinishedAt.Format(time.RFC3339),
		"failures":    failures,
	})
}
