package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gentlewarriormonk/Emergent-Strive/internal/db"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultTrendDays  = 30
	defaultTrendWeeks = 12
	maxTrendDays      = 365
	maxTrendWeeks     = 104
)

// GetClassLeaderboard 返回班级排名名册
func (a *API) GetClassLeaderboard(c *gin.Context) {
	classID, ok := a.resolveClass(c)
	if !ok {
		return
	}

	entries, err := a.leaderboard.Rank(classID, a.today())
	if err != nil {
		handleEngineError(c, err)
		return
	}

	items := make([]gin.H, 0, len(entries))
	for i, entry := range entries {
		item := gin.H{
			"rank":            i + 1,
			"user_id":         entry.UserPublicID,
			"name":            entry.Name,
			"role":            entry.Role,
			"total_habits":    entry.TotalHabits,
			"active_habits":   entry.ActiveHabits,
			"completion_rate": entry.CompletionRate,
			"current_streak":  entry.CurrentStreak,
			"best_streak":     entry.BestStreak,
			"badge":           entry.Badge,
			"recent_activity": entry.RecentActivity,
		}
		if entry.LastActivity != nil {
			item["last_activity"] = entry.LastActivity.Format(time.RFC3339)
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": items})
}

// GetClassDailyTrend 返回班级最近 N 天的逐日完成率
func (a *API) GetClassDailyTrend(c *gin.Context) {
	classID, ok := a.resolveClass(c)
	if !ok {
		return
	}

	days := parseBoundedQuery(c, "days", defaultTrendDays, maxTrendDays)
	buckets, err := a.trends.DailyTrend(classID, days, a.today())
	if err != nil {
		handleEngineError(c, err)
		return
	}

	items := make([]gin.H, 0, len(buckets))
	for _, bucket := range buckets {
		items = append(items, gin.H{
			"date":            bucket.Date.Format(dateFormat),
			"completion_rate": bucket.CompletionRate,
			"completed":       bucket.Completed,
			"expected":        bucket.Expected,
		})
	}

	c.JSON(http.StatusOK, gin.H{"days": items})
}

// GetClassWeeklyTrend 返回班级最近 N 个 ISO 周的完成率（日均值按周汇总）
func (a *API) GetClassWeeklyTrend(c *gin.Context) {
	classID, ok := a.resolveClass(c)
	if !ok {
		return
	}

	weeks := parseBoundedQuery(c, "weeks", defaultTrendWeeks, maxTrendWeeks)
	buckets, err := a.trends.WeeklyTrend(classID, weeks, a.today())
	if err != nil {
		handleEngineError(c, err)
		return
	}

	items := make([]gin.H, 0, len(buckets))
	for _, bucket := range buckets {
		items = append(items, gin.H{
			"week":            bucket.Week,
			"completion_rate": bucket.CompletionRate,
		})
	}

	c.JSON(http.StatusOK, gin.H{"weeks": items})
}

// resolveClass 解析并校验班级参数，失败时已写入响应
func (a *API) resolveClass(c *gin.Context) (uint, bool) {
	classID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的班级ID")
		return 0, false
	}

	var class db.Class
	if err := a.db.First(&class, classID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "班级不存在")
			return 0, false
		}
		handleEngineError(c, service.ErrLogStoreUnavailable)
		return 0, false
	}

	return class.ID, true
}

func parseBoundedQuery(c *gin.Context, key string, fallback, max int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}

	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return fallback
	}
	if val > max {
		return max
	}
	return val
}
