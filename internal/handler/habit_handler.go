package handler

import (
	"net/http"
	"time"

	"github.com/gentlewarriormonk/Emergent-Strive/internal/db"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/service"
	"github.com/gin-gonic/gin"
)

const dateFormat = "2006-01-02"

// GetHabitStats 返回单个习惯的派生状态：连续、最佳、完成率、今日是否完成与徽章
// 派生状态缺失时会惰性计算并落库（与原系统首次读取的行为一致）
func (a *API) GetHabitStats(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	habit, err := a.streaks.GetHabit(habitID)
	if err != nil {
		handleEngineError(c, err)
		return
	}

	today := a.today()
	stat, err := a.streaks.StatFor(habitID, today)
	if err != nil {
		handleEngineError(c, err)
		return
	}

	todayCompleted, err := a.habitLogs.CompletedOn(habitID, today)
	if err != nil {
		handleEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"habit":           habitToPayload(*habit),
		"stats":           statToPayload(*stat),
		"today_completed": todayCompleted,
		"badge":           service.ClassifyBadge(stat.CurrentStreak),
	})
}

// UpsertHabitLog 写入/覆盖一条打卡记录并同步增量重算派生状态
// 这是引擎的唯一写入口；同一天的重复提交覆盖先前的值，从不产生重复行
func (a *API) UpsertHabitLog(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	if _, err := a.streaks.GetHabit(habitID); err != nil {
		handleEngineError(c, err)
		return
	}

	var payload struct {
		OccurredOn string `json:"occurred_on"` // 2006-01-02
		Completed  bool   `json:"completed"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	if payload.OccurredOn == "" {
		respondError(c, http.StatusBadRequest, "请选择打卡日期")
		return
	}

	occurredOn, err := time.ParseInLocation(dateFormat, payload.OccurredOn, a.loc)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的打卡日期")
		return
	}

	logEntry, err := a.habitLogs.Upsert(service.HabitLogInput{
		HabitID:    habitID,
		OccurredOn: occurredOn,
		Completed:  payload.Completed,
		RecordedAt: time.Now().In(a.loc),
	})
	if err != nil {
		handleEngineError(c, err)
		return
	}

	stat, err := a.streaks.Refresh(habitID, a.today())
	if err != nil {
		handleEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"log":   logToPayload(*logEntry),
		"stats": statToPayload(*stat),
		"badge": service.ClassifyBadge(stat.CurrentStreak),
	})
}

func habitToPayload(habit db.Habit) gin.H {
	return gin.H{
		"id":         habit.PublicID,
		"title":      habit.Title,
		"frequency":  habit.Frequency,
		"start_date": habit.StartDate.Format(dateFormat),
	}
}

func statToPayload(stat db.HabitStat) gin.H {
	return gin.H{
		"current_streak":   stat.CurrentStreak,
		"best_streak":      stat.BestStreak,
		"percent_complete": stat.PercentComplete,
		"computed_on":      stat.ComputedOn.Format(dateFormat),
	}
}

func logToPayload(entry db.HabitLog) gin.H {
	return gin.H{
		"habit_id":    entry.HabitID,
		"occurred_on": entry.OccurredOn.Format(dateFormat),
		"completed":   entry.Completed,
		"recorded_at": entry.RecordedAt.Format(time.RFC3339),
	}
}
