package service

import (
	"errors"
	"testing"
	"time"

	"github.com/gentlewarriormonk/Emergent-Strive/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupEngineTestDB(t *testing.T) func() {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.User{}, &db.Class{}, &db.Habit{}, &db.HabitLog{}, &db.HabitStat{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	return func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func mustCreateHabit(t *testing.T, userID uint, title, frequency string, start time.Time) *db.Habit {
	t.Helper()
	habit := db.Habit{UserID: userID, Title: title, Frequency: frequency, StartDate: start}
	if err := db.DB.Create(&habit).Error; err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	return &habit
}

func mustLog(t *testing.T, habitID uint, day time.Time, completed bool) {
	t.Helper()
	svc := NewHabitLogService(db.DB)
	if _, err := svc.Upsert(HabitLogInput{
		HabitID:    habitID,
		OccurredOn: day,
		Completed:  completed,
		RecordedAt: day.Add(20 * time.Hour),
	}); err != nil {
		t.Fatalf("failed to upsert habit log: %v", err)
	}
}

func approxEqual(a, b float64) bool {
	diff := a - b
	return diff < 0.001 && diff > -0.001
}

func TestComputeZeroLogs(t *testing.T) {
	svc := NewStreakService(nil)
	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	habit := db.Habit{Frequency: "daily", StartDate: today}

	result, err := svc.Compute(habit, nil, today)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if result.CurrentStreak != 0 || result.BestStreak != 0 || result.PercentComplete != 0 || result.TodayCompleted {
		t.Fatalf("expected zero result, got %+v", result)
	}
}

func TestComputeDailyScenario(t *testing.T) {
	// 开始日 D，D/D+1/D+2 完成，D+3 漏打，D+4（今天）完成
	svc := NewStreakService(nil)
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	today := start.AddDate(0, 0, 4)
	habit := db.Habit{Frequency: "daily", StartDate: start}

	var logs []db.HabitLog
	for _, offset := range []int{0, 1, 2, 4} {
		logs = append(logs, db.HabitLog{OccurredOn: start.AddDate(0, 0, offset), Completed: true})
	}

	result, err := svc.Compute(habit, logs, today)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if result.CurrentStreak != 1 {
		t.Fatalf("expected current streak 1, got %d", result.CurrentStreak)
	}
	if result.BestStreak != 3 {
		t.Fatalf("expected best streak 3, got %d", result.BestStreak)
	}
	if !approxEqual(result.PercentComplete, 80) {
		t.Fatalf("expected percent 80, got %f", result.PercentComplete)
	}
	if !result.TodayCompleted {
		t.Fatal("expected today completed")
	}
}

func TestComputeTodayUnloggedIsNeutral(t *testing.T) {
	// 今天尚未打卡不应中断连续，保持昨日的值
	svc := NewStreakService(nil)
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	today := start.AddDate(0, 0, 3)
	habit := db.Habit{Frequency: "daily", StartDate: start}

	var logs []db.HabitLog
	for offset := 0; offset < 3; offset++ {
		logs = append(logs, db.HabitLog{OccurredOn: start.AddDate(0, 0, offset), Completed: true})
	}

	result, err := svc.Compute(habit, logs, today)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if result.CurrentStreak != 3 {
		t.Fatalf("expected current streak 3, got %d", result.CurrentStreak)
	}
	if result.TodayCompleted {
		t.Fatal("expected today not completed")
	}
	// 分母包含今天：3/4
	if !approxEqual(result.PercentComplete, 75) {
		t.Fatalf("expected percent 75, got %f", result.PercentComplete)
	}
}

func TestComputeTodayLoggedFalseBreaksStreak(t *testing.T) {
	svc := NewStreakService(nil)
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	today := start.AddDate(0, 0, 2)
	habit := db.Habit{Frequency: "daily", StartDate: start}

	logs := []db.HabitLog{
		{OccurredOn: start, Completed: true},
		{OccurredOn: start.AddDate(0, 0, 1), Completed: true},
		{OccurredOn: today, Completed: false},
	}

	result, err := svc.Compute(habit, logs, today)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if result.CurrentStreak != 0 {
		t.Fatalf("expected current streak 0, got %d", result.CurrentStreak)
	}
	if result.BestStreak != 2 {
		t.Fatalf("expected best streak 2, got %d", result.BestStreak)
	}
}

func TestComputeWeeklyScenario(t *testing.T) {
	// 连续 4 周打卡，空一周，再打 2 周（今天在第 7 周）
	svc := NewStreakService(nil)
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.Local) // 周一
	habit := db.Habit{Frequency: "weekly", StartDate: start}

	var logs []db.HabitLog
	for _, week := range []int{0, 1, 2, 3, 5, 6} {
		// 每周三打一次卡
		logs = append(logs, db.HabitLog{OccurredOn: start.AddDate(0, 0, week*7+2), Completed: true})
	}
	today := start.AddDate(0, 0, 6*7+3)

	result, err := svc.Compute(habit, logs, today)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if result.BestStreak != 4 {
		t.Fatalf("expected best streak 4, got %d", result.BestStreak)
	}
	if result.CurrentStreak != 2 {
		t.Fatalf("expected current streak 2, got %d", result.CurrentStreak)
	}
}

func TestComputeIgnoresLogsBeforeStartDate(t *testing.T) {
	svc := NewStreakService(nil)
	start := time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local)
	today := start.AddDate(0, 0, 1)
	habit := db.Habit{Frequency: "daily", StartDate: start}

	logs := []db.HabitLog{
		{OccurredOn: start.AddDate(0, 0, -3), Completed: true},
		{OccurredOn: start, Completed: true},
	}

	result, err := svc.Compute(habit, logs, today)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if result.BestStreak != 1 || result.CurrentStreak != 1 {
		t.Fatalf("expected streaks 1/1, got %d/%d", result.CurrentStreak, result.BestStreak)
	}
	if !approxEqual(result.PercentComplete, 50) {
		t.Fatalf("expected percent 50, got %f", result.PercentComplete)
	}
}

func TestComputeRejectsInvalidHabitState(t *testing.T) {
	svc := NewStreakService(nil)
	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)

	// 不合法频率
	if _, err := svc.Compute(db.Habit{Frequency: "yearly", StartDate: today}, nil, today); !errors.Is(err, ErrInvalidHabitState) {
		t.Fatalf("expected ErrInvalidHabitState for frequency, got %v", err)
	}

	// 开始日期晚于今天
	if _, err := svc.Compute(db.Habit{Frequency: "daily", StartDate: today.AddDate(0, 0, 1)}, nil, today); !errors.Is(err, ErrInvalidHabitState) {
		t.Fatalf("expected ErrInvalidHabitState for start date, got %v", err)
	}
}

func TestComputeCustomFrequencyTreatedAsDaily(t *testing.T) {
	svc := NewStreakService(nil)
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	today := start.AddDate(0, 0, 1)
	habit := db.Habit{Frequency: "custom", StartDate: start}

	logs := []db.HabitLog{
		{OccurredOn: start, Completed: true},
		{OccurredOn: today, Completed: true},
	}

	result, err := svc.Compute(habit, logs, today)
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}

	if result.CurrentStreak != 2 {
		t.Fatalf("expected current streak 2, got %d", result.CurrentStreak)
	}
}

func TestCurrentNeverExceedsBest(t *testing.T) {
	svc := NewStreakService(nil)
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	habit := db.Habit{Frequency: "daily", StartDate: start}

	var logs []db.HabitLog
	for offset := 0; offset < 10; offset++ {
		logs = append(logs, db.HabitLog{OccurredOn: start.AddDate(0, 0, offset), Completed: offset%3 != 2})
	}

	for days := 0; days < 10; days++ {
		result, err := svc.Compute(habit, logs, start.AddDate(0, 0, days))
		if err != nil {
			t.Fatalf("Compute returned error: %v", err)
		}
		if result.CurrentStreak > result.BestStreak {
			t.Fatalf("current %d exceeds best %d at day %d", result.CurrentStreak, result.BestStreak, days)
		}
	}
}

func TestRefreshPersistsAndBestNeverShrinks(t *testing.T) {
	cleanup := setupEngineTestDB(t)
	defer cleanup()

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	today := start.AddDate(0, 0, 2)
	habit := mustCreateHabit(t, 1, "晨读", "daily", start)
	mustLog(t, habit.ID, start, true)
	mustLog(t, habit.ID, start.AddDate(0, 0, 1), true)

	svc := NewStreakService(db.DB)
	stat, err := svc.Refresh(habit.ID, today)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	if stat.CurrentStreak != 2 || stat.BestStreak != 2 {
		t.Fatalf("unexpected streaks: current=%d best=%d", stat.CurrentStreak, stat.BestStreak)
	}

	// 人为抬高历史最佳，重算后不允许回落
	if err := db.DB.Model(&db.HabitStat{}).Where("habit_id = ?", habit.ID).Update("best_streak", 10).Error; err != nil {
		t.Fatalf("failed to update best streak: %v", err)
	}

	stat, err = svc.Refresh(habit.ID, today)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if stat.BestStreak != 10 {
		t.Fatalf("expected best streak to stay 10, got %d", stat.BestStreak)
	}
}

func TestRefreshIdempotent(t *testing.T) {
	cleanup := setupEngineTestDB(t)
	defer cleanup()

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	today := start.AddDate(0, 0, 3)
	habit := mustCreateHabit(t, 1, "跑步", "daily", start)
	mustLog(t, habit.ID, start, true)
	mustLog(t, habit.ID, start.AddDate(0, 0, 2), true)

	svc := NewStreakService(db.DB)
	first, err := svc.Refresh(habit.ID, today)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	second, err := svc.Refresh(habit.ID, today)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	if *first != *second {
		t.Fatalf("expected identical stats, got %+v vs %+v", first, second)
	}
}

func TestStatForLazilyComputes(t *testing.T) {
	cleanup := setupEngineTestDB(t)
	defer cleanup()

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	habit := mustCreateHabit(t, 1, "写日记", "daily", start)
	mustLog(t, habit.ID, start, true)

	svc := NewStreakService(db.DB)
	stat, err := svc.StatFor(habit.ID, start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("StatFor returned error: %v", err)
	}

	if stat.CurrentStreak != 1 {
		t.Fatalf("expected current streak 1, got %d", stat.CurrentStreak)
	}

	var count int64
	db.DB.Model(&db.HabitStat{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected stat row to be persisted, got %d rows", count)
	}
}

func TestGetHabitNotFound(t *testing.T) {
	cleanup := setupEngineTestDB(t)
	defer cleanup()

	svc := NewStreakService(db.DB)
	if _, err := svc.GetHabit(99); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound, got %v", err)
	}
}
