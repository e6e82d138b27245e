package service

import (
	"fmt"
	"time"

	"github.com/gentlewarriormonk/Emergent-Strive/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HabitLogService 负责打卡记录的写入与区间查询
// 打卡表是追加/覆盖语义：同一 (habit, occurred_on) 只保留最后一次提交，从不删除
type HabitLogService struct {
	db *gorm.DB
}

// HabitLogInput 定义打卡时的输入对象
// OccurredOn 为打卡归属的日历日期，RecordedAt 为实际提交时间
type HabitLogInput struct {
	HabitID    uint
	OccurredOn time.Time
	Completed  bool
	RecordedAt time.Time
}

// NewHabitLogService 构造 HabitLogService
func NewHabitLogService(gdb *gorm.DB) *HabitLogService {
	return &HabitLogService{db: gdb}
}

// Upsert 处理幂等打卡逻辑：同日期已有记录则覆盖 completed/recorded_at，否则创建
func (s *HabitLogService) Upsert(input HabitLogInput) (*db.HabitLog, error) {
	occurredOn := dateOnly(input.OccurredOn)
	recordedAt := input.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	record := db.HabitLog{
		HabitID:    input.HabitID,
		OccurredOn: occurredOn,
		Completed:  input.Completed,
		RecordedAt: recordedAt,
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}, {Name: "occurred_on"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "recorded_at", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("%w: upsert habit log: %v", ErrLogStoreUnavailable, err)
	}

	if err := s.db.Where("habit_id = ? AND occurred_on = ?", input.HabitID, occurredOn).First(&record).Error; err != nil {
		return nil, fmt.Errorf("%w: reload habit log: %v", ErrLogStoreUnavailable, err)
	}

	return &record, nil
}

// ListBetween 返回一组习惯在日期区间内的打卡记录，按日期升序
func (s *HabitLogService) ListBetween(habitIDs []uint, start, end time.Time) ([]db.HabitLog, error) {
	if len(habitIDs) == 0 {
		return nil, nil
	}

	var logs []db.HabitLog
	if err := s.db.Where("habit_id IN ?", habitIDs).
		Where("occurred_on BETWEEN ? AND ?", dateOnly(start), dateOnly(end)).
		Order("occurred_on ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("%w: list habit logs: %v", ErrLogStoreUnavailable, err)
	}

	return logs, nil
}

// CompletedOn 判断习惯在指定日期是否存在完成记录
func (s *HabitLogService) CompletedOn(habitID uint, date time.Time) (bool, error) {
	var count int64
	if err := s.db.Model(&db.HabitLog{}).
		Where("habit_id = ? AND occurred_on = ? AND completed = ?", habitID, dateOnly(date), true).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("%w: check habit log: %v", ErrLogStoreUnavailable, err)
	}
	return count > 0, nil
}

// classHabits 列出班级成员名下的全部习惯（list_class_habits 协作接口）
func classHabits(gdb *gorm.DB, classID uint) ([]db.Habit, error) {
	var habits []db.Habit
	if err := gdb.
		Joins("JOIN users ON users.id = habits.user_id").
		Where("users.class_id = ?", classID).
		Order("habits.id ASC").
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("%w: list class habits: %v", ErrLogStoreUnavailable, err)
	}
	return habits, nil
}
