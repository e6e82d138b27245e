package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Habit 定义了习惯模型
// Frequency 支持 daily/weekly/custom，custom 目前按 daily 节奏处理
// StartDate 为日历日期（零点），一旦存在打卡记录即不可修改
// PublicID 对外暴露的稳定标识，避免泄露自增主键
type Habit struct {
	gorm.Model
	PublicID  string `gorm:"uniqueIndex;size:36"`
	UserID    uint   `gorm:"index"`
	User      User
	Title     string
	Frequency string
	StartDate time.Time
}

// BeforeCreate 为缺省 PublicID 生成 uuid
func (h *Habit) BeforeCreate(tx *gorm.DB) error {
	if h.PublicID == "" {
		h.PublicID = uuid.NewString()
	}
	return nil
}

// BeforeUpdate 保证已有打卡记录的习惯不允许改动开始日期
func (h *Habit) BeforeUpdate(tx *gorm.DB) error {
	if h.ID == 0 || !tx.Statement.Changed("StartDate") {
		return nil
	}

	var count int64
	if err := tx.Session(&gorm.Session{NewDB: true}).
		Model(&HabitLog{}).
		Where("habit_id = ?", h.ID).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return errors.New("start date is immutable once logs exist")
	}

	return nil
}

// HabitLog 记录习惯打卡日志
// HabitID + OccurredOn 采用唯一索引，保证同一天的重复提交为覆盖而非追加
// OccurredOn 是打卡对应的日历日期，RecordedAt 是实际提交时间，两者含义不同
type HabitLog struct {
	gorm.Model
	HabitID    uint      `gorm:"index;index:idx_habit_log_unique,unique"`
	Habit      Habit     `gorm:"constraint:OnDelete:CASCADE"`
	OccurredOn time.Time `gorm:"index:idx_habit_log_unique,unique"`
	Completed  bool
	RecordedAt time.Time
}

// TableName 重写确保唯一索引作用到 habit_id + occurred_on
func (HabitLog) TableName() string {
	return "habit_logs"
}

// HabitStat 是引擎独占的派生状态（StreakState）
// 仅由增量计算与夜间全量重算写入，后者为权威结果
// 刻意不带 CreatedAt/UpdatedAt：同样输入重算两次必须得到逐字节一致的行
type HabitStat struct {
	ID              uint `gorm:"primarykey"`
	HabitID         uint `gorm:"uniqueIndex"`
	CurrentStreak   int
	BestStreak      int
	PercentComplete float64
	ComputedOn      time.Time
}

// TableName 与原始系统的 habit_stats 集合保持一致
func (HabitStat) TableName() string {
	return "habit_stats"
}
