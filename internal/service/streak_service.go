package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gentlewarriormonk/Emergent-Strive/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrHabitNotFound 在指定习惯不存在时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrInvalidHabitState 当习惯自身数据异常（频率非法、开始日期晚于今天）时返回
	ErrInvalidHabitState = errors.New("invalid habit state")
	// ErrLogStoreUnavailable 当底层日志存储不可用时返回，调用方应中止当前操作
	ErrLogStoreUnavailable = errors.New("log store unavailable")
)

const dateLayout = "2006-01-02"

// StreakResult 是单个习惯一次计算的完整输出
type StreakResult struct {
	CurrentStreak   int
	BestStreak      int
	PercentComplete float64
	TodayCompleted  bool
}

// StreakService 负责连续打卡与完成率的计算与持久化
// 计算本身是纯函数；写入 habit_stats 时通过 per-habit 锁与夜间重算串行化
type StreakService struct {
	db *gorm.DB
}

// statLocks 进程内共享：增量更新与夜间重算即使持有不同的服务实例，
// 写同一习惯的派生状态时也必须走同一把锁
var statLocks = newKeyLock()

// NewStreakService 构造 StreakService
func NewStreakService(gdb *gorm.DB) *StreakService {
	return &StreakService{db: gdb}
}

// cadenceSeq 惰性生成节奏日期序列：有限、可重复遍历，不预先物化整段日期
// daily 逐日推进；weekly 以 ISO 周的周一为锚点逐周推进
type cadenceSeq struct {
	start time.Time
	end   time.Time
	step  int
}

// forEach 从头遍历序列，fn 返回 false 时提前终止
func (seq cadenceSeq) forEach(fn func(d time.Time) bool) {
	for d := seq.start; !d.After(seq.end); d = d.AddDate(0, 0, seq.step) {
		if !fn(d) {
			return
		}
	}
}

// newCadenceSeq 按频率构造从开始日期到今天的节奏序列
// custom 频率缺少明确的排期定义，目前按 daily 处理
func newCadenceSeq(frequency string, start, today time.Time) (cadenceSeq, error) {
	switch normalizeFrequency(frequency) {
	case "daily", "custom":
		return cadenceSeq{start: start, end: today, step: 1}, nil
	case "weekly":
		return cadenceSeq{start: weekAnchor(start), end: weekAnchor(today), step: 7}, nil
	default:
		return cadenceSeq{}, fmt.Errorf("%w: unsupported frequency %q", ErrInvalidHabitState, frequency)
	}
}

// Compute 根据习惯定义与打卡历史计算连续/最佳/完成率，不做任何 I/O
// today 是调用方注入的参照日期，整个计算过程只解析一次，保证并发下结果一致
func (s *StreakService) Compute(habit db.Habit, logs []db.HabitLog, today time.Time) (StreakResult, error) {
	today = dateOnly(today)
	start := dateOnly(habit.StartDate)

	if start.After(today) {
		return StreakResult{}, fmt.Errorf("%w: start date %s is after reference date %s",
			ErrInvalidHabitState, start.Format(dateLayout), today.Format(dateLayout))
	}

	seq, err := newCadenceSeq(habit.Frequency, start, today)
	if err != nil {
		return StreakResult{}, err
	}

	weekly := normalizeFrequency(habit.Frequency) == "weekly"

	// 按节奏周期归档打卡：completed 只记成功，logged 记任意提交
	// 早于开始日期的记录直接忽略，不参与任何计数
	completed := make(map[time.Time]bool)
	logged := make(map[time.Time]bool)
	var result StreakResult
	for _, entry := range logs {
		day := dateOnly(entry.OccurredOn)
		if day.Before(start) {
			continue
		}
		key := day
		if weekly {
			key = weekAnchor(day)
		}
		logged[key] = true
		if entry.Completed {
			completed[key] = true
			if day.Equal(today) {
				result.TodayCompleted = true
			}
		}
	}

	final := today
	if weekly {
		final = weekAnchor(today)
	}

	total := 0
	done := 0
	run := 0
	best := 0
	seq.forEach(func(d time.Time) bool {
		total++
		switch {
		case completed[d]:
			run++
			done++
			if run > best {
				best = run
			}
		case d.Equal(final) && !logged[d]:
			// 今天（或本周）尚未打卡：既不延长也不中断连续，保持昨日的值
		default:
			run = 0
		}
		return true
	})

	result.CurrentStreak = run
	result.BestStreak = best
	if total > 0 {
		result.PercentComplete = 100 * float64(done) / float64(total)
	}

	return result, nil
}

// Refresh 从日志存储全量重读并重算单个习惯的派生状态，随后持久化
// 写入阶段持有 per-habit 锁：最佳连续取历史最大值，保证单调不减
func (s *StreakService) Refresh(habitID uint, today time.Time) (*db.HabitStat, error) {
	habit, err := s.GetHabit(habitID)
	if err != nil {
		return nil, err
	}

	logs, err := s.ListLogs(habitID)
	if err != nil {
		return nil, err
	}

	result, err := s.Compute(*habit, logs, today)
	if err != nil {
		return nil, err
	}

	return s.writeStat(habitID, result, today)
}

// StatFor 返回习惯的派生状态，不存在时惰性计算并落库
func (s *StreakService) StatFor(habitID uint, today time.Time) (*db.HabitStat, error) {
	var stat db.HabitStat
	err := s.db.Where("habit_id = ?", habitID).First(&stat).Error
	if err == nil {
		return &stat, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: load habit stat: %v", ErrLogStoreUnavailable, err)
	}

	return s.Refresh(habitID, today)
}

// GetHabit 根据 ID 获取习惯
func (s *StreakService) GetHabit(habitID uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.First(&habit, habitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("%w: load habit %d: %v", ErrLogStoreUnavailable, habitID, err)
	}
	return &habit, nil
}

// ListLogs 返回习惯的全部打卡记录，按日期升序
func (s *StreakService) ListLogs(habitID uint) ([]db.HabitLog, error) {
	var logs []db.HabitLog
	if err := s.db.Where("habit_id = ?", habitID).
		Order("occurred_on ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("%w: list habit logs: %v", ErrLogStoreUnavailable, err)
	}
	return logs, nil
}

// writeStat 在 per-habit 锁内落库，读改写期间同一习惯只有一个写者
func (s *StreakService) writeStat(habitID uint, result StreakResult, today time.Time) (*db.HabitStat, error) {
	unlock := statLocks.lock(habitID)
	defer unlock()

	best := result.BestStreak
	var existing db.HabitStat
	err := s.db.Where("habit_id = ?", habitID).First(&existing).Error
	if err == nil && existing.BestStreak > best {
		best = existing.BestStreak
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: load habit stat: %v", ErrLogStoreUnavailable, err)
	}

	stat := db.HabitStat{
		HabitID:         habitID,
		CurrentStreak:   result.CurrentStreak,
		BestStreak:      best,
		PercentComplete: result.PercentComplete,
		ComputedOn:      dateOnly(today),
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_streak", "best_streak", "percent_complete", "computed_on"}),
	}).Create(&stat).Error; err != nil {
		return nil, fmt.Errorf("%w: write habit stat: %v", ErrLogStoreUnavailable, err)
	}

	if err := s.db.Where("habit_id = ?", habitID).First(&stat).Error; err != nil {
		return nil, fmt.Errorf("%w: reload habit stat: %v", ErrLogStoreUnavailable, err)
	}

	return &stat, nil
}

func normalizeFrequency(frequency string) string {
	return strings.TrimSpace(strings.ToLower(frequency))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekAnchor 返回日期所在 ISO 周的周一
func weekAnchor(t time.Time) time.Time {
	t = dateOnly(t)
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, 1-weekday)
}

// isoWeekKey 生成 YYYY-Www 形式的 ISO 周标识
func isoWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
