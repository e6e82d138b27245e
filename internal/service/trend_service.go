package service

import (
	"fmt"
	"time"

	"github.com/gentlewarriormonk/Emergent-Strive/internal/db"
	"gorm.io/gorm"
)

// TrendService 负责教师看板的完成率趋势聚合
type TrendService struct {
	db *gorm.DB
}

// DailyBucket 表示班级单日的聚合完成率
// Expected 为当日班级内所有习惯应打卡的总次数，为 0 时 Rate 报 0 而非报错
type DailyBucket struct {
	Date           time.Time
	CompletionRate float64
	Completed      int
	Expected       int
}

// WeeklyBucket 表示班级单个 ISO 周的聚合完成率
// 周完成率是周内每日完成率的平均值，与看板“日均值按周汇总”的口径一致
type WeeklyBucket struct {
	Week           string
	CompletionRate float64
}

// NewTrendService 构造 TrendService
func NewTrendService(gdb *gorm.DB) *TrendService {
	return &TrendService{db: gdb}
}

// DailyTrend 返回班级最近 days 天的逐日完成率序列，today 为注入的参照日期
func (s *TrendService) DailyTrend(classID uint, days int, today time.Time) ([]DailyBucket, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive")
	}

	today = dateOnly(today)
	start := today.AddDate(0, 0, -(days - 1))
	return s.bucketRange(classID, start, today)
}

// WeeklyTrend 返回班级最近 weeks 个 ISO 周的完成率序列（含当前周）
func (s *TrendService) WeeklyTrend(classID uint, weeks int, today time.Time) ([]WeeklyBucket, error) {
	if weeks <= 0 {
		return nil, fmt.Errorf("weeks must be positive")
	}

	today = dateOnly(today)
	start := weekAnchor(today).AddDate(0, 0, -7*(weeks-1))

	daily, err := s.bucketRange(classID, start, today)
	if err != nil {
		return nil, err
	}

	// 按 ISO 周分组取日均值，不回到原始计数重新推导
	buckets := make([]WeeklyBucket, 0, weeks)
	index := make(map[string]int)
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, day := range daily {
		key := isoWeekKey(day.Date)
		if _, ok := index[key]; !ok {
			index[key] = len(buckets)
			buckets = append(buckets, WeeklyBucket{Week: key})
		}
		sums[key] += day.CompletionRate
		counts[key]++
	}

	for key, i := range index {
		if counts[key] > 0 {
			buckets[i].CompletionRate = sums[key] / float64(counts[key])
		}
	}

	return buckets, nil
}

// bucketRange 对区间内每个日期生成一个桶，逐日累加应打卡/已打卡次数
func (s *TrendService) bucketRange(classID uint, start, end time.Time) ([]DailyBucket, error) {
	habits, err := classHabits(s.db, classID)
	if err != nil {
		return nil, err
	}

	// 周频习惯的节奏日期是 ISO 周一，可能早于区间起点，取锚点对齐后的下界
	logStart := weekAnchor(start)
	logs, err := NewHabitLogService(s.db).ListBetween(habitIDs(habits), logStart, end)
	if err != nil {
		return nil, err
	}

	dayDone := make(map[uint]map[time.Time]bool)
	weekDone := make(map[uint]map[string]bool)
	habitStart := make(map[uint]time.Time, len(habits))
	for _, habit := range habits {
		habitStart[habit.ID] = dateOnly(habit.StartDate)
	}
	for _, entry := range logs {
		if !entry.Completed {
			continue
		}
		day := dateOnly(entry.OccurredOn)
		if begin, ok := habitStart[entry.HabitID]; !ok || day.Before(begin) {
			continue
		}
		if dayDone[entry.HabitID] == nil {
			dayDone[entry.HabitID] = make(map[time.Time]bool)
		}
		dayDone[entry.HabitID][day] = true
		if weekDone[entry.HabitID] == nil {
			weekDone[entry.HabitID] = make(map[string]bool)
		}
		weekDone[entry.HabitID][isoWeekKey(day)] = true
	}

	buckets := make([]DailyBucket, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		bucket := DailyBucket{Date: d}
		for _, habit := range habits {
			begin := habitStart[habit.ID]
			switch normalizeFrequency(habit.Frequency) {
			case "weekly":
				// 周频习惯只在所属周的锚点日计一次应打卡
				if !d.Equal(weekAnchor(d)) || d.Before(weekAnchor(begin)) {
					continue
				}
				bucket.Expected++
				if weekDone[habit.ID][isoWeekKey(d)] {
					bucket.Completed++
				}
			default:
				if d.Before(begin) {
					continue
				}
				bucket.Expected++
				if dayDone[habit.ID][d] {
					bucket.Completed++
				}
			}
		}
		if bucket.Expected > 0 {
			bucket.CompletionRate = 100 * float64(bucket.Completed) / float64(bucket.Expected)
		}
		buckets = append(buckets, bucket)
	}

	return buckets, nil
}

func habitIDs(habits []db.Habit) []uint {
	ids := make([]uint, 0, len(habits))
	for _, habit := range habits {
		ids = append(ids, habit.ID)
	}
	return ids
}
