package service

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gentlewarriormonk/Emergent-Strive/internal/db"
	"gorm.io/gorm"
)

// LeaderboardService 负责班级名册的排名聚合
type LeaderboardService struct {
	db      *gorm.DB
	streaks *StreakService
}

// RosterEntry 是名册中的一行，排序后返回给看板
// LastActivity 暴露原始时间戳，RecentActivity 只是便于展示的相对描述
type RosterEntry struct {
	UserPublicID   string
	Name           string
	Role           string
	TotalHabits    int
	ActiveHabits   int
	CompletionRate float64
	CurrentStreak  int
	BestStreak     int
	Badge          BadgeTier
	LastActivity   *time.Time
	RecentActivity string
}

// NewLeaderboardService 构造 LeaderboardService
func NewLeaderboardService(gdb *gorm.DB) *LeaderboardService {
	return &LeaderboardService{db: gdb, streaks: NewStreakService(gdb)}
}

// Rank 生成班级排名：按成员最高当前连续降序，相同时按完成率降序
// 仍然并列时保持名册原始顺序，不额外引入业务含义的次级键
func (s *LeaderboardService) Rank(classID uint, today time.Time) ([]RosterEntry, error) {
	today = dateOnly(today)

	var members []db.User
	if err := s.db.Where("class_id = ?", classID).
		Order("id ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("%w: list class members: %v", ErrLogStoreUnavailable, err)
	}

	habits, err := classHabits(s.db, classID)
	if err != nil {
		return nil, err
	}

	habitsByUser := make(map[uint][]db.Habit)
	for _, habit := range habits {
		habitsByUser[habit.UserID] = append(habitsByUser[habit.UserID], habit)
	}

	stats, err := s.statsByHabit(habitIDs(habits))
	if err != nil {
		return nil, err
	}

	logsByHabit, err := s.logsByHabit(habitIDs(habits))
	if err != nil {
		return nil, err
	}

	entries := make([]RosterEntry, 0, len(members))
	for _, member := range members {
		entry := RosterEntry{
			UserPublicID:   member.PublicID,
			Name:           member.Name,
			Role:           member.Role,
			RecentActivity: "no activity yet",
		}

		var percentSum float64
		rated := 0
		for _, habit := range habitsByUser[member.ID] {
			entry.TotalHabits++
			if !dateOnly(habit.StartDate).After(today) {
				entry.ActiveHabits++
			}

			stat, ok := stats[habit.ID]
			if !ok {
				// 派生状态尚未建立时从原始日志直接算，只读不落库
				result, err := s.streaks.Compute(habit, logsByHabit[habit.ID], today)
				if err != nil {
					continue
				}
				stat = db.HabitStat{
					CurrentStreak:   result.CurrentStreak,
					BestStreak:      result.BestStreak,
					PercentComplete: result.PercentComplete,
				}
			}

			if stat.CurrentStreak > entry.CurrentStreak {
				entry.CurrentStreak = stat.CurrentStreak
			}
			if stat.BestStreak > entry.BestStreak {
				entry.BestStreak = stat.BestStreak
			}
			percentSum += stat.PercentComplete
			rated++

			for _, logEntry := range logsByHabit[habit.ID] {
				recorded := logEntry.RecordedAt
				if entry.LastActivity == nil || recorded.After(*entry.LastActivity) {
					t := recorded
					entry.LastActivity = &t
				}
			}
		}

		if rated > 0 {
			entry.CompletionRate = percentSum / float64(rated)
		}
		entry.Badge = ClassifyBadge(entry.CurrentStreak)
		if entry.LastActivity != nil {
			entry.RecentActivity = recentActivityLabel(*entry.LastActivity, today)
		}

		entries = append(entries, entry)
	}

	slices.SortStableFunc(entries, func(a, b RosterEntry) int {
		if diff := cmp.Compare(b.CurrentStreak, a.CurrentStreak); diff != 0 {
			return diff
		}
		return cmp.Compare(b.CompletionRate, a.CompletionRate)
	})

	return entries, nil
}

func (s *LeaderboardService) statsByHabit(ids []uint) (map[uint]db.HabitStat, error) {
	result := make(map[uint]db.HabitStat, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var stats []db.HabitStat
	if err := s.db.Where("habit_id IN ?", ids).Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("%w: load habit stats: %v", ErrLogStoreUnavailable, err)
	}

	for _, stat := range stats {
		result[stat.HabitID] = stat
	}
	return result, nil
}

func (s *LeaderboardService) logsByHabit(ids []uint) (map[uint][]db.HabitLog, error) {
	result := make(map[uint][]db.HabitLog, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var logs []db.HabitLog
	if err := s.db.Where("habit_id IN ?", ids).
		Order("occurred_on ASC").
		Find(&logs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("%w: list habit logs: %v", ErrLogStoreUnavailable, err)
	}

	for _, entry := range logs {
		result[entry.HabitID] = append(result[entry.HabitID], entry)
	}
	return result, nil
}

// recentActivityLabel 生成 today/yesterday/N days ago 形式的相对描述
func recentActivityLabel(lastActivity, today time.Time) string {
	days := int(today.Sub(dateOnly(lastActivity)).Hours() / 24)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}
