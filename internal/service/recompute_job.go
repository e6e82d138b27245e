package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrComputationSkipped 标记批量重算中单个习惯的失败，不会中止整次运行
var ErrComputationSkipped = errors.New("computation skipped")

const defaultRecomputeWorkers = 4

// RecomputeJob 是夜间全量重算的批处理驱动
// 以原始打卡日志为唯一事实来源重建所有派生状态，覆盖增量更新可能积累的偏差；
// 各习惯之间相互独立，可在 worker 上限内并行处理
type RecomputeJob struct {
	db      *gorm.DB
	streaks *StreakService
	workers int
	log     *log.Logger
}

// RecomputeFilter 限定重算范围，零值表示全量
type RecomputeFilter struct {
	HabitIDs []uint
	ClassID  uint
}

// RecomputeFailure 记录单个习惯的失败原因，便于排查
type RecomputeFailure struct {
	HabitID uint
	Reason  string
}

// RecomputeSummary 是一次运行的汇总结果
type RecomputeSummary struct {
	RunID      string
	Processed  int
	Failed     int
	Cancelled  bool
	StartedAt  time.Time
	FinishedAt time.Time
	Failures   []RecomputeFailure
}

// NewRecomputeJob 构造 RecomputeJob，workers<=0 时使用默认并发数
func NewRecomputeJob(gdb *gorm.DB, workers int, logger *log.Logger) *RecomputeJob {
	if workers <= 0 {
		workers = defaultRecomputeWorkers
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RecomputeJob{
		db:      gdb,
		streaks: NewStreakService(gdb),
		workers: workers,
		log:     logger,
	}
}

// Run 执行一次重算：列出目标习惯后分发给 worker，逐习惯独立提交
// 单个习惯失败只计入汇总；列表阶段失败则整次中止（此前已提交的写入保持有效）。
// ctx 取消后 worker 做完手头的习惯即停，不会留下写了一半的状态。
// today 由调用方解析一次后注入，运行期间不再读取时钟，保证幂等。
func (j *RecomputeJob) Run(ctx context.Context, filter RecomputeFilter, today time.Time) (*RecomputeSummary, error) {
	summary := &RecomputeSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	ids, err := j.targetHabitIDs(filter)
	if err != nil {
		return nil, err
	}

	j.log.Info("recompute run started", "run_id", summary.RunID, "habits", len(ids), "workers", j.workers)

	jobs := make(chan uint)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < j.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for habitID := range jobs {
				stat, err := j.streaks.Refresh(habitID, today)
				mu.Lock()
				if err != nil {
					skipped := fmt.Errorf("%w: %v", ErrComputationSkipped, err)
					summary.Failed++
					summary.Failures = append(summary.Failures, RecomputeFailure{HabitID: habitID, Reason: skipped.Error()})
					j.log.Warn("habit recompute failed", "run_id", summary.RunID, "habit_id", habitID, "err", err)
				} else {
					summary.Processed++
					j.log.Debug("habit recomputed", "run_id", summary.RunID, "habit_id", habitID,
						"current", stat.CurrentStreak, "best", stat.BestStreak)
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, habitID := range ids {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		select {
		case <-ctx.Done():
			summary.Cancelled = true
			break dispatch
		case jobs <- habitID:
		}
	}
	close(jobs)
	wg.Wait()

	summary.FinishedAt = time.Now()
	if summary.Cancelled {
		j.log.Info("recompute run cancelled", "run_id", summary.RunID,
			"processed", summary.Processed, "failed", summary.Failed)
	} else {
		j.log.Info("recompute run finished", "run_id", summary.RunID,
			"processed", summary.Processed, "failed", summary.Failed,
			"elapsed", summary.FinishedAt.Sub(summary.StartedAt))
	}

	return summary, nil
}

// targetHabitIDs 解析过滤条件为习惯 ID 列表
func (j *RecomputeJob) targetHabitIDs(filter RecomputeFilter) ([]uint, error) {
	if len(filter.HabitIDs) > 0 {
		return filter.HabitIDs, nil
	}

	if filter.ClassID != 0 {
		habits, err := classHabits(j.db, filter.ClassID)
		if err != nil {
			return nil, err
		}
		return habitIDs(habits), nil
	}

	var ids []uint
	if err := j.db.Model(&db.Habit{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("%w: list habits: %v", ErrLogStoreUnavailable, err)
	}
	return ids, nil
}
