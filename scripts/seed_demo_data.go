package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gentlewarriormonk/Emergent-Strive/internal/config"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/db"
	"github.com/gentlewarriormonk/Emergent-Strive/internal/service"
)

// 演示数据生成器
func main() {
	// 初始化数据库
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成演示数据...")

	class := createDemoClass()
	students := createDemoStudents(class)
	createDemoHabits(students)

	fmt.Println("演示数据生成完成！")
	fmt.Printf("班级: %s，学生: %d 名\n", class.Name, len(students))
}

// 创建演示班级与教师
func createDemoClass() *db.Class {
	var existing db.Class
	if err := db.DB.Where("name = ?", "7A 晨习班").First(&existing).Error; err == nil {
		fmt.Println("班级已存在，跳过创建")
		return &existing
	}

	teacher, err := db.EnsureUser("陈老师", "teacher@strive.demo", "teacher123", db.RoleTeacher, nil)
	if err != nil {
		log.Fatal("创建教师失败:", err)
	}

	class := db.Class{Name: "7A 晨习班", TeacherID: teacher.ID}
	if err := db.DB.Create(&class).Error; err != nil {
		log.Fatal("创建班级失败:", err)
	}

	teacher.ClassID = &class.ID
	db.DB.Save(teacher)

	return &class
}

// 创建演示学生
func createDemoStudents(class *db.Class) []*db.User {
	names := []struct {
		name  string
		email string
	}{
		{"小林", "lin@strive.demo"},
		{"小吴", "wu@strive.demo"},
		{"小赵", "zhao@strive.demo"},
	}

	students := make([]*db.User, 0, len(names))
	for _, item := range names {
		student, err := db.EnsureUser(item.name, item.email, "student123", db.RoleStudent, &class.ID)
		if err != nil {
			log.Fatal("创建学生失败:", err)
		}
		students = append(students, student)
	}

	return students
}

// 为每名学生创建习惯并补上最近两周的打卡记录
func createDemoHabits(students []*db.User) {
	var count int64
	db.DB.Model(&db.Habit{}).Count(&count)
	if count > 0 {
		fmt.Println("习惯已存在，跳过创建")
		return
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -13)

	titles := []string{"晨读 20 分钟", "跑步 2 公里", "练字一页"}
	logSvc := service.NewHabitLogService(db.DB)
	streakSvc := service.NewStreakService(db.DB)

	for i, student := range students {
		habit := db.Habit{
			UserID:    student.ID,
			Title:     titles[i%len(titles)],
			Frequency: "daily",
			StartDate: start,
		}
		if err := db.DB.Create(&habit).Error; err != nil {
			log.Fatal("创建习惯失败:", err)
		}

		// 每个学生错开漏打的日期，便于看板展示差异
		for d := 0; d < 14; d++ {
			if (d+i)%5 == 4 {
				continue
			}
			date := start.AddDate(0, 0, d)
			if _, err := logSvc.Upsert(service.HabitLogInput{
				HabitID:    habit.ID,
				OccurredOn: date,
				Completed:  true,
				RecordedAt: date.Add(20 * time.Hour),
			}); err != nil {
				log.Fatal("写入打卡记录失败:", err)
			}
		}

		if _, err := streakSvc.Refresh(habit.ID, today); err != nil {
			log.Fatal("计算派生状态失败:", err)
		}
	}
}
