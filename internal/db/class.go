package db

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Class 定义了班级模型
// TeacherID 指向创建班级的教师用户；成员关系通过 User.ClassID 表达
type Class struct {
	gorm.Model
	PublicID  string `gorm:"uniqueIndex;size:36"`
	Name      string `gorm:"uniqueIndex"`
	TeacherID uint   `gorm:"index"`
}

// BeforeCreate 为缺省 PublicID 生成 uuid
func (c *Class) BeforeCreate(tx *gorm.DB) error {
	if c.PublicID == "" {
		c.PublicID = uuid.NewString()
	}
	return nil
}
