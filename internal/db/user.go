package db

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 角色常量，与班级名册展示保持一致
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// User 定义了用户模型
// Role 仅使用 student/teacher；ClassID 为空表示尚未加入班级
// 认证逻辑不在本仓库范围内，PasswordHash 只是持久化字段
type User struct {
	gorm.Model
	PublicID     string `gorm:"uniqueIndex;size:36"`
	Name         string
	Email        string `gorm:"uniqueIndex"`
	PasswordHash string
	Role         string
	ClassID      *uint `gorm:"index"`
}

// BeforeCreate 为缺省 PublicID 生成 uuid
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.PublicID == "" {
		u.PublicID = uuid.NewString()
	}
	return nil
}

// EnsureUser 存在性检查：若提供的邮箱不存在对应账号，则创建一个 bcrypt 哈希的用户。
func EnsureUser(name, email, password, role string, classID *uint) (*User, error) {
	trimmedEmail := strings.TrimSpace(email)
	if trimmedEmail == "" {
		return nil, errors.New("email is required")
	}

	if DB == nil {
		return nil, errors.New("database not initialized")
	}

	var existing User
	err := DB.Where("email = ?", trimmedEmail).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := User{
		Name:         strings.TrimSpace(name),
		Email:        trimmedEmail,
		PasswordHash: string(hashed),
		Role:         role,
		ClassID:      classID,
	}
	if err := DB.Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}
