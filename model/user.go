package model

import (
	"github.com/adminzero/pkg/dal"
)

// User 用户模型，一个用户只属于一个角色
type User struct {
	dal.Model
	Username string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Password string `gorm:"size:100;not null" json:"-"`
	Nickname string `gorm:"size:50" json:"nickname"`
	Email    string `gorm:"size:100" json:"email"`
	RoleID   int64  `gorm:"index;not null" json:"roleId"`
	Status   int8   `gorm:"default:1" json:"status"`
}

// TableName 表名
func (User) TableName() string {
	return "sys_user"
}

// Disabled 用户是否被禁用
func (u *User) Disabled() bool {
	return u.Status != StatusActive
}
