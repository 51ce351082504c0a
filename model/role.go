package model

import (
	"fmt"

	"github.com/adminzero/pkg/dal"
)

// 状态值
const (
	StatusActive   int8 = 1
	StatusDisabled int8 = 2
)

// MenuLevelOperation 菜单级授权的操作ID哨兵值，表示仅可见菜单
const MenuLevelOperation int64 = 0

// Role 角色模型
type Role struct {
	dal.Model
	Name        string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Status      int8   `gorm:"default:1" json:"status"`
	Sort        int    `gorm:"default:0" json:"sort"`
	Description string `gorm:"size:255" json:"description"`
}

// TableName 表名
func (Role) TableName() string {
	return "sys_role"
}

// Disabled 角色是否被禁用
func (r *Role) Disabled() bool {
	return r.Status != StatusActive
}

// RoleGrant 角色授权，OperationID为0表示菜单级授权
type RoleGrant struct {
	ID          int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleID      int64 `gorm:"index:idx_role_grant;not null" json:"roleId"`
	MenuID      int64 `gorm:"index:idx_role_grant;not null" json:"menuId"`
	OperationID int64 `gorm:"index:idx_role_grant;default:0" json:"operationId"`
}

// TableName 表名
func (RoleGrant) TableName() string {
	return "sys_role_grant"
}

// Key 授权的复合键形式 "menuId_operationId"
func (g RoleGrant) Key() string {
	return fmt.Sprintf("%d_%d", g.MenuID, g.OperationID)
}

// MenuLevel 是否为菜单级授权
func (g RoleGrant) MenuLevel() bool {
	return g.OperationID == MenuLevelOperation
}
