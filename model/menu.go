package model

import (
	"github.com/adminzero/pkg/dal"
)

// Menu 菜单模型，ParentID为0表示根节点
type Menu struct {
	dal.Model
	ParentID int64  `gorm:"default:0;index" json:"parentId"`
	Name     string `gorm:"size:50;not null" json:"name"`
	Path     string `gorm:"size:255" json:"path"`
	Icon     string `gorm:"size:50" json:"icon"`
	Sort     int    `gorm:"default:0" json:"sort"`
	Status   int8   `gorm:"default:1" json:"status"`
}

// TableName 表名
func (Menu) TableName() string {
	return "sys_menu"
}

// Operation 菜单下的操作项，Key在同一菜单内唯一
type Operation struct {
	dal.Model
	MenuID int64  `gorm:"uniqueIndex:idx_menu_op_key;not null" json:"menuId"`
	Key    string `gorm:"column:op_key;size:50;uniqueIndex:idx_menu_op_key;not null" json:"key"`
	Name   string `gorm:"size:50;not null" json:"name"`
	Sort   int    `gorm:"default:0" json:"sort"`
}

// TableName 表名
func (Operation) TableName() string {
	return "sys_operation"
}
