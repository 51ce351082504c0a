package menu

import (
	"github.com/adminzero/model"
)

// TreeNode 菜单树节点
type TreeNode struct {
	model.Menu
	Children []*TreeNode `json:"children,omitempty"`
}

// CreateRequest 创建菜单请求
type CreateRequest struct {
	ParentID int64  `json:"parentId"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Icon     string `json:"icon"`
	Sort     int    `json:"sort"`
}

// UpdateRequest 更新菜单请求
type UpdateRequest struct {
	ParentID *int64 `json:"parentId"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Icon     string `json:"icon"`
	Sort     *int   `json:"sort"`
	Status   int8   `json:"status"`
}

// CreateOperationRequest 创建操作项请求
type CreateOperationRequest struct {
	MenuID int64  `json:"menuId"`
	Key    string `json:"key"`
	Name   string `json:"name"`
	Sort   int    `json:"sort"`
}

// UpdateOperationRequest 更新操作项请求
type UpdateOperationRequest struct {
	Name string `json:"name"`
	Sort *int   `json:"sort"`
}

// BuildTree 从平铺的菜单列表构建树
func BuildTree(menus []model.Menu, parentID int64) []*TreeNode {
	var tree []*TreeNode
	for i := range menus {
		if menus[i].ParentID == parentID {
			node := &TreeNode{Menu: menus[i]}
			node.Children = BuildTree(menus, menus[i].ID)
			tree = append(tree, node)
		}
	}
	return tree
}
