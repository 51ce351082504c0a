package resolver

import (
	"context"

	"github.com/adminzero/model"
	"github.com/adminzero/pkg/errors"
	"github.com/adminzero/pkg/logger"
	"go.uber.org/zap"
)

// RoleSource 角色查询，角色不存在时返回nil
type RoleSource interface {
	FindRole(ctx context.Context, roleID int64) (*model.Role, error)
}

// MenuSource 菜单层级查询
type MenuSource interface {
	ActiveMenus(ctx context.Context) ([]model.Menu, error)
	GetOperationsOf(ctx context.Context, menuID int64) ([]model.Operation, error)
	OperationsByMenus(ctx context.Context, menuIDs []int64) ([]model.Operation, error)
}

// GrantSource 角色授权查询
type GrantSource interface {
	GetGrants(ctx context.Context, roleID int64) ([]model.RoleGrant, error)
}

// MenuView 按角色裁剪后的菜单树节点，附带该角色可执行的操作项
type MenuView struct {
	MenuID            int64             `json:"menuId"`
	Name              string            `json:"name"`
	Path              string            `json:"path"`
	Icon              string            `json:"icon"`
	Sort              int               `json:"sort"`
	GrantedOperations []model.Operation `json:"grantedOperations"`
	Children          []*MenuView       `json:"children,omitempty"`
}

// Resolver 权限解析器，组合菜单层级存储与角色授权存储
type Resolver struct {
	roles  RoleSource
	menus  MenuSource
	grants GrantSource
}

// New 创建权限解析器
func New(roles RoleSource, menus MenuSource, grants GrantSource) *Resolver {
	return &Resolver{
		roles:  roles,
		menus:  menus,
		grants: grants,
	}
}

// activeRole 获取启用状态的角色，不存在或禁用返回nil
func (r *Resolver) activeRole(ctx context.Context, roleID int64) (*model.Role, error) {
	role, err := r.roles.FindRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil || role.Disabled() {
		return nil, nil
	}
	return role, nil
}

// MenusForRole 解析角色可见的菜单树。
// 节点可见的条件：角色对该菜单持有任意授权，或其任一后代可见；
// 可见叶子的所有祖先自动纳入，保证树可导航。禁用角色得到空树。
func (r *Resolver) MenusForRole(ctx context.Context, roleID int64) ([]*MenuView, error) {
	empty := []*MenuView{}

	role, err := r.activeRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return empty, nil
	}

	grants, err := r.grants.GetGrants(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return empty, nil
	}

	menus, err := r.menus.ActiveMenus(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*model.Menu, len(menus))
	for i := range menus {
		byID[menus[i].ID] = &menus[i]
	}

	// 角色直接授权的菜单，以及各菜单被授权的操作ID
	grantedOps := make(map[int64]map[int64]struct{})
	visible := make(map[int64]struct{})
	for _, g := range grants {
		m, ok := byID[g.MenuID]
		if !ok {
			// 授权指向已删除或停用的菜单，解析时忽略
			continue
		}
		if !g.MenuLevel() {
			ops := grantedOps[g.MenuID]
			if ops == nil {
				ops = make(map[int64]struct{})
				grantedOps[g.MenuID] = ops
			}
			ops[g.OperationID] = struct{}{}
		}

		// 向上展开祖先，数据成环时以访问集截断
		for m != nil {
			if _, ok := visible[m.ID]; ok {
				break
			}
			visible[m.ID] = struct{}{}
			m = byID[m.ParentID]
		}
	}

	if len(visible) == 0 {
		return empty, nil
	}

	// 批量取出授权菜单的操作项用于标注
	menuIDs := make([]int64, 0, len(grantedOps))
	for id := range grantedOps {
		menuIDs = append(menuIDs, id)
	}
	allOps, err := r.menus.OperationsByMenus(ctx, menuIDs)
	if err != nil {
		return nil, err
	}
	opsByMenu := make(map[int64][]model.Operation)
	for _, op := range allOps {
		if _, ok := grantedOps[op.MenuID][op.ID]; ok {
			opsByMenu[op.MenuID] = append(opsByMenu[op.MenuID], op)
		}
	}

	tree := buildViews(menus, 0, visible, opsByMenu)
	if tree == nil {
		return empty, nil
	}
	return tree, nil
}

// buildViews 递归构建裁剪后的菜单树，保持同级排序
func buildViews(menus []model.Menu, parentID int64, visible map[int64]struct{}, opsByMenu map[int64][]model.Operation) []*MenuView {
	var views []*MenuView
	for i := range menus {
		m := &menus[i]
		if m.ParentID != parentID {
			continue
		}
		if _, ok := visible[m.ID]; !ok {
			continue
		}
		ops := opsByMenu[m.ID]
		if ops == nil {
			ops = []model.Operation{}
		}
		views = append(views, &MenuView{
			MenuID:            m.ID,
			Name:              m.Name,
			Path:              m.Path,
			Icon:              m.Icon,
			Sort:              m.Sort,
			GrantedOperations: ops,
			Children:          buildViews(menus, m.ID, visible, opsByMenu),
		})
	}
	return views
}

// OperationsForMenu 解析角色在指定菜单上可执行的操作项集合。
// 仅菜单级授权不产生任何操作能力：可见不等于可执行。
func (r *Resolver) OperationsForMenu(ctx context.Context, roleID, menuID int64) ([]model.Operation, error) {
	empty := []model.Operation{}

	role, err := r.activeRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return empty, nil
	}

	grants, err := r.grants.GetGrants(ctx, roleID)
	if err != nil {
		return nil, err
	}

	grantedIDs := make(map[int64]struct{})
	for _, g := range grants {
		if g.MenuID == menuID && !g.MenuLevel() {
			grantedIDs[g.OperationID] = struct{}{}
		}
	}
	if len(grantedIDs) == 0 {
		return empty, nil
	}

	ops, err := r.menus.GetOperationsOf(ctx, menuID)
	if err != nil {
		// 菜单已不存在时按空集处理，存在性错误只属于管理写路径
		if errors.Is(err, errors.ErrNotFound) {
			return empty, nil
		}
		return nil, err
	}

	// 与菜单的操作项求交集，保持菜单内的操作排序
	result := make([]model.Operation, 0, len(grantedIDs))
	for _, op := range ops {
		if _, ok := grantedIDs[op.ID]; ok {
			result = append(result, op)
		}
	}
	return result, nil
}

// CanInvoke 判断角色是否可以在菜单上执行指定操作。
// 授权检查路径永不报错：任何歧义或故障一律拒绝。
func (r *Resolver) CanInvoke(ctx context.Context, roleID, menuID, operationID int64) bool {
	ops, err := r.OperationsForMenu(ctx, roleID, menuID)
	if err != nil {
		logger.Warn("authorization check failed closed",
			zap.Int64("roleId", roleID),
			zap.Int64("menuId", menuID),
			zap.Int64("operationId", operationID),
			zap.Error(err))
		return false
	}
	for _, op := range ops {
		if op.ID == operationID {
			return true
		}
	}
	return false
}
