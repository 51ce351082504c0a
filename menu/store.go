package menu

import (
	"context"
	"time"

	"github.com/adminzero/model"
	"github.com/adminzero/pkg/dal"
	"github.com/adminzero/pkg/errors"
	"gorm.io/gorm"
)

// GrantChecker 授权引用检查，用于删除菜单/操作项时的软保护
type GrantChecker interface {
	MenuGranted(ctx context.Context, menuID int64) (bool, error)
	OperationGranted(ctx context.Context, operationID int64) (bool, error)
}

// Store 菜单层级存储
type Store struct {
	menus   Repository
	ops     OperationRepository
	grants  GrantChecker
	timeout time.Duration
}

// NewStore 创建菜单层级存储，grants可为nil表示不做授权引用检查
func NewStore(db *gorm.DB, grants GrantChecker) *Store {
	return &Store{
		menus:   NewRepositoryWithDB(db),
		ops:     NewOperationRepositoryWithDB(db),
		grants:  grants,
		timeout: 5 * time.Second,
	}
}

// SetGrantChecker 设置授权引用检查
func (s *Store) SetGrantChecker(grants GrantChecker) {
	s.grants = grants
}

// SetTimeout 设置存储调用超时
func (s *Store) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.timeout = timeout
	}
}

// opCtx 为存储调用附加有界超时
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// GetTree 获取完整菜单树，同级按排序键排列
func (s *Store) GetTree(ctx context.Context) ([]*TreeNode, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	menus, err := s.menus.FindAllOrdered(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(menus, 0), nil
}

// ActiveMenus 获取所有启用的菜单，平铺列表
func (s *Store) ActiveMenus(ctx context.Context) ([]model.Menu, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	return s.menus.FindAll(ctx,
		map[string]interface{}{"status": model.StatusActive},
		dal.WithOrder("sort ASC, id ASC"))
}

// GetOperationsOf 获取菜单下的操作项集合，菜单不存在时返回NotFound
func (s *Store) GetOperationsOf(ctx context.Context, menuID int64) ([]model.Operation, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	m, err := s.menus.FindByID(ctx, menuID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NotFound("菜单")
	}
	return s.ops.FindByMenuID(ctx, menuID)
}

// GetAncestorChain 获取从根到指定菜单的祖先链，含菜单自身
func (s *Store) GetAncestorChain(ctx context.Context, menuID int64) ([]model.Menu, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var chain []model.Menu
	visited := make(map[int64]struct{})
	id := menuID

	for id != 0 {
		if _, ok := visited[id]; ok {
			// 数据异常形成环时截断，不陷入死循环
			break
		}
		visited[id] = struct{}{}

		m, err := s.menus.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if m == nil {
			if id == menuID {
				return nil, errors.NotFound("菜单")
			}
			break
		}
		chain = append(chain, *m)
		id = m.ParentID
	}

	// 翻转为根在前
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// OperationsByMenus 批量获取多个菜单下的操作项
func (s *Store) OperationsByMenus(ctx context.Context, menuIDs []int64) ([]model.Operation, error) {
	if len(menuIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	return s.ops.FindAll(ctx,
		map[string]interface{}{"menu_id": menuIDs},
		dal.WithOrder("menu_id ASC, sort ASC, id ASC"))
}

// MenuExists 检查菜单是否存在
func (s *Store) MenuExists(ctx context.Context, menuID int64) (bool, error) {
	return s.menus.Exists(ctx, map[string]interface{}{"id": menuID})
}

// OperationBelongs 检查操作项是否存在且属于指定菜单
func (s *Store) OperationBelongs(ctx context.Context, operationID, menuID int64) (bool, error) {
	return s.ops.Exists(ctx, map[string]interface{}{"id": operationID, "menu_id": menuID})
}

// Create 创建菜单，父菜单必须存在
func (s *Store) Create(ctx context.Context, req *CreateRequest) (*model.Menu, error) {
	if req.Name == "" {
		return nil, errors.Validation("菜单名称不能为空")
	}
	if req.ParentID != 0 {
		exists, err := s.MenuExists(ctx, req.ParentID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, errors.InvalidReference("父菜单")
		}
	}

	m := &model.Menu{
		ParentID: req.ParentID,
		Name:     req.Name,
		Path:     req.Path,
		Icon:     req.Icon,
		Sort:     req.Sort,
		Status:   model.StatusActive,
	}
	if err := s.menus.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Update 更新菜单，移动时保持森林无环
func (s *Store) Update(ctx context.Context, id int64, req *UpdateRequest) (*model.Menu, error) {
	m, err := s.menus.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NotFound("菜单")
	}

	if req.ParentID != nil && *req.ParentID != m.ParentID {
		if err := s.checkMove(ctx, id, *req.ParentID); err != nil {
			return nil, err
		}
		m.ParentID = *req.ParentID
	}
	if req.Name != "" {
		m.Name = req.Name
	}
	if req.Path != "" {
		m.Path = req.Path
	}
	if req.Icon != "" {
		m.Icon = req.Icon
	}
	if req.Sort != nil {
		m.Sort = *req.Sort
	}
	if req.Status > 0 {
		m.Status = req.Status
	}

	if err := s.menus.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// checkMove 校验菜单移动：新父菜单必须存在，且不能是自身或自身的后代
func (s *Store) checkMove(ctx context.Context, id, newParentID int64) error {
	if newParentID == 0 {
		return nil
	}
	if newParentID == id {
		return errors.Validation("父菜单不能是自身")
	}

	exists, err := s.MenuExists(ctx, newParentID)
	if err != nil {
		return err
	}
	if !exists {
		return errors.InvalidReference("父菜单")
	}

	// 沿新父菜单向上走，如果遇到自身则会形成环
	chain, err := s.GetAncestorChain(ctx, newParentID)
	if err != nil {
		return err
	}
	for _, a := range chain {
		if a.ID == id {
			return errors.Validation("父菜单不能是自身的子菜单")
		}
	}
	return nil
}

// Delete 删除菜单，存在子菜单或被授权引用时拒绝
func (s *Store) Delete(ctx context.Context, id int64) error {
	m, err := s.menus.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if m == nil {
		return errors.NotFound("菜单")
	}

	children, err := s.menus.FindByParentID(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return errors.Conflict("存在子菜单，无法删除")
	}

	if s.grants != nil {
		granted, err := s.grants.MenuGranted(ctx, id)
		if err != nil {
			return err
		}
		if granted {
			return errors.Conflict("菜单已被角色授权引用，无法删除")
		}
	}

	return s.menus.Delete(ctx, id)
}

// CreateOperation 创建操作项，操作编码在同一菜单内唯一
func (s *Store) CreateOperation(ctx context.Context, req *CreateOperationRequest) (*model.Operation, error) {
	if req.Key == "" || req.Name == "" {
		return nil, errors.Validation("操作编码和名称不能为空")
	}

	exists, err := s.MenuExists(ctx, req.MenuID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.InvalidReference("菜单")
	}

	existing, err := s.ops.FindByMenuAndKey(ctx, req.MenuID, req.Key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Duplicate("操作编码")
	}

	op := &model.Operation{
		MenuID: req.MenuID,
		Key:    req.Key,
		Name:   req.Name,
		Sort:   req.Sort,
	}
	if err := s.ops.Create(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// UpdateOperation 更新操作项，操作编码和所属菜单不可变更
func (s *Store) UpdateOperation(ctx context.Context, id int64, req *UpdateOperationRequest) (*model.Operation, error) {
	op, err := s.ops.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, errors.NotFound("操作项")
	}

	if req.Name != "" {
		op.Name = req.Name
	}
	if req.Sort != nil {
		op.Sort = *req.Sort
	}

	if err := s.ops.Update(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// DeleteOperation 删除操作项，被授权引用时拒绝
func (s *Store) DeleteOperation(ctx context.Context, id int64) error {
	op, err := s.ops.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if op == nil {
		return errors.NotFound("操作项")
	}

	if s.grants != nil {
		granted, err := s.grants.OperationGranted(ctx, id)
		if err != nil {
			return err
		}
		if granted {
			return errors.Conflict("操作项已被角色授权引用，无法删除")
		}
	}

	return s.ops.Delete(ctx, id)
}
