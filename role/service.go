package role

import (
	"context"

	"github.com/adminzero/model"
	"github.com/adminzero/pkg/dal"
	"github.com/adminzero/pkg/errors"
	"github.com/adminzero/pkg/utils"
	"gorm.io/gorm"
)

// GrantStore 角色授权存储
type GrantStore interface {
	GetGrants(ctx context.Context, roleID int64) ([]model.RoleGrant, error)
	ReplaceGrants(ctx context.Context, roleID int64, keys []string) error
	RoleGranted(ctx context.Context, roleID int64) (bool, error)
}

// UserChecker 用户引用检查，用于删除角色时的保护
type UserChecker interface {
	RoleInUse(ctx context.Context, roleID int64) (bool, error)
}

// Service 角色管理服务
type Service struct {
	repo   Repository
	grants GrantStore
	users  UserChecker
	schema *dal.Schema
}

// NewService 创建角色管理服务，users可为nil表示不做用户引用检查
func NewService(db *gorm.DB, grants GrantStore, users UserChecker) *Service {
	return &Service{
		repo:   NewRepositoryWithDB(db),
		grants: grants,
		users:  users,
		schema: searchSchema(),
	}
}

// SetUserChecker 设置用户引用检查
func (s *Service) SetUserChecker(users UserChecker) {
	s.users = users
}

// searchSchema 角色分页搜索的字段白名单
func searchSchema() *dal.Schema {
	return dal.NewSchema().
		Field("name", "name", dal.KindString).
		Field("status", "status", dal.KindInt).
		Field("sort", "sort", dal.KindInt).
		Field("createdAt", "created_at", dal.KindTime)
}

// Create 创建角色，角色名唯一
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*model.Role, error) {
	if req.Name == "" {
		return nil, errors.Validation("角色名称不能为空")
	}

	existing, err := s.repo.FindByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Duplicate("角色名称")
	}

	role := &model.Role{
		Name:        req.Name,
		Status:      model.StatusActive,
		Sort:        req.Sort,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// Update 更新角色
func (s *Service) Update(ctx context.Context, id int64, req *UpdateRequest) (*model.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, errors.NotFound("角色")
	}

	if req.Name != "" && req.Name != role.Name {
		existing, err := s.repo.FindByName(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, errors.Duplicate("角色名称")
		}
		role.Name = req.Name
	}
	if req.Status > 0 {
		role.Status = req.Status
	}
	if req.Sort != nil {
		role.Sort = *req.Sort
	}
	if req.Description != "" {
		role.Description = req.Description
	}

	if err := s.repo.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// Delete 删除角色。仍有用户指向该角色或仍持有授权时拒绝删除，
// 不做级联清理，避免静默丢失授权数据。
func (s *Service) Delete(ctx context.Context, id int64) error {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if role == nil {
		return errors.NotFound("角色")
	}

	if s.users != nil {
		inUse, err := s.users.RoleInUse(ctx, id)
		if err != nil {
			return err
		}
		if inUse {
			return errors.Conflict("角色下仍有用户，无法删除")
		}
	}

	granted, err := s.grants.RoleGranted(ctx, id)
	if err != nil {
		return err
	}
	if granted {
		return errors.Conflict("角色仍持有授权，请先清空授权再删除")
	}

	return s.repo.Delete(ctx, id)
}

// Get 获取角色详情
func (s *Service) Get(ctx context.Context, id int64) (*model.Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, errors.NotFound("角色")
	}
	return role, nil
}

// FindRole 根据ID查找角色，不存在返回nil（供解析器使用）
func (s *Service) FindRole(ctx context.Context, id int64) (*model.Role, error) {
	return s.repo.FindByID(ctx, id)
}

// RoleExists 检查角色是否存在
func (s *Service) RoleExists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, map[string]interface{}{"id": id})
}

// GetAll 获取所有启用的角色
func (s *Service) GetAll(ctx context.Context) ([]model.Role, error) {
	return s.repo.FindAll(ctx,
		map[string]interface{}{"status": model.StatusActive},
		dal.WithOrder("sort ASC, id ASC"))
}

// PageSearch 角色分页搜索
func (s *Service) PageSearch(ctx context.Context, req *dal.PageRequest) (*dal.PagedResult[model.Role], error) {
	pagination, err := s.schema.Pagination(req)
	if err != nil {
		return nil, err
	}

	clauses, err := s.schema.Clauses(req.DynamicFilters)
	if err != nil {
		return nil, err
	}

	qb := dal.NewQueryBuilder[model.Role](s.repo.DB()).Order(s.schema.Order())
	for _, c := range clauses {
		qb.Where(c.Expr, c.Args...)
	}
	return qb.Paged(ctx, pagination)
}

// SetPermission 全量替换角色的授权集合
func (s *Service) SetPermission(ctx context.Context, req *SetPermissionRequest) error {
	role, err := s.repo.FindByID(ctx, req.RoleID)
	if err != nil {
		return err
	}
	if role == nil {
		return errors.NotFound("角色")
	}
	return s.grants.ReplaceGrants(ctx, req.RoleID, req.MenuOperationKeys)
}

// GetPermissionKeys 获取角色授权的复合键列表
func (s *Service) GetPermissionKeys(ctx context.Context, roleID int64) ([]string, error) {
	grants, err := s.grants.GetGrants(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return utils.Map(grants, func(g model.RoleGrant) string { return g.Key() }), nil
}
