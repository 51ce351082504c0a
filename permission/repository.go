package permission

import (
	"context"

	"github.com/adminzero/model"
	"github.com/adminzero/pkg/dal"
	"gorm.io/gorm"
)

// Repository 角色授权仓储接口
type Repository interface {
	dal.Repository[model.RoleGrant]
	FindByRoleID(ctx context.Context, roleID int64) ([]model.RoleGrant, error)
	ExistsByRoleID(ctx context.Context, roleID int64) (bool, error)
	ExistsByMenuID(ctx context.Context, menuID int64) (bool, error)
	ExistsByOperationID(ctx context.Context, operationID int64) (bool, error)
}

// repository 角色授权仓储实现
type repository struct {
	*dal.BaseRepository[model.RoleGrant]
}

// NewRepository 创建角色授权仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.RoleGrant](),
	}
}

// NewRepositoryWithDB 使用指定DB创建角色授权仓储
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.RoleGrant](db),
	}
}

// FindByRoleID 查找角色的全部授权
func (r *repository) FindByRoleID(ctx context.Context, roleID int64) ([]model.RoleGrant, error) {
	return r.FindAll(ctx, map[string]interface{}{"role_id": roleID},
		dal.WithOrder("menu_id ASC, operation_id ASC"))
}

// ExistsByRoleID 检查角色是否持有授权
func (r *repository) ExistsByRoleID(ctx context.Context, roleID int64) (bool, error) {
	return r.Exists(ctx, map[string]interface{}{"role_id": roleID})
}

// ExistsByMenuID 检查菜单是否被任何角色授权引用
func (r *repository) ExistsByMenuID(ctx context.Context, menuID int64) (bool, error) {
	return r.Exists(ctx, map[string]interface{}{"menu_id": menuID})
}

// ExistsByOperationID 检查操作项是否被任何角色授权引用
func (r *repository) ExistsByOperationID(ctx context.Context, operationID int64) (bool, error) {
	return r.Exists(ctx, map[string]interface{}{"operation_id": operationID})
}
