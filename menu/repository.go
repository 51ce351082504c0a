package menu

import (
	"context"

	"github.com/adminzero/model"
	"github.com/adminzero/pkg/dal"
	"gorm.io/gorm"
)

// Repository 菜单仓储接口
type Repository interface {
	dal.Repository[model.Menu]
	FindAllOrdered(ctx context.Context) ([]model.Menu, error)
	FindByParentID(ctx context.Context, parentID int64) ([]model.Menu, error)
}

// repository 菜单仓储实现
type repository struct {
	*dal.BaseRepository[model.Menu]
}

// NewRepository 创建菜单仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Menu](),
	}
}

// NewRepositoryWithDB 使用指定DB创建菜单仓储
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.Menu](db),
	}
}

// FindAllOrdered 查找所有菜单，同级按排序键排列
func (r *repository) FindAllOrdered(ctx context.Context) ([]model.Menu, error) {
	return r.FindAll(ctx, nil, dal.WithOrder("sort ASC, id ASC"))
}

// FindByParentID 根据父ID查找
func (r *repository) FindByParentID(ctx context.Context, parentID int64) ([]model.Menu, error) {
	return r.FindAll(ctx, map[string]interface{}{"parent_id": parentID}, dal.WithOrder("sort ASC, id ASC"))
}

// OperationRepository 操作项仓储接口
type OperationRepository interface {
	dal.Repository[model.Operation]
	FindByMenuID(ctx context.Context, menuID int64) ([]model.Operation, error)
	FindByMenuAndKey(ctx context.Context, menuID int64, key string) (*model.Operation, error)
}

// operationRepository 操作项仓储实现
type operationRepository struct {
	*dal.BaseRepository[model.Operation]
}

// NewOperationRepository 创建操作项仓储
func NewOperationRepository() OperationRepository {
	return &operationRepository{
		BaseRepository: dal.NewBaseRepository[model.Operation](),
	}
}

// NewOperationRepositoryWithDB 使用指定DB创建操作项仓储
func NewOperationRepositoryWithDB(db *gorm.DB) OperationRepository {
	return &operationRepository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.Operation](db),
	}
}

// FindByMenuID 查找菜单下的所有操作项
func (r *operationRepository) FindByMenuID(ctx context.Context, menuID int64) ([]model.Operation, error) {
	return r.FindAll(ctx, map[string]interface{}{"menu_id": menuID}, dal.WithOrder("sort ASC, id ASC"))
}

// FindByMenuAndKey 根据菜单和操作编码查找
func (r *operationRepository) FindByMenuAndKey(ctx context.Context, menuID int64, key string) (*model.Operation, error) {
	return r.FindOne(ctx, map[string]interface{}{"menu_id": menuID, "op_key": key})
}
