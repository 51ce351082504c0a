package role

import (
	"context"

	"github.com/adminzero/model"
	"github.com/adminzero/pkg/dal"
	"gorm.io/gorm"
)

// Repository 角色仓储接口
type Repository interface {
	dal.Repository[model.Role]
	FindByName(ctx context.Context, name string) (*model.Role, error)
}

// repository 角色仓储实现
type repository struct {
	*dal.BaseRepository[model.Role]
}

// NewRepository 创建角色仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.Role](),
	}
}

// NewRepositoryWithDB 使用指定DB创建角色仓储
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.Role](db),
	}
}

// FindByName 根据角色名查找
func (r *repository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	return r.FindOne(ctx, map[string]interface{}{"name": name})
}
