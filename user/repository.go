package user

import (
	"context"
	"errors"

	"github.com/adminzero/model"
	"github.com/adminzero/pkg/dal"
	"gorm.io/gorm"
)

// Repository 用户仓储接口
type Repository interface {
	dal.Repository[model.User]
	FindByLogin(ctx context.Context, loginName string) (*model.User, error)
	FindByUserID(ctx context.Context, id int64) (*model.User, error)
	RoleInUse(ctx context.Context, roleID int64) (bool, error)
}

// repository 用户仓储实现
type repository struct {
	*dal.BaseRepository[model.User]
}

// NewRepository 创建用户仓储
func NewRepository() Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepository[model.User](),
	}
}

// NewRepositoryWithDB 使用指定DB创建用户仓储
func NewRepositoryWithDB(db *gorm.DB) Repository {
	return &repository{
		BaseRepository: dal.NewBaseRepositoryWithDB[model.User](db),
	}
}

// FindByLogin 根据登录名查找，登录名唯一性不区分大小写
func (r *repository) FindByLogin(ctx context.Context, loginName string) (*model.User, error) {
	var u model.User
	err := r.DB().WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", loginName).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// FindByUserID 根据ID查找用户
func (r *repository) FindByUserID(ctx context.Context, id int64) (*model.User, error) {
	return r.FindByID(ctx, id)
}

// RoleInUse 检查是否仍有用户指向该角色
func (r *repository) RoleInUse(ctx context.Context, roleID int64) (bool, error) {
	return r.Exists(ctx, map[string]interface{}{"role_id": roleID})
}
