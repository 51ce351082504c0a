package permission

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adminzero/model"
	"github.com/adminzero/pkg/database"
	"github.com/adminzero/pkg/errors"
	"github.com/adminzero/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// KeySeparator 复合授权键的分隔符，形如 "52_1"
const KeySeparator = "_"

// RefChecker 菜单/操作项引用校验
type RefChecker interface {
	MenuExists(ctx context.Context, menuID int64) (bool, error)
	OperationBelongs(ctx context.Context, operationID, menuID int64) (bool, error)
}

// Store 角色授权存储
type Store struct {
	db       *gorm.DB
	grants   Repository
	refs     RefChecker
	cache    *database.Cache
	cacheTTL time.Duration
	timeout  time.Duration
}

// NewStore 创建角色授权存储，cache可为nil表示不缓存
func NewStore(db *gorm.DB, refs RefChecker, cache *database.Cache, cacheTTL time.Duration) *Store {
	return &Store{
		db:       db,
		grants:   NewRepositoryWithDB(db),
		refs:     refs,
		cache:    cache,
		cacheTTL: cacheTTL,
		timeout:  5 * time.Second,
	}
}

// SetTimeout 设置存储调用超时
func (s *Store) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.timeout = timeout
	}
}

// cacheKey 角色授权缓存键
func cacheKey(roleID int64) string {
	return fmt.Sprintf("role:%d", roleID)
}

// ParseGrantKey 解析复合授权键 "menuId_operationId"，
// 省略操作ID的 "menuId" 视为菜单级授权。格式错误返回验证错误而不是静默丢弃。
func ParseGrantKey(key string) (menuID, operationID int64, err error) {
	parts := strings.Split(key, KeySeparator)
	if len(parts) < 1 || len(parts) > 2 {
		return 0, 0, errors.Validation("无效的授权键: " + key)
	}

	menuID, perr := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if perr != nil || menuID <= 0 {
		return 0, 0, errors.Validation("无效的授权键: " + key)
	}

	operationID = model.MenuLevelOperation
	if len(parts) == 2 {
		operationID, perr = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if perr != nil || operationID < 0 {
			return 0, 0, errors.Validation("无效的授权键: " + key)
		}
	}
	return menuID, operationID, nil
}

// GetGrants 获取角色的授权集合，优先走缓存，缓存故障降级到数据库
func (s *Store) GetGrants(ctx context.Context, roleID int64) ([]model.RoleGrant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.cache != nil {
		var cached []model.RoleGrant
		err := s.cache.GetJSON(ctx, cacheKey(roleID), &cached)
		if err == nil {
			return cached, nil
		}
		if err != redis.Nil {
			logger.Warn("grant cache read failed", zap.Int64("roleId", roleID), zap.Error(err))
		}
	}

	grants, err := s.grants.FindByRoleID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey(roleID), grants, s.cacheTTL); err != nil {
			logger.Warn("grant cache write failed", zap.Int64("roleId", roleID), zap.Error(err))
		}
	}
	return grants, nil
}

// ReplaceGrants 全量替换角色的授权集合。
// 整批在一个事务内完成：先删除角色的全部旧授权再写入新集合，失败不留半套授权。
// 提交阶段脱离调用方取消信号，调用方断开不会留下半套授权。
func (s *Store) ReplaceGrants(ctx context.Context, roleID int64, keys []string) error {
	if roleID <= 0 {
		return errors.Validation("无效的角色ID")
	}

	// 解析并去重，重复授权幂等
	seen := make(map[string]struct{}, len(keys))
	grants := make([]model.RoleGrant, 0, len(keys))
	for _, key := range keys {
		menuID, operationID, err := ParseGrantKey(key)
		if err != nil {
			return err
		}
		norm := fmt.Sprintf("%d_%d", menuID, operationID)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		grants = append(grants, model.RoleGrant{
			RoleID:      roleID,
			MenuID:      menuID,
			OperationID: operationID,
		})
	}

	// 校验所有引用的菜单和操作项
	if err := s.checkRefs(ctx, grants); err != nil {
		return err
	}

	// 写入阶段不响应取消，保证提交或回滚执行完整
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	s.invalidate(writeCtx, roleID)

	err := s.db.WithContext(writeCtx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&model.RoleGrant{}).Error; err != nil {
			return err
		}
		if len(grants) == 0 {
			return nil
		}
		return tx.CreateInBatches(grants, 100).Error
	})
	if err != nil {
		return err
	}

	s.invalidate(writeCtx, roleID)
	logger.Info("role grants replaced",
		zap.Int64("roleId", roleID), zap.Int("count", len(grants)))
	return nil
}

// checkRefs 校验授权引用的菜单与操作项存在性
func (s *Store) checkRefs(ctx context.Context, grants []model.RoleGrant) error {
	if s.refs == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checkedMenus := make(map[int64]struct{})
	for _, g := range grants {
		if _, ok := checkedMenus[g.MenuID]; !ok {
			exists, err := s.refs.MenuExists(ctx, g.MenuID)
			if err != nil {
				return err
			}
			if !exists {
				return errors.InvalidReference(fmt.Sprintf("菜单 %d", g.MenuID))
			}
			checkedMenus[g.MenuID] = struct{}{}
		}
		if g.MenuLevel() {
			continue
		}
		belongs, err := s.refs.OperationBelongs(ctx, g.OperationID, g.MenuID)
		if err != nil {
			return err
		}
		if !belongs {
			return errors.InvalidReference(fmt.Sprintf("操作项 %d", g.OperationID))
		}
	}
	return nil
}

// invalidate 清除角色授权缓存
func (s *Store) invalidate(ctx context.Context, roleID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(roleID)); err != nil {
		logger.Warn("grant cache invalidate failed", zap.Int64("roleId", roleID), zap.Error(err))
	}
}

// MenuGranted 检查菜单是否被任何角色授权引用
func (s *Store) MenuGranted(ctx context.Context, menuID int64) (bool, error) {
	return s.grants.ExistsByMenuID(ctx, menuID)
}

// OperationGranted 检查操作项是否被任何角色授权引用
func (s *Store) OperationGranted(ctx context.Context, operationID int64) (bool, error) {
	return s.grants.ExistsByOperationID(ctx, operationID)
}

// RoleGranted 检查角色是否持有授权
func (s *Store) RoleGranted(ctx context.Context, roleID int64) (bool, error) {
	return s.grants.ExistsByRoleID(ctx, roleID)
}
