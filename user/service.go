package user

import (
	"context"

	"github.com/adminzero/authn"
	"github.com/adminzero/model"
	"github.com/adminzero/pkg/auth"
	"github.com/adminzero/pkg/dal"
	"github.com/adminzero/pkg/errors"
	"github.com/adminzero/pkg/logger"
	"github.com/adminzero/pkg/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// resetPasswordLength 重置密码时生成的随机密码长度
const resetPasswordLength = 12

// IdentityGateway 身份网关，凭证校验与令牌签发都走这里
type IdentityGateway interface {
	VerifyCredentials(ctx context.Context, loginName, password string) (*authn.Identity, error)
	IssueToken(ctx context.Context, userID int64) (*auth.TokenInfo, error)
	HashPassword(password string) (string, error)
}

// RoleChecker 角色引用检查
type RoleChecker interface {
	RoleExists(ctx context.Context, id int64) (bool, error)
}

// Service 用户管理服务
type Service struct {
	repo    Repository
	gateway IdentityGateway
	roles   RoleChecker
	schema  *dal.Schema
}

// NewService 创建用户管理服务
func NewService(db *gorm.DB, gateway IdentityGateway, roles RoleChecker) *Service {
	return &Service{
		repo:    NewRepositoryWithDB(db),
		gateway: gateway,
		roles:   roles,
		schema:  searchSchema(),
	}
}

// Repo 返回用户仓储，供身份网关与角色服务做引用检查
func (s *Service) Repo() Repository {
	return s.repo
}

// searchSchema 用户分页搜索的字段白名单
func searchSchema() *dal.Schema {
	return dal.NewSchema().
		Field("userName", "username", dal.KindString).
		Field("nickname", "nickname", dal.KindString).
		Field("email", "email", dal.KindString).
		Field("status", "status", dal.KindInt).
		Field("roleId", "role_id", dal.KindInt).
		Field("createdAt", "created_at", dal.KindTime)
}

// Create 创建用户，登录名唯一（不区分大小写），角色必须存在
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*model.User, error) {
	if req.Username == "" {
		return nil, errors.Validation("用户名不能为空")
	}
	if req.Password == "" {
		return nil, errors.Validation("密码不能为空")
	}

	existing, err := s.repo.FindByLogin(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Duplicate("用户名")
	}

	if req.RoleID > 0 {
		ok, err := s.roles.RoleExists(ctx, req.RoleID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.InvalidReference("角色")
		}
	}

	hashed, err := s.gateway.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Username: req.Username,
		Password: hashed,
		Nickname: req.Nickname,
		Email:    req.Email,
		RoleID:   req.RoleID,
		Status:   model.StatusActive,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Update 更新用户资料，登录名不允许修改
func (s *Service) Update(ctx context.Context, id int64, req *UpdateRequest) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.NotFound("用户")
	}

	if req.RoleID > 0 && req.RoleID != u.RoleID {
		ok, err := s.roles.RoleExists(ctx, req.RoleID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.InvalidReference("角色")
		}
		u.RoleID = req.RoleID
	}
	if req.Nickname != "" {
		u.Nickname = req.Nickname
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	if req.Status > 0 {
		u.Status = req.Status
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete 删除用户
func (s *Service) Delete(ctx context.Context, id int64) error {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return errors.NotFound("用户")
	}
	return s.repo.Delete(ctx, id)
}

// Get 获取用户详情
func (s *Service) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.NotFound("用户")
	}
	return u, nil
}

// PageSearch 用户分页搜索
func (s *Service) PageSearch(ctx context.Context, req *dal.PageRequest) (*dal.PagedResult[model.User], error) {
	pagination, err := s.schema.Pagination(req)
	if err != nil {
		return nil, err
	}

	clauses, err := s.schema.Clauses(req.DynamicFilters)
	if err != nil {
		return nil, err
	}

	qb := dal.NewQueryBuilder[model.User](s.repo.DB()).Order(s.schema.Order())
	for _, c := range clauses {
		qb.Where(c.Expr, c.Args...)
	}
	return qb.Paged(ctx, pagination)
}

// Login 登录，凭证校验通过后签发令牌
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	identity, err := s.gateway.VerifyCredentials(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	token, err := s.gateway.IssueToken(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.NotFound("用户")
	}

	logger.Info("user login", zap.Int64("userId", u.ID), zap.String("username", u.Username))
	return &LoginResponse{
		Token:    token,
		UserID:   u.ID,
		Username: u.Username,
		Nickname: u.Nickname,
		RoleID:   u.RoleID,
	}, nil
}

// ResetPassword 重置用户密码为随机密码，明文只在本次返回
func (s *Service) ResetPassword(ctx context.Context, id int64) (string, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", errors.NotFound("用户")
	}

	plain := utils.RandomString(resetPasswordLength)
	hashed, err := s.gateway.HashPassword(plain)
	if err != nil {
		return "", err
	}

	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"password": hashed}); err != nil {
		return "", err
	}

	logger.Info("password reset", zap.Int64("userId", id))
	return plain, nil
}
