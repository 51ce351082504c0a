package authn

import (
	"context"

	"github.com/adminzero/model"
	"github.com/adminzero/pkg/auth"
	"github.com/adminzero/pkg/errors"
	"github.com/adminzero/pkg/logger"
	"go.uber.org/zap"
)

// UserFinder 用户查询，不存在时返回nil
type UserFinder interface {
	FindByLogin(ctx context.Context, loginName string) (*model.User, error)
	FindByUserID(ctx context.Context, id int64) (*model.User, error)
}

// Identity 凭证校验得到的身份，解析器只信任这里派生出的ID
type Identity struct {
	UserID int64 `json:"userId"`
	RoleID int64 `json:"roleId"`
}

// Gateway 会话与身份网关：凭证校验、令牌签发与验证
type Gateway struct {
	users UserFinder
	jwt   *auth.JWTManager
}

// New 创建身份网关
func New(users UserFinder, jwt *auth.JWTManager) *Gateway {
	return &Gateway{
		users: users,
		jwt:   jwt,
	}
}

// VerifyCredentials 校验登录凭证。
// 用户不存在与密码错误返回同一错误，不泄露账号是否存在。
func (g *Gateway) VerifyCredentials(ctx context.Context, loginName, password string) (*Identity, error) {
	u, err := g.users.FindByLogin(ctx, loginName)
	if err != nil {
		return nil, err
	}
	if u == nil || !auth.CheckPassword(password, u.Password) {
		return nil, errors.ErrInvalidCredential
	}
	if u.Disabled() {
		return nil, errors.Wrap(errors.ErrForbidden, 403, "用户已被禁用")
	}
	return &Identity{UserID: u.ID, RoleID: u.RoleID}, nil
}

// IssueToken 为用户签发会话令牌
func (g *Gateway) IssueToken(ctx context.Context, userID int64) (*auth.TokenInfo, error) {
	u, err := g.users.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errors.NotFound("用户")
	}
	token, err := g.jwt.CreateTokenInfo(u.ID, u.Username, u.RoleID)
	if err != nil {
		return nil, err
	}
	logger.Info("token issued", zap.Int64("userId", u.ID))
	return token, nil
}

// ValidateToken 验证会话令牌并返回声明
func (g *Gateway) ValidateToken(token string) (*auth.Claims, error) {
	claims, err := g.jwt.ParseToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrTokenInvalid
	}
	return claims, nil
}

// HashPassword 生成密码哈希，域服务不接触哈希算法
func (g *Gateway) HashPassword(password string) (string, error) {
	return auth.HashPassword(password)
}
