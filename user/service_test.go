package user_test

import (
	"context"
	"testing"

	"github.com/adminzero/authn"
	"github.com/adminzero/model"
	"github.com/adminzero/permission"
	"github.com/adminzero/pkg/auth"
	"github.com/adminzero/pkg/config"
	"github.com/adminzero/pkg/dal"
	"github.com/adminzero/pkg/database"
	"github.com/adminzero/pkg/errors"
	"github.com/adminzero/role"
	"github.com/adminzero/user"
	"gorm.io/gorm"
)

// env 用户服务测试环境
type env struct {
	db      *gorm.DB
	users   *user.Service
	roles   *role.Service
	gateway *authn.Gateway
	roleID  int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver:       "sqlite",
		LogLevel:     "silent",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.AutoMigrate(&model.Menu{}, &model.Operation{}, &model.Role{}, &model.RoleGrant{}, &model.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	permStore := permission.NewStore(db, nil, nil, 0)
	userRepo := user.NewRepositoryWithDB(db)
	roleSvc := role.NewService(db, permStore, userRepo)
	gateway := authn.New(userRepo, auth.NewJWTManager(&config.JWTConfig{
		Secret: "test-secret",
		Issuer: "adminzero",
		Expire: 3600,
	}))
	userSvc := user.NewService(db, gateway, roleSvc)

	r, err := roleSvc.Create(context.Background(), &role.CreateRequest{Name: "运营"})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}

	return &env{db: db, users: userSvc, roles: roleSvc, gateway: gateway, roleID: r.ID}
}

func (e *env) newUser(t *testing.T, username, password string) *model.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), &user.CreateRequest{
		Username: username,
		Password: password,
		Nickname: username,
		RoleID:   e.roleID,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// TestCreateValidations 登录名唯一性不区分大小写，角色必须存在
func TestCreateValidations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.newUser(t, "phil", "secret123")

	_, err := e.users.Create(ctx, &user.CreateRequest{Username: "Phil", Password: "x", RoleID: e.roleID})
	if !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("case-insensitive duplicate should conflict, got %v", err)
	}

	_, err = e.users.Create(ctx, &user.CreateRequest{Username: "paula", Password: "x", RoleID: 9999})
	if !errors.Is(err, errors.ErrInvalidReference) {
		t.Fatalf("missing role should be an invalid reference, got %v", err)
	}

	if _, err := e.users.Create(ctx, &user.CreateRequest{Username: "", Password: "x"}); !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("empty username should be rejected, got %v", err)
	}
}

// TestLogin 登录校验凭证并签发令牌
func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	created := e.newUser(t, "phil", "secret123")

	resp, err := e.users.Login(ctx, &user.LoginRequest{Username: "phil", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token == nil || resp.Token.AccessToken == "" {
		t.Fatal("login should return a token")
	}
	if resp.UserID != created.ID || resp.RoleID != e.roleID {
		t.Fatalf("response identity = (%d, %d), want (%d, %d)", resp.UserID, resp.RoleID, created.ID, e.roleID)
	}

	// 令牌可被网关验证
	claims, err := e.gateway.ValidateToken(resp.Token.AccessToken)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != created.ID || claims.RoleID != e.roleID {
		t.Fatalf("claims = %+v, want user %d role %d", claims, created.ID, e.roleID)
	}

	// 密码错误与用户不存在返回同一错误
	_, err = e.users.Login(ctx, &user.LoginRequest{Username: "phil", Password: "wrong"})
	if !errors.Is(err, errors.ErrInvalidCredential) {
		t.Fatalf("wrong password = %v, want invalid credential", err)
	}
	_, err = e.users.Login(ctx, &user.LoginRequest{Username: "nobody", Password: "secret123"})
	if !errors.Is(err, errors.ErrInvalidCredential) {
		t.Fatalf("unknown user = %v, want invalid credential", err)
	}
}

// TestLoginDisabledUser 禁用用户持有效凭证也无法登录
func TestLoginDisabledUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	created := e.newUser(t, "phil", "secret123")
	if _, err := e.users.Update(ctx, created.ID, &user.UpdateRequest{Status: model.StatusDisabled}); err != nil {
		t.Fatalf("disable user: %v", err)
	}

	_, err := e.users.Login(ctx, &user.LoginRequest{Username: "phil", Password: "secret123"})
	if !errors.Is(err, errors.ErrForbidden) {
		t.Fatalf("disabled user login = %v, want forbidden", err)
	}
}

// TestResetPassword 重置后旧密码失效，新密码只返回一次
func TestResetPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	created := e.newUser(t, "phil", "secret123")

	plain, err := e.users.ResetPassword(ctx, created.ID)
	if err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if plain == "" || plain == "secret123" {
		t.Fatalf("reset should produce a fresh password, got %q", plain)
	}

	if _, err := e.users.Login(ctx, &user.LoginRequest{Username: "phil", Password: "secret123"}); !errors.Is(err, errors.ErrInvalidCredential) {
		t.Fatalf("old password should be invalid, got %v", err)
	}
	if _, err := e.users.Login(ctx, &user.LoginRequest{Username: "phil", Password: plain}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	if _, err := e.users.ResetPassword(ctx, 9999); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("missing user should be not found, got %v", err)
	}
}

// TestPageSearchEqual Equal为精确匹配且区分大小写
func TestPageSearchEqual(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.newUser(t, "phil", "x12345678")
	e.newUser(t, "Philip", "x12345678")
	e.newUser(t, "paula", "x12345678")

	result, err := e.users.PageSearch(ctx, &dal.PageRequest{
		PageIndex: 1,
		PageSize:  10,
		DynamicFilters: []dal.DynamicFilter{
			{Field: "userName", Operate: "Equal", Value: "phil"},
		},
	})
	if err != nil {
		t.Fatalf("page search: %v", err)
	}
	if result.Total != 1 || len(result.List) != 1 || result.List[0].Username != "phil" {
		t.Fatalf("Equal phil = %+v, want exactly phil", result)
	}

	// 大小写不同的值匹配不到
	result, err = e.users.PageSearch(ctx, &dal.PageRequest{
		PageIndex: 1,
		PageSize:  10,
		DynamicFilters: []dal.DynamicFilter{
			{Field: "userName", Operate: "Equal", Value: "PHIL"},
		},
	})
	if err != nil {
		t.Fatalf("page search: %v", err)
	}
	if result.Total != 0 {
		t.Fatalf("Equal PHIL matched %d rows, want 0", result.Total)
	}
}

// TestPageSearchUnknownField 未登记的字段拒绝而不是忽略
func TestPageSearchUnknownField(t *testing.T) {
	e := newEnv(t)

	_, err := e.users.PageSearch(context.Background(), &dal.PageRequest{
		PageIndex: 1,
		DynamicFilters: []dal.DynamicFilter{
			{Field: "nonexistentColumn", Operate: "Equal", Value: "x"},
		},
	})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("unknown field should be a validation error, got %v", err)
	}
}

// TestPageSearchPagination 跨页遍历的总数一致且不重不漏
func TestPageSearchPagination(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	names := []string{"u01", "u02", "u03", "u04", "u05"}
	for _, n := range names {
		e.newUser(t, n, "x12345678")
	}

	seen := make(map[string]struct{})
	var total int64
	for page := 1; page <= 3; page++ {
		result, err := e.users.PageSearch(ctx, &dal.PageRequest{PageIndex: page, PageSize: 2})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if page == 1 {
			total = result.Total
		} else if result.Total != total {
			t.Fatalf("total changed across pages: %d vs %d", result.Total, total)
		}
		for _, u := range result.List {
			if _, dup := seen[u.Username]; dup {
				t.Fatalf("user %s appeared on multiple pages", u.Username)
			}
			seen[u.Username] = struct{}{}
		}
	}
	if total != int64(len(names)) || len(seen) != len(names) {
		t.Fatalf("walked %d of %d users, total=%d", len(seen), len(names), total)
	}
}
