package role_test

import (
	"context"
	"testing"

	"github.com/adminzero/menu"
	"github.com/adminzero/model"
	"github.com/adminzero/permission"
	"github.com/adminzero/pkg/config"
	"github.com/adminzero/pkg/dal"
	"github.com/adminzero/pkg/database"
	"github.com/adminzero/pkg/errors"
	"github.com/adminzero/role"
	"github.com/adminzero/user"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*role.Service, *menu.Store, *gorm.DB) {
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

	menuStore := menu.NewStore(db, nil)
	permStore := permission.NewStore(db, menuStore, nil, 0)
	svc := role.NewService(db, permStore, user.NewRepositoryWithDB(db))
	return svc, menuStore, db
}

// TestCreateDuplicateName 角色名唯一
func TestCreateDuplicateName(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, &role.CreateRequest{Name: "管理员"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, &role.CreateRequest{Name: "管理员"}); !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("duplicate name should conflict, got %v", err)
	}
	if _, err := svc.Create(ctx, &role.CreateRequest{Name: ""}); !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("empty name should be rejected, got %v", err)
	}
}

// TestUpdateRename 改名时同样检查唯一性
func TestUpdateRename(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	a, _ := svc.Create(ctx, &role.CreateRequest{Name: "运营"})
	svc.Create(ctx, &role.CreateRequest{Name: "审计"})

	if _, err := svc.Update(ctx, a.ID, &role.UpdateRequest{Name: "审计"}); !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("rename to taken name should conflict, got %v", err)
	}
	updated, err := svc.Update(ctx, a.ID, &role.UpdateRequest{Name: "运营组"})
	if err != nil || updated.Name != "运营组" {
		t.Fatalf("rename = (%v, %v)", updated, err)
	}

	if _, err := svc.Update(ctx, 9999, &role.UpdateRequest{Name: "x"}); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("missing role should be not found, got %v", err)
	}
}

// TestDeleteProtections 有用户或授权指向的角色拒绝删除
func TestDeleteProtections(t *testing.T) {
	svc, menuStore, db := newService(t)
	ctx := context.Background()

	r, _ := svc.Create(ctx, &role.CreateRequest{Name: "运营"})

	// 授权保护
	m, _ := menuStore.Create(ctx, &menu.CreateRequest{Name: "仪表盘"})
	if err := svc.SetPermission(ctx, &role.SetPermissionRequest{
		RoleID:            r.ID,
		MenuOperationKeys: []string{model.RoleGrant{MenuID: m.ID}.Key()},
	}); err != nil {
		t.Fatalf("set permission: %v", err)
	}
	if err := svc.Delete(ctx, r.ID); !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("delete granted role should conflict, got %v", err)
	}
	if err := svc.SetPermission(ctx, &role.SetPermissionRequest{RoleID: r.ID}); err != nil {
		t.Fatalf("clear permission: %v", err)
	}

	// 用户引用保护
	u := model.User{Username: "phil", Password: "x", RoleID: r.ID}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := svc.Delete(ctx, r.ID); !errors.Is(err, errors.ErrConflict) {
		t.Fatalf("delete role with users should conflict, got %v", err)
	}

	if err := db.Delete(&u).Error; err != nil {
		t.Fatalf("remove user: %v", err)
	}
	if err := svc.Delete(ctx, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, r.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("deleted role should be gone, got %v", err)
	}
}

// TestSetPermissionRoundTrip 设置后读回同一批复合键
func TestSetPermissionRoundTrip(t *testing.T) {
	svc, menuStore, _ := newService(t)
	ctx := context.Background()

	r, _ := svc.Create(ctx, &role.CreateRequest{Name: "运营"})
	m, _ := menuStore.Create(ctx, &menu.CreateRequest{Name: "用户管理"})
	op, _ := menuStore.CreateOperation(ctx, &menu.CreateOperationRequest{MenuID: m.ID, Key: "create", Name: "新增"})

	keys := []string{
		model.RoleGrant{MenuID: m.ID}.Key(),
		model.RoleGrant{MenuID: m.ID, OperationID: op.ID}.Key(),
	}
	if err := svc.SetPermission(ctx, &role.SetPermissionRequest{RoleID: r.ID, MenuOperationKeys: keys}); err != nil {
		t.Fatalf("set permission: %v", err)
	}

	got, err := svc.GetPermissionKeys(ctx, r.ID)
	if err != nil {
		t.Fatalf("get permission keys: %v", err)
	}
	if len(got) != 2 || got[0] != keys[0] || got[1] != keys[1] {
		t.Fatalf("keys = %v, want %v", got, keys)
	}

	// 角色不存在时拒绝设置
	err = svc.SetPermission(ctx, &role.SetPermissionRequest{RoleID: 9999, MenuOperationKeys: keys})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("missing role should be not found, got %v", err)
	}
}

// TestPageSearch 角色分页搜索走字段白名单
func TestPageSearch(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for _, name := range []string{"管理员", "运营", "审计"} {
		if _, err := svc.Create(ctx, &role.CreateRequest{Name: name}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	result, err := svc.PageSearch(ctx, &dal.PageRequest{
		PageIndex: 1,
		PageSize:  10,
		DynamicFilters: []dal.DynamicFilter{
			{Field: "name", Operate: "Equal", Value: "运营"},
		},
	})
	if err != nil {
		t.Fatalf("page search: %v", err)
	}
	if result.Total != 1 || len(result.List) != 1 || result.List[0].Name != "运营" {
		t.Fatalf("result = %+v, want single 运营", result)
	}

	_, err = svc.PageSearch(ctx, &dal.PageRequest{
		PageIndex: 1,
		DynamicFilters: []dal.DynamicFilter{
			{Field: "secretColumn", Operate: "Equal", Value: "x"},
		},
	})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("unlisted field should be rejected, got %v", err)
	}
}
