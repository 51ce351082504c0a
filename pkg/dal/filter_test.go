package dal_test

import (
	"testing"
	"time"

	"github.com/adminzero/pkg/config"
	"github.com/adminzero/pkg/dal"
	"github.com/adminzero/pkg/database"
	"github.com/adminzero/pkg/errors"
	"gorm.io/gorm"
)

// account 动态过滤测试用的实体
type account struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserName  string    `gorm:"column:username;size:50"`
	Age       int       `gorm:"default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (account) TableName() string {
	return "test_account"
}

func newTestDB(t *testing.T) *gorm.DB {
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
	if err := db.AutoMigrate(&account{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func accountSchema() *dal.Schema {
	return dal.NewSchema().
		Field("userName", "username", dal.KindString).
		Field("age", "age", dal.KindInt).
		Field("createdAt", "created_at", dal.KindTime)
}

func seedAccounts(t *testing.T, db *gorm.DB) {
	t.Helper()
	rows := []account{
		{UserName: "phil", Age: 30},
		{UserName: "Phil", Age: 25},
		{UserName: "paula", Age: 40},
		{UserName: "quentin", Age: 18},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func applyAndFind(t *testing.T, db *gorm.DB, s *dal.Schema, filters []dal.DynamicFilter) []account {
	t.Helper()
	query, err := s.Apply(db.Model(&account{}), filters)
	if err != nil {
		t.Fatalf("apply filters: %v", err)
	}
	var got []account
	if err := query.Find(&got).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	return got
}

// TestSchemaPagination 页码从1开始，每页数量收敛到上限
func TestSchemaPagination(t *testing.T) {
	s := accountSchema()

	if _, err := s.Pagination(&dal.PageRequest{PageIndex: 0, PageSize: 10}); !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("page index 0 should be rejected, got %v", err)
	}

	p, err := s.Pagination(&dal.PageRequest{PageIndex: 1})
	if err != nil {
		t.Fatalf("pagination: %v", err)
	}
	if p.PageSize != dal.DefaultPageSize {
		t.Errorf("default page size = %d, want %d", p.PageSize, dal.DefaultPageSize)
	}

	p, err = s.Pagination(&dal.PageRequest{PageIndex: 1, PageSize: 100000})
	if err != nil {
		t.Fatalf("pagination: %v", err)
	}
	if p.PageSize != dal.MaxPageSize {
		t.Errorf("oversized page size = %d, want clamp to %d", p.PageSize, dal.MaxPageSize)
	}
}

// TestApplyUnknownField 未登记的字段一律拒绝
func TestApplyUnknownField(t *testing.T) {
	db := newTestDB(t)
	s := accountSchema()

	_, err := s.Apply(db.Model(&account{}), []dal.DynamicFilter{
		{Field: "nonexistentColumn", Operate: "Equal", Value: "x"},
	})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("unknown field should be a validation error, got %v", err)
	}
}

// TestApplyUnknownOperator 不在封闭集合内的操作符被拒绝
func TestApplyUnknownOperator(t *testing.T) {
	db := newTestDB(t)
	s := accountSchema()

	_, err := s.Apply(db.Model(&account{}), []dal.DynamicFilter{
		{Field: "userName", Operate: "Regex", Value: ".*"},
	})
	if !errors.Is(err, errors.ErrUnsupportedOperator) {
		t.Fatalf("unknown operator should be rejected, got %v", err)
	}
}

// TestApplyOperatorKindMismatch Like只适用于文本字段，比较操作符只适用于有序字段
func TestApplyOperatorKindMismatch(t *testing.T) {
	db := newTestDB(t)
	s := accountSchema()

	_, err := s.Apply(db.Model(&account{}), []dal.DynamicFilter{
		{Field: "age", Operate: "Like", Value: "3"},
	})
	if !errors.Is(err, errors.ErrUnsupportedOperator) {
		t.Fatalf("Like on int field should be rejected, got %v", err)
	}

	_, err = s.Apply(db.Model(&account{}), []dal.DynamicFilter{
		{Field: "userName", Operate: "GreaterThan", Value: "a"},
	})
	if !errors.Is(err, errors.ErrUnsupportedOperator) {
		t.Fatalf("GreaterThan on string field should be rejected, got %v", err)
	}
}

// TestApplyEqualExactMatch Equal为精确匹配且区分大小写
func TestApplyEqualExactMatch(t *testing.T) {
	db := newTestDB(t)
	seedAccounts(t, db)
	s := accountSchema()

	got := applyAndFind(t, db, s, []dal.DynamicFilter{
		{Field: "userName", Operate: "Equal", Value: "phil"},
	})
	if len(got) != 1 || got[0].UserName != "phil" {
		t.Fatalf("Equal phil matched %v, want exactly [phil]", got)
	}

	got = applyAndFind(t, db, s, []dal.DynamicFilter{
		{Field: "userName", Operate: "Equal", Value: "Phil"},
	})
	if len(got) != 1 || got[0].UserName != "Phil" {
		t.Fatalf("Equal Phil matched %v, want exactly [Phil]", got)
	}
}

// TestApplyCombinedFilters 多个过滤条件以AND组合
func TestApplyCombinedFilters(t *testing.T) {
	db := newTestDB(t)
	seedAccounts(t, db)
	s := accountSchema()

	got := applyAndFind(t, db, s, []dal.DynamicFilter{
		{Field: "userName", Operate: "Like", Value: "p"},
		{Field: "age", Operate: "GreaterThanOrEqual", Value: "30"},
	})
	if len(got) != 2 {
		t.Fatalf("combined filters matched %d rows, want 2", len(got))
	}
}

// TestApplyInAndBetween In按逗号拆分，Between需要恰好两个值
func TestApplyInAndBetween(t *testing.T) {
	db := newTestDB(t)
	seedAccounts(t, db)
	s := accountSchema()

	got := applyAndFind(t, db, s, []dal.DynamicFilter{
		{Field: "age", Operate: "In", Value: "18,25"},
	})
	if len(got) != 2 {
		t.Fatalf("In matched %d rows, want 2", len(got))
	}

	got = applyAndFind(t, db, s, []dal.DynamicFilter{
		{Field: "age", Operate: "Between", Value: "20,35"},
	})
	if len(got) != 2 {
		t.Fatalf("Between matched %d rows, want 2", len(got))
	}

	_, err := s.Apply(db.Model(&account{}), []dal.DynamicFilter{
		{Field: "age", Operate: "Between", Value: "20"},
	})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("Between with one value should be rejected, got %v", err)
	}
}

// TestApplyInvalidValue 值无法按字段类型解析时拒绝
func TestApplyInvalidValue(t *testing.T) {
	db := newTestDB(t)
	s := accountSchema()

	_, err := s.Apply(db.Model(&account{}), []dal.DynamicFilter{
		{Field: "age", Operate: "Equal", Value: "not-a-number"},
	})
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("unparsable value should be a validation error, got %v", err)
	}
}

// TestApplyDefaultOrder 无排序条件时按默认排序返回
func TestApplyDefaultOrder(t *testing.T) {
	db := newTestDB(t)
	seedAccounts(t, db)
	s := accountSchema()

	got := applyAndFind(t, db, s, nil)
	if len(got) != 4 {
		t.Fatalf("matched %d rows, want 4", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].ID < got[i].ID {
			t.Fatalf("default order should be id DESC, got ids %d before %d", got[i-1].ID, got[i].ID)
		}
	}
}
