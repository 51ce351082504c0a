package dal

import (
	"strconv"
	"strings"
	"time"

	"github.com/adminzero/pkg/errors"
	"gorm.io/gorm"
)

// Condition 过滤操作符，封闭集合，在入口处校验一次
type Condition string

const (
	CondEqual              Condition = "Equal"
	CondNotEqual           Condition = "NotEqual"
	CondLike               Condition = "Like"
	CondGreaterThan        Condition = "GreaterThan"
	CondGreaterThanOrEqual Condition = "GreaterThanOrEqual"
	CondLessThan           Condition = "LessThan"
	CondLessThanOrEqual    Condition = "LessThanOrEqual"
	CondIn                 Condition = "In"
	CondBetween            Condition = "Between"
)

// DynamicFilter 动态过滤条件 (field, operate, value)
type DynamicFilter struct {
	Field   string `json:"field"`
	Operate string `json:"operate"`
	Value   string `json:"value"`
}

// PageRequest 分页搜索请求，多个过滤条件按数组顺序以AND组合
type PageRequest struct {
	PageIndex      int             `json:"pageIndex"`
	PageSize       int             `json:"pageSize"`
	DynamicFilters []DynamicFilter `json:"dynamicFilters"`
}

// FieldKind 可查询字段的类型
type FieldKind int

const (
	KindString FieldKind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
)

// SchemaField 可查询字段定义
type SchemaField struct {
	Column string
	Kind   FieldKind
}

// Schema 实体的可查询字段白名单，未登记的字段一律拒绝
type Schema struct {
	fields       map[string]SchemaField
	defaultOrder string
	maxPageSize  int
}

// NewSchema 创建字段白名单
func NewSchema() *Schema {
	return &Schema{
		fields:       make(map[string]SchemaField),
		defaultOrder: "id DESC",
		maxPageSize:  MaxPageSize,
	}
}

// Field 登记可查询字段
func (s *Schema) Field(name, column string, kind FieldKind) *Schema {
	s.fields[name] = SchemaField{Column: column, Kind: kind}
	return s
}

// DefaultOrder 设置默认排序
func (s *Schema) DefaultOrder(order string) *Schema {
	s.defaultOrder = order
	return s
}

// MaxPageSize 设置每页数量上限
func (s *Schema) MaxPageSize(max int) *Schema {
	if max > 0 {
		s.maxPageSize = max
	}
	return s
}

// Pagination 校验分页参数，页码小于1拒绝，每页数量收敛到上限
func (s *Schema) Pagination(req *PageRequest) (*Pagination, error) {
	if req.PageIndex < 1 {
		return nil, errors.Validation("页码必须从1开始")
	}
	size := req.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	if size > s.maxPageSize {
		size = s.maxPageSize
	}
	return &Pagination{Page: req.PageIndex, PageSize: size}, nil
}

// Clause 单个过滤条件编译出的SQL限制
type Clause struct {
	Expr string
	Args []interface{}
}

// Clauses 校验并编译过滤条件，保持输入顺序
func (s *Schema) Clauses(filters []DynamicFilter) ([]Clause, error) {
	clauses := make([]Clause, 0, len(filters))
	for _, f := range filters {
		field, ok := s.fields[f.Field]
		if !ok {
			return nil, errors.Validation("未知的查询字段: " + f.Field)
		}
		expr, args, err := buildClause(field, f)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, Clause{Expr: expr, Args: args})
	}
	return clauses, nil
}

// Order 默认排序
func (s *Schema) Order() string {
	return s.defaultOrder
}

// Apply 将过滤条件转换为查询限制并附加默认排序
func (s *Schema) Apply(db *gorm.DB, filters []DynamicFilter) (*gorm.DB, error) {
	clauses, err := s.Clauses(filters)
	if err != nil {
		return nil, err
	}
	for _, c := range clauses {
		db = db.Where(c.Expr, c.Args...)
	}
	if s.defaultOrder != "" {
		db = db.Order(s.defaultOrder)
	}
	return db, nil
}

// buildClause 将单个过滤条件转换为SQL限制
func buildClause(field SchemaField, f DynamicFilter) (string, []interface{}, error) {
	op := Condition(f.Operate)
	col := field.Column

	switch op {
	case CondEqual, CondNotEqual:
		v, err := parseValue(field.Kind, f.Value)
		if err != nil {
			return "", nil, errors.Validation("字段 " + f.Field + " 的值无效: " + f.Value)
		}
		if op == CondEqual {
			return col + " = ?", []interface{}{v}, nil
		}
		return col + " <> ?", []interface{}{v}, nil

	case CondLike:
		if field.Kind != KindString {
			return "", nil, errors.UnsupportedOperator(f.Operate, f.Field)
		}
		return col + " LIKE ?", []interface{}{"%" + f.Value + "%"}, nil

	case CondGreaterThan, CondGreaterThanOrEqual, CondLessThan, CondLessThanOrEqual:
		if !ordered(field.Kind) {
			return "", nil, errors.UnsupportedOperator(f.Operate, f.Field)
		}
		v, err := parseValue(field.Kind, f.Value)
		if err != nil {
			return "", nil, errors.Validation("字段 " + f.Field + " 的值无效: " + f.Value)
		}
		switch op {
		case CondGreaterThan:
			return col + " > ?", []interface{}{v}, nil
		case CondGreaterThanOrEqual:
			return col + " >= ?", []interface{}{v}, nil
		case CondLessThan:
			return col + " < ?", []interface{}{v}, nil
		default:
			return col + " <= ?", []interface{}{v}, nil
		}

	case CondIn:
		parts := strings.Split(f.Value, ",")
		values := make([]interface{}, 0, len(parts))
		for _, p := range parts {
			v, err := parseValue(field.Kind, strings.TrimSpace(p))
			if err != nil {
				return "", nil, errors.Validation("字段 " + f.Field + " 的值无效: " + p)
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			return "", nil, errors.Validation("字段 " + f.Field + " 的In条件不能为空")
		}
		return col + " IN ?", []interface{}{values}, nil

	case CondBetween:
		if !ordered(field.Kind) {
			return "", nil, errors.UnsupportedOperator(f.Operate, f.Field)
		}
		parts := strings.Split(f.Value, ",")
		if len(parts) != 2 {
			return "", nil, errors.Validation("字段 " + f.Field + " 的Between条件需要两个值")
		}
		lo, err := parseValue(field.Kind, strings.TrimSpace(parts[0]))
		if err != nil {
			return "", nil, errors.Validation("字段 " + f.Field + " 的值无效: " + parts[0])
		}
		hi, err := parseValue(field.Kind, strings.TrimSpace(parts[1]))
		if err != nil {
			return "", nil, errors.Validation("字段 " + f.Field + " 的值无效: " + parts[1])
		}
		return col + " BETWEEN ? AND ?", []interface{}{lo, hi}, nil

	default:
		return "", nil, errors.UnsupportedOperator(f.Operate, f.Field)
	}
}

// ordered 判断字段类型是否支持大小比较
func ordered(kind FieldKind) bool {
	switch kind {
	case KindInt, KindFloat, KindTime:
		return true
	default:
		return false
	}
}

// parseValue 按字段类型解析过滤值，文本匹配区分大小写
func parseValue(kind FieldKind, value string) (interface{}, error) {
	switch kind {
	case KindString:
		return value, nil
	case KindInt:
		return strconv.ParseInt(value, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(value, 64)
	case KindBool:
		return strconv.ParseBool(value)
	case KindTime:
		if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
			return t, nil
		}
		return time.Parse("2006-01-02", value)
	default:
		return nil, errors.Validation("未知的字段类型")
	}
}
