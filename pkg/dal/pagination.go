package dal

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Pagination 分页参数，页码从1开始
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// NewPagination 创建分页参数，越界值回退到默认值
func NewPagination(page, pageSize int) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &Pagination{Page: page, PageSize: pageSize}
}

// Offset 计算偏移量
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PagedResult 分页结果
type PagedResult[T any] struct {
	List     []T   `json:"list"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

// NewPagedResult 创建分页结果
func NewPagedResult[T any](list []T, total int64, p *Pagination) *PagedResult[T] {
	return &PagedResult[T]{
		List:     list,
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
}
