package role

// CreateRequest 创建角色请求
type CreateRequest struct {
	Name        string `json:"name"`
	Sort        int    `json:"sort"`
	Description string `json:"description"`
}

// UpdateRequest 更新角色请求
type UpdateRequest struct {
	Name        string `json:"name"`
	Status      int8   `json:"status"`
	Sort        *int   `json:"sort"`
	Description string `json:"description"`
}

// SetPermissionRequest 设置角色权限请求，全量替换而非增量修改
type SetPermissionRequest struct {
	RoleID            int64    `json:"roleId"`
	MenuOperationKeys []string `json:"menuOperationKeys"`
}
