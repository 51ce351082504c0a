package user

import "github.com/adminzero/pkg/auth"

// CreateRequest 创建用户请求
type CreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	RoleID   int64  `json:"roleId"`
}

// UpdateRequest 更新用户请求，零值字段不更新
type UpdateRequest struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	RoleID   int64  `json:"roleId"`
	Status   int8   `json:"status"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token    *auth.TokenInfo `json:"token"`
	UserID   int64           `json:"userId"`
	Username string          `json:"username"`
	Nickname string          `json:"nickname"`
	RoleID   int64           `json:"roleId"`
}
