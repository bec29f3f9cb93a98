package public

import "github.com/reflink-next/internal/provider"

// Handler 公开接口处理器入口。
// 覆盖 webhook 边界、推广落地入口与推广用户自助查询。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
