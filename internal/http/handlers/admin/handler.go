package admin

import "github.com/sela-fruits/sela-store/internal/provider"

// Handler staff endpoints
type Handler struct {
	*provider.Container
}

// New creates the staff handler
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
