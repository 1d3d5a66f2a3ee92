package public

import "github.com/sela-fruits/sela-store/internal/provider"

// Handler storefront, checkout and payment endpoints
type Handler struct {
	*provider.Container
}

// New creates the storefront handler
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
