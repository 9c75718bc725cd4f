package public

import "github.com/bluewater-shop/storefront/internal/provider"

// Handler serves checkout and provider webhook endpoints.
type Handler struct {
	*provider.Container
}

// New creates the handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
