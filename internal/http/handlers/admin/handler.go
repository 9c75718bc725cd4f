package admin

import "github.com/bluewater-shop/storefront/internal/provider"

// Handler serves the admin API for gateway configuration.
type Handler struct {
	*provider.Container
}

// New creates the handler.
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
