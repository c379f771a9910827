package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-scheduler/internal/repository"
	"github.com/jwalitptl/clinic-scheduler/internal/service/catalog"
)

// Loaders attaches fresh per request catalog loaders so lookups made while
// serving one request are batched.
func Loaders(repo repository.CatalogRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := catalog.WithLoaders(c.Request.Context(), catalog.NewLoaders(repo))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
