package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Service reports process liveness.
type Service struct{}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{}
}

// Status returns the liveness payload.
func (s *Service) Status() map[string]string {
	return map[string]string{"status": "ok"}
}

// RegisterRoutes attaches GET /health.
func (s *Service) RegisterRoutes(rg gin.IRoutes) {
	rg.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Status())
	})
}
