package respond

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Attachment sends a generated report or archive as a download. Outputs are
// built per request from a customer's CV, so they are never cached.
func Attachment(c *gin.Context, contentType, fileName string, body []byte) {
	h := c.Writer.Header()
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, contentType, body)
}
